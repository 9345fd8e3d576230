package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"railsim/pkg/kpi"
	"railsim/pkg/seed"
	"railsim/pkg/types"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

var testTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

type staticFleet struct {
	snap types.Snapshot
}

func (f staticFleet) Snapshot() types.Snapshot { return f.snap.Clone() }

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	s := seed.Default()
	srv := NewServer(staticFleet{snap: types.Snapshot{
		ID:        "snap-7",
		Tick:      7,
		Timestamp: testTime,
		Trains:    s.Trains,
	}}, s.Stations, s.Sections, opts)
	srv.now = func() time.Time { return testTime.Add(2 * time.Second) }

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	h := decode[HealthResponse](t, resp)
	if h.Status != "ok" || h.Tick != 7 || h.SnapshotID != "snap-7" || h.Trains != 5 {
		t.Errorf("unexpected health: %+v", h)
	}
	if h.AgeSeconds != 2 {
		t.Errorf("AgeSeconds = %v, want 2", h.AgeSeconds)
	}

	if resp := get(t, ts.URL+"/healthz"); resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d", resp.StatusCode)
	}
}

func TestHealth_Stale(t *testing.T) {
	ts := newTestServer(t, Options{StaleAfter: time.Second})

	resp := get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if h := decode[HealthResponse](t, resp); h.Status != "stale" {
		t.Errorf("Status = %q, want stale", h.Status)
	}
}

func TestGetTrains(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		query   string
		wantIDs []string
	}{
		{query: "", wantIDs: []string{"T001", "T002", "T003", "T004", "T005"}},
		{query: "?category=all", wantIDs: []string{"T001", "T002", "T003", "T004", "T005"}},
		{query: "?category=express", wantIDs: []string{"T001", "T004"}},
		{query: "?category=LOCAL", wantIDs: []string{"T002", "T005"}},
		{query: "?category=premium", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := get(t, ts.URL+"/api/trains"+tt.query)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			body := decode[TrainsResponse](t, resp)
			if body.Count != len(tt.wantIDs) || len(body.Trains) != len(tt.wantIDs) {
				t.Fatalf("got %d trains, want %d", len(body.Trains), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if body.Trains[i].ID != id {
					t.Errorf("train %d = %s, want %s", i, body.Trains[i].ID, id)
				}
			}
			if body.Tick != 7 || body.SnapshotID != "snap-7" {
				t.Errorf("tick/snapshot = %d/%s", body.Tick, body.SnapshotID)
			}
		})
	}
}

func TestGetTrains_UnknownCategory(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := get(t, ts.URL+"/api/trains?category=monorail")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[ErrorResponse](t, resp)
	if body.Error == "" || body.Details["category"] != "monorail" {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestGetTrain(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := get(t, ts.URL+"/api/trains/T003")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if train := decode[types.Train](t, resp); train.ID != "T003" || train.Category != types.CategoryFreight {
		t.Errorf("unexpected train: %+v", train)
	}

	resp = get(t, ts.URL+"/api/trains/T999")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body := decode[ErrorResponse](t, resp); body.Details["id"] != "T999" {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestGetBadge(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := get(t, ts.URL+"/api/trains/T004/badge.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(body), "<svg") || !strings.Contains(string(body), "T004") {
		t.Errorf("unexpected badge: %s", body)
	}

	if resp := get(t, ts.URL+"/api/trains/nope/badge.svg"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing train badge status = %d", resp.StatusCode)
	}
}

func TestGetConflicts(t *testing.T) {
	ts := newTestServer(t, Options{})

	body := decode[TrainsResponse](t, get(t, ts.URL+"/api/conflicts"))
	if body.Count != 1 || body.Trains[0].ID != "T004" {
		t.Errorf("unexpected conflicts: %+v", body.Trains)
	}
}

func TestGetStationsAndSections(t *testing.T) {
	ts := newTestServer(t, Options{})

	stations := decode[struct {
		Stations []types.Station `json:"stations"`
		Count    int             `json:"count"`
	}](t, get(t, ts.URL+"/api/stations"))
	if stations.Count != 3 || stations.Stations[0].ID != "st1" {
		t.Errorf("unexpected stations: %+v", stations)
	}

	sections := decode[struct {
		Sections []types.TrackSection `json:"sections"`
		Count    int                  `json:"count"`
	}](t, get(t, ts.URL+"/api/sections"))
	if sections.Count != 3 || sections.Sections[2].Status != types.SectionClear {
		t.Errorf("unexpected sections: %+v", sections)
	}
}

func TestGetKPIs(t *testing.T) {
	ts := newTestServer(t, Options{})

	k := decode[kpi.KPIs](t, get(t, ts.URL+"/api/kpis"))
	if k.Tick != 7 || k.Trains != 5 || k.Conflicts != 1 || k.TrackUtilization != 66.7 {
		t.Errorf("unexpected kpis: %+v", k)
	}
}

func TestGetVehiclePositions(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp := get(t, ts.URL+"/api/gtfsrt/vehicle_positions.pb")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Errorf("Content-Type = %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(body, &fm); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(fm.GetEntity()) != 5 {
		t.Errorf("got %d entities, want 5", len(fm.GetEntity()))
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:5173"}})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/trains", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q for foreign origin", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, Options{})

	if resp := get(t, ts.URL+"/api/nope"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
