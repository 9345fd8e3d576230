package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"railsim/pkg/gtfsrt"
	"railsim/pkg/kpi"
	"railsim/pkg/metrics"
	"railsim/pkg/render"
	"railsim/pkg/simulation"
	"railsim/pkg/types"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrorResponse is the JSON error envelope of every failed request
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TrainsResponse is the body of GET /api/trains and GET /api/conflicts
type TrainsResponse struct {
	Trains     []types.Train `json:"trains"`
	Count      int           `json:"count"`
	Tick       uint64        `json:"tick"`
	SnapshotID string        `json:"snapshotId"`
	Timestamp  time.Time     `json:"timestamp"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	Tick       uint64    `json:"tick"`
	SnapshotID string    `json:"snapshotId"`
	Timestamp  time.Time `json:"timestamp"`
	AgeSeconds float64   `json:"ageSeconds"`
	Trains     int       `json:"trains"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// snapshot reads the fleet once per request so every handler works on a
// single consistent tick.
func (s *Server) snapshot(r *http.Request, route string) types.Snapshot {
	metrics.APISnapshotReads.Add(r.Context(), 1, metric.WithAttributes(attribute.String("route", route)))
	return s.fleet.Snapshot()
}

func trainsResponse(snap types.Snapshot, trains []types.Train) TrainsResponse {
	return TrainsResponse{
		Trains:     trains,
		Count:      len(trains),
		Tick:       snap.Tick,
		SnapshotID: snap.ID,
		Timestamp:  snap.Timestamp,
	}
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r, "health")
	age := s.now().Sub(snap.Timestamp)

	resp := HealthResponse{
		Status:     "ok",
		Tick:       snap.Tick,
		SnapshotID: snap.ID,
		Timestamp:  snap.Timestamp,
		AgeSeconds: age.Seconds(),
		Trains:     len(snap.Trains),
	}

	status := http.StatusOK
	if s.opts.StaleAfter > 0 && age > s.opts.StaleAfter {
		resp.Status = "stale"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// getTrains handles GET /api/trains?category=
func (s *Server) getTrains(w http.ResponseWriter, r *http.Request) {
	var category types.Category
	if raw := r.URL.Query().Get("category"); raw != "" && raw != simulation.FilterAll {
		c, err := types.ParseCategory(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown train category", map[string]interface{}{
				"category": raw,
				"allowed":  append([]types.Category{simulation.FilterAll}, types.AllCategories...),
			})
			return
		}
		category = c
	}

	snap := s.snapshot(r, "trains")
	writeJSON(w, http.StatusOK, trainsResponse(snap, simulation.FilterByCategory(snap.Trains, category)))
}

func (s *Server) findTrain(w http.ResponseWriter, r *http.Request, route string) (types.Train, bool) {
	id := chi.URLParam(r, "id")
	snap := s.snapshot(r, route)
	for _, t := range snap.Trains {
		if t.ID == id {
			return t, true
		}
	}
	writeError(w, http.StatusNotFound, "Train not found", map[string]interface{}{"id": id})
	return types.Train{}, false
}

// getTrain handles GET /api/trains/{id}
func (s *Server) getTrain(w http.ResponseWriter, r *http.Request) {
	if t, ok := s.findTrain(w, r, "train"); ok {
		writeJSON(w, http.StatusOK, t)
	}
}

// getBadge handles GET /api/trains/{id}/badge.svg
func (s *Server) getBadge(w http.ResponseWriter, r *http.Request) {
	t, ok := s.findTrain(w, r, "badge")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(render.BadgeSVG(t)))
}

// getConflicts handles GET /api/conflicts
func (s *Server) getConflicts(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r, "conflicts")
	writeJSON(w, http.StatusOK, trainsResponse(snap, simulation.Conflicts(snap.Trains)))
}

// getStations handles GET /api/stations
func (s *Server) getStations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stations": s.stations,
		"count":    len(s.stations),
	})
}

// getSections handles GET /api/sections
func (s *Server) getSections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sections": s.sections,
		"count":    len(s.sections),
	})
}

// getKPIs handles GET /api/kpis
func (s *Server) getKPIs(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r, "kpis")
	writeJSON(w, http.StatusOK, kpi.Compute(snap, s.sections))
}

// getVehiclePositions handles GET /api/gtfsrt/vehicle_positions.pb
func (s *Server) getVehiclePositions(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r, "gtfsrt")
	b, err := gtfsrt.Marshal(snap, s.stations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build GTFS-RT feed", map[string]interface{}{
			"internal": err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", gtfsrt.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
