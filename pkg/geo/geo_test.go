package geo

import (
	"math"
	"testing"

	"railsim/pkg/seed"
	"railsim/pkg/types"
)

const epsilon = 1e-9

func TestLocate(t *testing.T) {
	stations := seed.Default().Stations // unsorted: 50, 25, 75

	tests := []struct {
		name     string
		position float64
		lat, lng float64
	}{
		{name: "before first station", position: 0, lat: 28.6129, lng: 77.2080},
		{name: "at first station", position: 25, lat: 28.6129, lng: 77.2080},
		{name: "midway first pair", position: 37.5, lat: 28.6134, lng: 77.2085},
		{name: "at middle station", position: 50, lat: 28.6139, lng: 77.2090},
		{name: "quarter second pair", position: 56.25, lat: 28.61415, lng: 77.20925},
		{name: "beyond last station", position: 100, lat: 28.6149, lng: 77.2100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng, ok := Locate(tt.position, stations)
			if !ok {
				t.Fatal("Locate returned ok=false")
			}
			if math.Abs(lat-tt.lat) > epsilon || math.Abs(lng-tt.lng) > epsilon {
				t.Errorf("Locate(%v) = (%v, %v), want (%v, %v)", tt.position, lat, lng, tt.lat, tt.lng)
			}
		})
	}
}

func TestLocate_NoCoordinates(t *testing.T) {
	stations := []types.Station{{ID: "a", Position: 10}, {ID: "b", Position: 90}}

	if _, _, ok := Locate(50, stations); ok {
		t.Error("expected ok=false without coordinates")
	}
	if _, _, ok := Locate(50, nil); ok {
		t.Error("expected ok=false without stations")
	}
}

func TestLocate_SingleStation(t *testing.T) {
	stations := []types.Station{
		{ID: "a", Position: 10, Coordinates: [2]float64{1, 2}},
		{ID: "b", Position: 90}, // no coordinates, ignored
	}

	lat, lng, ok := Locate(80, stations)
	if !ok || lat != 1 || lng != 2 {
		t.Errorf("Locate = (%v, %v, %v), want (1, 2, true)", lat, lng, ok)
	}
}

func TestLocate_DoesNotReorderInput(t *testing.T) {
	stations := seed.Default().Stations
	Locate(60, stations)

	if stations[0].ID != "st1" || stations[1].ID != "st2" || stations[2].ID != "st3" {
		t.Errorf("input order changed: %s %s %s", stations[0].ID, stations[1].ID, stations[2].ID)
	}
}
