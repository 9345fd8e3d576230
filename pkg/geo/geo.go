// Package geo projects schematic track positions onto map coordinates.
package geo

import (
	"slices"

	"railsim/pkg/types"
)

// Locate interpolates [lat, lng] for a track position between the two
// stations that bracket it. Positions beyond the outermost stations snap to
// them. Stations without coordinates are ignored; ok is false when none remain.
func Locate(position float64, stations []types.Station) (lat, lng float64, ok bool) {
	located := make([]types.Station, 0, len(stations))
	for _, st := range stations {
		if st.Coordinates != [2]float64{} {
			located = append(located, st)
		}
	}
	if len(located) == 0 {
		return 0, 0, false
	}

	slices.SortStableFunc(located, func(a, b types.Station) int {
		switch {
		case a.Position < b.Position:
			return -1
		case a.Position > b.Position:
			return 1
		}
		return 0
	})

	first, last := located[0], located[len(located)-1]
	if position <= first.Position {
		return first.Coordinates[0], first.Coordinates[1], true
	}
	if position >= last.Position {
		return last.Coordinates[0], last.Coordinates[1], true
	}

	for i := 1; i < len(located); i++ {
		a, b := located[i-1], located[i]
		if position > b.Position {
			continue
		}
		span := b.Position - a.Position
		if span == 0 {
			return b.Coordinates[0], b.Coordinates[1], true
		}
		f := (position - a.Position) / span
		return lerp(a.Coordinates[0], b.Coordinates[0], f), lerp(a.Coordinates[1], b.Coordinates[1], f), true
	}

	return last.Coordinates[0], last.Coordinates[1], true
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}
