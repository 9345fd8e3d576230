// Package kpi derives the dashboard header indicators from a fleet snapshot.
package kpi

import (
	"math"

	"railsim/pkg/types"
)

type KPIs struct {
	Tick             uint64  `json:"tick"`
	Trains           int     `json:"trains"`
	Punctuality      float64 `json:"punctuality"`      // percent of trains running on time
	AverageDelay     float64 `json:"averageDelay"`     // minutes
	Throughput       int     `json:"throughput"`       // trains not holding
	Conflicts        int     `json:"conflicts"`
	Delayed          int     `json:"delayed"`
	TrackUtilization float64 `json:"trackUtilization"` // percent of sections not clear
}

// Compute is pure. An empty fleet reports 100% punctuality and an empty
// section list 0% utilization.
func Compute(snap types.Snapshot, sections []types.TrackSection) KPIs {
	k := KPIs{Tick: snap.Tick, Trains: len(snap.Trains)}

	onTime, totalDelay := 0, 0
	for _, t := range snap.Trains {
		if t.Delay == 0 || t.Status == types.StatusOnTime {
			onTime++
		}
		if t.Delay > 0 {
			k.Delayed++
		}
		if t.Status != types.StatusHolding {
			k.Throughput++
		}
		if t.Conflict {
			k.Conflicts++
		}
		totalDelay += t.Delay
	}

	if n := len(snap.Trains); n > 0 {
		k.Punctuality = round1(100 * float64(onTime) / float64(n))
		k.AverageDelay = round1(float64(totalDelay) / float64(n))
	} else {
		k.Punctuality = 100
	}

	if len(sections) > 0 {
		busy := 0
		for _, s := range sections {
			if s.Status != types.SectionClear {
				busy++
			}
		}
		k.TrackUtilization = round1(100 * float64(busy) / float64(len(sections)))
	}

	return k
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
