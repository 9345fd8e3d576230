// Package schedule derives the schedule board from a fleet snapshot.
package schedule

import (
	"cmp"
	"slices"
	"time"

	"railsim/pkg/types"
)

const clockLayout = "15:04"

// Board returns one entry per train. The train's ETA is the timetabled time
// and the actual time is that plus the current delay, wrapping at midnight.
// Trains with a timetable come first ordered by actual time; the rest keep
// fleet order at the end.
func Board(snap types.Snapshot) []types.ScheduleEntry {
	out := make([]types.ScheduleEntry, 0, len(snap.Trains))
	for _, t := range snap.Trains {
		out = append(out, entry(t))
	}

	slices.SortStableFunc(out, func(a, b types.ScheduleEntry) int {
		switch {
		case a.ActualTime == "" && b.ActualTime == "":
			return 0
		case a.ActualTime == "":
			return 1
		case b.ActualTime == "":
			return -1
		}
		return cmp.Compare(a.ActualTime, b.ActualTime)
	})
	return out
}

func entry(t types.Train) types.ScheduleEntry {
	e := types.ScheduleEntry{
		TrainID:   t.ID,
		TrainName: t.Name,
		Category:  t.Category,
		Track:     track(t.Direction),
		From:      t.Location,
		To:        t.NextStation,
		Delay:     t.Delay,
		Platform:  t.Platform,
		Status:    types.ScheduleOnTime,
	}
	if t.Delay > 0 {
		e.Status = types.ScheduleDelayed
	}

	if scheduled, err := time.Parse(clockLayout, t.ETA); err == nil {
		e.ScheduledTime = scheduled.Format(clockLayout)
		e.ActualTime = scheduled.Add(time.Duration(t.Delay) * time.Minute).Format(clockLayout)
	}
	return e
}

func track(d types.Direction) string {
	switch d {
	case types.DirectionUp:
		return "UP"
	case types.DirectionDown:
		return "DN"
	}
	return string(d)
}
