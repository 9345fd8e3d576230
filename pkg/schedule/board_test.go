package schedule

import (
	"testing"

	"railsim/pkg/seed"
	"railsim/pkg/types"
)

func TestBoard_DefaultSeed(t *testing.T) {
	board := Board(types.Snapshot{Trains: seed.Default().Trains})

	if len(board) != 5 {
		t.Fatalf("entries = %d, want 5", len(board))
	}

	// actual times 14:17, 14:25, 14:28, 14:37, 14:52
	wantOrder := []string{"T002", "T005", "T004", "T001", "T003"}
	for i, id := range wantOrder {
		if board[i].TrainID != id {
			t.Errorf("board[%d] = %s, want %s", i, board[i].TrainID, id)
		}
	}

	first := board[0]
	if first.ScheduledTime != "14:15" || first.ActualTime != "14:17" {
		t.Errorf("T002 times = %s/%s, want 14:15/14:17", first.ScheduledTime, first.ActualTime)
	}
	if first.Track != "DN" || first.From != "Station-C" || first.To != "Junction-A" {
		t.Errorf("unexpected T002 entry: %+v", first)
	}
}

func TestBoard_Entry(t *testing.T) {
	tests := []struct {
		name          string
		train         types.Train
		wantScheduled string
		wantActual    string
		wantStatus    types.ScheduleStatus
		wantTrack     string
	}{
		{
			name:          "on time",
			train:         types.Train{ID: "a", ETA: "12:40", Direction: types.DirectionUp},
			wantScheduled: "12:40",
			wantActual:    "12:40",
			wantStatus:    types.ScheduleOnTime,
			wantTrack:     "UP",
		},
		{
			name:          "delayed",
			train:         types.Train{ID: "b", ETA: "13:12", Delay: 8, Direction: types.DirectionUp},
			wantScheduled: "13:12",
			wantActual:    "13:20",
			wantStatus:    types.ScheduleDelayed,
			wantTrack:     "UP",
		},
		{
			name:          "wraps past midnight",
			train:         types.Train{ID: "c", ETA: "23:55", Delay: 12, Direction: types.DirectionDown},
			wantScheduled: "23:55",
			wantActual:    "00:07",
			wantStatus:    types.ScheduleDelayed,
			wantTrack:     "DN",
		},
		{
			name:       "no timetable",
			train:      types.Train{ID: "d", Delay: 3, Direction: types.DirectionDown},
			wantStatus: types.ScheduleDelayed,
			wantTrack:  "DN",
		},
		{
			name:       "unparseable eta",
			train:      types.Train{ID: "e", ETA: "soon", Direction: types.DirectionUp},
			wantStatus: types.ScheduleOnTime,
			wantTrack:  "UP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := Board(types.Snapshot{Trains: []types.Train{tt.train}})
			if len(board) != 1 {
				t.Fatalf("entries = %d, want 1", len(board))
			}
			e := board[0]
			if e.ScheduledTime != tt.wantScheduled || e.ActualTime != tt.wantActual {
				t.Errorf("times = %q/%q, want %q/%q", e.ScheduledTime, e.ActualTime, tt.wantScheduled, tt.wantActual)
			}
			if e.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", e.Status, tt.wantStatus)
			}
			if e.Track != tt.wantTrack {
				t.Errorf("Track = %q, want %q", e.Track, tt.wantTrack)
			}
			if e.Delay != tt.train.Delay {
				t.Errorf("Delay = %d, want %d", e.Delay, tt.train.Delay)
			}
		})
	}
}

func TestBoard_UntimedTrainsLast(t *testing.T) {
	board := Board(types.Snapshot{Trains: []types.Train{
		{ID: "x"},
		{ID: "late", ETA: "18:00"},
		{ID: "y"},
		{ID: "early", ETA: "06:30"},
	}})

	want := []string{"early", "late", "x", "y"}
	for i, id := range want {
		if board[i].TrainID != id {
			t.Errorf("board[%d] = %s, want %s", i, board[i].TrainID, id)
		}
	}
}

func TestBoard_Empty(t *testing.T) {
	board := Board(types.Snapshot{})
	if board == nil || len(board) != 0 {
		t.Errorf("Board(empty) = %v, want empty non-nil slice", board)
	}
}
