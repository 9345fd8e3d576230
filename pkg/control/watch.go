package control

import (
	"context"
	"fmt"
	"sync"

	"railsim/pkg/driver"
	"railsim/pkg/types"
)

// DefaultLateThreshold is the delay, in minutes, at which a train is reported late.
const DefaultLateThreshold = 5

// Watcher raises notifications when a train enters a conflict or crosses the
// late threshold. The first snapshot it sees only sets the baseline.
type Watcher struct {
	desk          *Desk
	lateThreshold int

	mu       sync.Mutex
	primed   bool
	conflict map[string]bool
	late     map[string]bool
}

func NewWatcher(desk *Desk, lateThreshold int) *Watcher {
	if lateThreshold <= 0 {
		lateThreshold = DefaultLateThreshold
	}
	return &Watcher{
		desk:          desk,
		lateThreshold: lateThreshold,
		conflict:      make(map[string]bool),
		late:          make(map[string]bool),
	}
}

// Observe compares snap against the previous one and notifies on rising edges.
func (w *Watcher) Observe(ctx context.Context, snap types.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	conflict := make(map[string]bool, len(snap.Trains))
	late := make(map[string]bool, len(snap.Trains))
	for _, t := range snap.Trains {
		conflict[t.ID] = t.Conflict
		late[t.ID] = t.Delay >= w.lateThreshold

		if !w.primed {
			continue
		}
		if t.Conflict && !w.conflict[t.ID] {
			w.desk.Notify(ctx, types.Notification{
				Type:    types.NotifyCritical,
				Title:   fmt.Sprintf("Conflict detected for %s %s", t.ID, t.Name),
				Message: fmt.Sprintf("at %s", t.Location),
			})
		}
		if late[t.ID] && !w.late[t.ID] {
			w.desk.Notify(ctx, types.Notification{
				Type:    types.NotifyWarning,
				Title:   fmt.Sprintf("%s %s running %d minutes late", t.ID, t.Name, t.Delay),
				Message: "Platform assignment may need adjustment",
			})
		}
	}

	w.conflict = conflict
	w.late = late
	w.primed = true
}

// Observer adapts Observe for driver.Subscribe.
func (w *Watcher) Observer() driver.Observer {
	return w.Observe
}
