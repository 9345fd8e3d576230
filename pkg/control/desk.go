// Package control holds the controller's desk: advisory recommendations that
// can be accepted, modified or dismissed, and the notification feed.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"railsim/pkg/metrics"
	"railsim/pkg/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyDecided = errors.New("recommendation already decided")
	ErrInvalidAction  = errors.New("invalid decision")
)

// DefaultMaxNotifications caps the feed; the oldest entries fall off first.
const DefaultMaxNotifications = 50

// Desk is safe for concurrent use.
type Desk struct {
	mu    sync.Mutex
	recs  []types.Recommendation
	notes []types.Notification // newest first

	maxNotes int
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Desk)

// WithClock replaces time.Now for decision and notification timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Desk) { d.now = now }
}

func WithMaxNotifications(n int) Option {
	return func(d *Desk) {
		if n > 0 {
			d.maxNotes = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Desk) { d.logger = logger }
}

// NewDesk copies the seeded recommendations and notifications. A seeded
// recommendation without a status is pending.
func NewDesk(recs []types.Recommendation, notes []types.Notification, opts ...Option) *Desk {
	d := &Desk{
		recs:     types.CloneRecommendations(recs),
		notes:    types.CloneNotifications(notes),
		maxNotes: DefaultMaxNotifications,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	for i := range d.recs {
		if d.recs[i].Status == "" {
			d.recs[i].Status = types.DecisionPending
		}
	}
	slices.SortStableFunc(d.notes, func(a, b types.Notification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	d.trim()
	return d
}

// Recommendations lists recommendations in seed order. An empty status
// returns all of them.
func (d *Desk) Recommendations(status types.Decision) []types.Recommendation {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]types.Recommendation, 0, len(d.recs))
	for _, rec := range d.recs {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	return types.CloneRecommendations(out)
}

func (d *Desk) Recommendation(id string) (types.Recommendation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.findRec(id)
	if i < 0 {
		return types.Recommendation{}, fmt.Errorf("recommendation %q: %w", id, ErrNotFound)
	}
	return types.CloneRecommendations(d.recs[i : i+1])[0], nil
}

// Decide records the controller's decision on a pending recommendation and
// raises a matching notification. Deciding twice is ErrAlreadyDecided.
func (d *Desk) Decide(ctx context.Context, id string, decision types.Decision, note string) (types.Recommendation, error) {
	switch decision {
	case types.DecisionAccepted, types.DecisionModified, types.DecisionDismissed:
	default:
		return types.Recommendation{}, fmt.Errorf("%w %q", ErrInvalidAction, decision)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.findRec(id)
	if i < 0 {
		return types.Recommendation{}, fmt.Errorf("recommendation %q: %w", id, ErrNotFound)
	}
	rec := &d.recs[i]
	if rec.Status != types.DecisionPending {
		return types.Recommendation{}, fmt.Errorf("recommendation %q is %s: %w", id, rec.Status, ErrAlreadyDecided)
	}

	at := d.now()
	rec.Status = decision
	rec.Note = note
	rec.DecidedAt = &at

	metrics.ControlDecisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", string(decision))))
	d.logger.Info("Recommendation decided",
		"id", id,
		"train_id", rec.TrainID,
		"decision", decision,
		"algorithm", rec.Algorithm,
	)

	kind := types.NotifyInfo
	if decision == types.DecisionAccepted {
		kind = types.NotifySuccess
	}
	d.push(ctx, types.Notification{
		Type:    kind,
		Title:   fmt.Sprintf("AI recommendation %s", decision),
		Message: rec.Title,
	})

	return types.CloneRecommendations(d.recs[i : i+1])[0], nil
}

func (d *Desk) findRec(id string) int {
	return slices.IndexFunc(d.recs, func(r types.Recommendation) bool { return r.ID == id })
}

// Notifications lists the feed newest first.
func (d *Desk) Notifications(unreadOnly bool) []types.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]types.Notification, 0, len(d.notes))
	for _, n := range d.notes {
		if !unreadOnly || !n.Read {
			out = append(out, n)
		}
	}
	return out
}

func (d *Desk) UnreadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	count := 0
	for _, n := range d.notes {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead is idempotent.
func (d *Desk) MarkRead(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.findNote(id)
	if i < 0 {
		return fmt.Errorf("notification %q: %w", id, ErrNotFound)
	}
	d.notes[i].Read = true
	return nil
}

func (d *Desk) Dismiss(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.findNote(id)
	if i < 0 {
		return fmt.Errorf("notification %q: %w", id, ErrNotFound)
	}
	d.notes = slices.Delete(d.notes, i, i+1)
	return nil
}

// Notify adds n to the top of the feed, filling in a missing ID and timestamp.
func (d *Desk) Notify(ctx context.Context, n types.Notification) types.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.push(ctx, n)
}

func (d *Desk) findNote(id string) int {
	return slices.IndexFunc(d.notes, func(n types.Notification) bool { return n.ID == id })
}

// push expects d.mu to be held.
func (d *Desk) push(ctx context.Context, n types.Notification) types.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = d.now()
	}

	d.notes = slices.Insert(d.notes, 0, n)
	d.trim()

	metrics.ControlNotificationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(n.Type))))
	d.logger.Debug("Notification raised", "id", n.ID, "type", n.Type, "title", n.Title)
	return n
}

func (d *Desk) trim() {
	if len(d.notes) > d.maxNotes {
		d.notes = d.notes[:d.maxNotes]
	}
}
