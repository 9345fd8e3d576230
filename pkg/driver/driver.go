package driver

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"railsim/pkg/metrics"
	"railsim/pkg/otel"
	"railsim/pkg/types"

	"github.com/google/uuid"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultInterval is the refresh period of the network view.
const DefaultInterval = 3 * time.Second

var ErrAlreadyStarted = errors.New("driver already started")

// Source produces the next fleet from the previous snapshot. A returned error
// leaves the previous snapshot in place until the next tick.
type Source interface {
	Next(ctx context.Context, prev types.Snapshot) ([]types.Train, error)
}

// Observer receives every new snapshot. Observers added with Subscribe run
// synchronously on the driver loop and must return well within the interval;
// slow sinks belong behind SubscribeAsync. The snapshot is a private copy.
type Observer func(ctx context.Context, snap types.Snapshot)

type Config struct {
	Interval time.Duration
	Trains   []types.Train
}

// Driver owns the authoritative fleet snapshot and replaces it once per tick.
// A Driver runs at most once: after Run returns or Stop is called it cannot
// be started again.
type Driver struct {
	config    Config
	source    Source
	newTicker TickerFunc
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer

	current atomic.Pointer[types.Snapshot]

	mu        sync.Mutex
	observers []subscription
	nextID    int
	claimed   bool
	cancel    context.CancelFunc
	done      chan struct{}
	asyncs    []*asyncObserver
	drained   bool
}

type subscription struct {
	id int
	fn Observer
}

type Option func(*Driver)

// WithTicker replaces the wall-clock ticker, letting tests fire ticks by hand.
func WithTicker(f TickerFunc) Option {
	return func(d *Driver) { d.newTicker = f }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// New builds a driver holding config.Trains as the tick 0 snapshot. The
// interval must be positive and a source is required; nothing runs until
// Start or Run.
func New(config Config, source Source, opts ...Option) (*Driver, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}

	d := &Driver{
		config:    config,
		source:    source,
		newTicker: NewTimeTicker,
		now:       time.Now,
		logger:    slog.Default(),
		tracer:    otelapi.Tracer("driver"),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.current.Store(&types.Snapshot{
		ID:        uuid.NewString(),
		Tick:      0,
		Timestamp: d.now(),
		Trains:    types.CloneTrains(config.Trains),
	})

	return d, nil
}

// Snapshot returns a copy of the current fleet snapshot.
func (d *Driver) Snapshot() types.Snapshot {
	return d.current.Load().Clone()
}

// Interval returns the refresh period.
func (d *Driver) Interval() time.Duration {
	return d.config.Interval
}

// Done is closed once the refresh loop has exited.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Subscribe registers an observer and returns a function that removes it.
func (d *Driver) Subscribe(fn Observer) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.observers = append(d.observers, subscription{id: id, fn: fn})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.observers {
			if s.id == id {
				d.observers = append(d.observers[:i:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func (d *Driver) claim() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed {
		return ErrAlreadyStarted
	}
	d.claimed = true
	return nil
}

// Run blocks, ticking every interval until ctx is cancelled, and returns
// ctx.Err().
func (d *Driver) Run(ctx context.Context) error {
	if err := d.claim(); err != nil {
		return err
	}
	return d.loop(ctx)
}

// Start runs the refresh loop in the background. Every Start must be paired
// with a Stop, typically deferred right after it.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.claimed {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.claimed = true
	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	go func() {
		_ = d.loop(loopCtx)
	}()
	return nil
}

// Stop cancels the loop and waits for it to exit, including the delivery of
// snapshots still queued for async observers. No observer is called after
// Stop returns. Stop is safe to call more than once, and before Start.
// A loop entered through Run is stopped by cancelling its context instead.
func (d *Driver) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	started := d.claimed
	d.claimed = true
	d.mu.Unlock()

	if cancel == nil {
		if !started {
			// never started: nothing will ever close done otherwise
			d.drainAsync()
			d.closeDone()
		}
		return
	}
	cancel()
	<-d.done
}

func (d *Driver) closeDone() {
	select {
	case <-d.done:
	default:
		close(d.done)
	}
}

func (d *Driver) loop(ctx context.Context) error {
	ticker := d.newTicker(d.config.Interval)
	defer ticker.Stop()
	defer d.closeDone()
	defer d.drainAsync()

	d.logger.Info("Driver started", "interval", d.config.Interval, "trains", len(d.config.Trains))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Driver stopped", "tick", d.current.Load().Tick)
			return ctx.Err()
		case <-ticker.C():
			// a tick racing with cancellation is dropped
			if ctx.Err() != nil {
				continue
			}
			d.tick(ctx)
		}
	}
}

func (d *Driver) tick(ctx context.Context) {
	prev := d.current.Load()

	ctx, span := d.tracer.Start(ctx, "driver.tick",
		trace.WithAttributes(
			attribute.Int64("tick", int64(prev.Tick+1)),
			attribute.Int("trains_count", len(prev.Trains)),
		),
	)
	defer span.End()

	start := time.Now()

	trains, err := d.source.Next(ctx, prev.Clone())
	if err != nil {
		errorType, transient := otel.Classify(err)
		otel.RecordError(span, err, errorType, transient)
		metrics.DriverTicksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		metrics.DriverErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("error.type", errorType)))
		d.logger.Warn("Tick failed, keeping previous snapshot", "tick", prev.Tick+1, "error_type", errorType, "error", err)
		return
	}

	next := &types.Snapshot{
		ID:        uuid.NewString(),
		Tick:      prev.Tick + 1,
		Timestamp: d.now(),
		Trains:    types.CloneTrains(trains),
	}
	d.current.Store(next)

	d.mu.Lock()
	observers := make([]subscription, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, obs := range observers {
		obsStart := time.Now()
		obs.fn(ctx, next.Clone())
		metrics.DriverObserverDuration.Record(ctx, time.Since(obsStart).Seconds())
	}

	delayed, conflicts := 0, 0
	for _, t := range next.Trains {
		if t.Delay > 0 {
			delayed++
		}
		if t.Conflict {
			conflicts++
		}
	}

	span.SetAttributes(
		attribute.String("snapshot_id", next.ID),
		attribute.Int("observers", len(observers)),
		attribute.Int("delayed_trains", delayed),
	)
	otel.SetSpanOk(span)

	metrics.DriverTicksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	metrics.DriverTickDuration.Record(ctx, time.Since(start).Seconds())
	metrics.RecordFleet(len(next.Trains), delayed, conflicts)
	metrics.RecordLastSuccessTimestamp()

	d.logger.Debug("Tick complete", "tick", next.Tick, "trains", len(next.Trains), "delayed", delayed)
}

// Updates returns the snapshots produced from now on, one per tick, until ctx
// is cancelled, the driver stops, or the consumer stops iterating. The
// sequence can be ranged over once; later attempts yield nothing.
// The driver loop waits for the consumer to take each snapshot.
func (d *Driver) Updates(ctx context.Context) iter.Seq[types.Snapshot] {
	var used atomic.Bool

	return func(yield func(types.Snapshot) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}

		ch := make(chan types.Snapshot)
		quit := make(chan struct{})

		unsubscribe := d.Subscribe(func(tickCtx context.Context, snap types.Snapshot) {
			select {
			case ch <- snap:
			case <-quit:
			case <-ctx.Done():
			case <-tickCtx.Done():
			}
		})
		defer unsubscribe()
		defer close(quit)

		for {
			select {
			case <-ctx.Done():
				return
			case <-d.done:
				return
			case snap := <-ch:
				if !yield(snap) {
					return
				}
			}
		}
	}
}
