package driver

import (
	"context"
	"sync"

	"railsim/pkg/metrics"
	"railsim/pkg/types"
)

// DefaultAsyncBuffer is the queue length used when SubscribeAsync is given
// a non-positive buffer.
const DefaultAsyncBuffer = 16

// asyncObserver feeds one observer from a bounded queue on its own goroutine.
// Only the driver loop enqueues.
type asyncObserver struct {
	fn    Observer
	queue chan queued
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

type queued struct {
	ctx  context.Context
	snap types.Snapshot
}

func newAsyncObserver(fn Observer, buffer int) *asyncObserver {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	a := &asyncObserver{
		fn:    fn,
		queue: make(chan queued, buffer),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *asyncObserver) run() {
	defer close(a.done)
	for q := range a.queue {
		a.fn(q.ctx, q.snap)
	}
}

// enqueue never blocks. When the queue is full the oldest pending snapshot
// is dropped; it reports whether one was.
func (a *asyncObserver) enqueue(ctx context.Context, snap types.Snapshot) (dropped bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}

	// the tick context ends with the loop; queued deliveries outlive it
	q := queued{ctx: context.WithoutCancel(ctx), snap: snap}
	for {
		select {
		case a.queue <- q:
			return dropped
		default:
		}
		select {
		case <-a.queue:
			dropped = true
		default:
		}
	}
}

// close stops accepting snapshots and waits until the queue is drained.
func (a *asyncObserver) close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

// SubscribeAsync registers an observer that runs on its own goroutine behind
// a queue of buffer snapshots, so a slow sink never delays a tick. When the
// queue is full the oldest pending snapshot is dropped and counted. Snapshots
// still queued when the loop exits are delivered before Stop returns.
func (d *Driver) SubscribeAsync(fn Observer, buffer int) (unsubscribe func()) {
	a := newAsyncObserver(fn, buffer)

	d.mu.Lock()
	if d.drained {
		d.mu.Unlock()
		a.close()
		return func() {}
	}
	d.asyncs = append(d.asyncs, a)
	d.mu.Unlock()

	remove := d.Subscribe(func(ctx context.Context, snap types.Snapshot) {
		if a.enqueue(ctx, snap) {
			metrics.DriverSnapshotsDropped.Add(ctx, 1)
			d.logger.Warn("Async observer is falling behind, dropped oldest snapshot", "tick", snap.Tick)
		}
	})

	return func() {
		remove()
		a.close()
	}
}

// drainAsync closes every async observer and waits for its queue to empty.
func (d *Driver) drainAsync() {
	d.mu.Lock()
	asyncs := d.asyncs
	d.asyncs = nil
	d.drained = true
	d.mu.Unlock()

	for _, a := range asyncs {
		a.close()
	}
}
