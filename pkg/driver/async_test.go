package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"railsim/pkg/types"
)

// recorder collects the ticks an observer received.
type recorder struct {
	mu    sync.Mutex
	ticks []uint64
}

func (r *recorder) add(s types.Snapshot) {
	r.mu.Lock()
	r.ticks = append(r.ticks, s.Tick)
	r.mu.Unlock()
}

func (r *recorder) get() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.ticks...)
}

func fireAndWait(t *testing.T, mt *manualTicker, got <-chan types.Snapshot, tick uint64) {
	t.Helper()
	select {
	case mt.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("driver loop blocked before tick %d", tick)
	}
	select {
	case s := <-got:
		if s.Tick != tick {
			t.Fatalf("got tick %d, want %d", s.Tick, tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("tick %d never delivered", tick)
	}
}

func TestSubscribeAsync_SlowObserverDoesNotStallTicks(t *testing.T) {
	d, created := newTestDriver(t, &countingSource{})

	release := make(chan struct{})
	var slow recorder
	d.SubscribeAsync(func(_ context.Context, s types.Snapshot) {
		<-release
		slow.add(s)
	}, 1)

	got := make(chan types.Snapshot, 10)
	d.Subscribe(func(_ context.Context, s types.Snapshot) { got <- s })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	mt := waitTicker(t, created)

	for i := uint64(1); i <= 5; i++ {
		fireAndWait(t, mt, got, i)
	}
	if tick := d.Snapshot().Tick; tick != 5 {
		t.Fatalf("Tick = %d, want 5", tick)
	}

	close(release)
	d.Stop()

	ticks := slow.get()
	if len(ticks) == 0 || ticks[len(ticks)-1] != 5 {
		t.Fatalf("slow observer got %v, want the latest tick 5 last", ticks)
	}
	if len(ticks) >= 5 {
		t.Errorf("slow observer got %v, expected older snapshots to be dropped", ticks)
	}
}

func TestSubscribeAsync_RealTickerKeepsCadence(t *testing.T) {
	const interval = 10 * time.Millisecond
	d, err := New(Config{Interval: interval, Trains: seedTrains()}, &countingSource{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	d.SubscribeAsync(func(context.Context, types.Snapshot) {
		time.Sleep(5 * interval)
	}, 4)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(40 * interval)
	d.Stop()

	// a synchronous 50ms observer would allow at most 8 ticks here
	if tick := d.Snapshot().Tick; tick < 15 {
		t.Errorf("Tick = %d after 40 intervals, slow observer stalled the loop", tick)
	}
}

func TestSubscribeAsync_StopDrainsQueue(t *testing.T) {
	d, created := newTestDriver(t, &countingSource{})

	gate := make(chan struct{})
	var rec recorder
	d.SubscribeAsync(func(_ context.Context, s types.Snapshot) {
		<-gate
		rec.add(s)
	}, 8)

	got := make(chan types.Snapshot, 10)
	d.Subscribe(func(_ context.Context, s types.Snapshot) { got <- s })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	mt := waitTicker(t, created)
	for i := uint64(1); i <= 3; i++ {
		fireAndWait(t, mt, got, i)
	}

	close(gate)
	d.Stop()

	ticks := rec.get()
	if len(ticks) != 3 || ticks[0] != 1 || ticks[1] != 2 || ticks[2] != 3 {
		t.Errorf("delivered %v, want [1 2 3]", ticks)
	}
}

func TestSubscribeAsync_Unsubscribe(t *testing.T) {
	d, created := newTestDriver(t, &countingSource{})

	var calls atomic.Int64
	unsubscribe := d.SubscribeAsync(func(context.Context, types.Snapshot) { calls.Add(1) }, 4)

	got := make(chan types.Snapshot, 10)
	d.Subscribe(func(_ context.Context, s types.Snapshot) { got <- s })

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()
	mt := waitTicker(t, created)

	fireAndWait(t, mt, got, 1)
	unsubscribe()
	if calls.Load() != 1 {
		t.Fatalf("calls = %d after unsubscribe drained, want 1", calls.Load())
	}

	fireAndWait(t, mt, got, 2)
	d.Stop()
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want no delivery after unsubscribe", calls.Load())
	}
}

func TestSubscribeAsync_AfterStop(t *testing.T) {
	d, _ := newTestDriver(t, &countingSource{})
	d.Stop()

	done := make(chan struct{})
	go func() {
		unsubscribe := d.SubscribeAsync(func(context.Context, types.Snapshot) {}, 1)
		unsubscribe()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SubscribeAsync after Stop blocked")
	}
}
