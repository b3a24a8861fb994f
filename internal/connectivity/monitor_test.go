package connectivity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"prochain-bridge/internal/offline"
	"prochain-bridge/internal/storage"
)

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...any) {
	l.t.Logf(format, args...)
}

type fakePinger struct {
	mu      sync.Mutex
	results []bool
	calls   int
}

func (p *fakePinger) Ping(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	if !p.results[idx] {
		return false, errors.New("dial tcp 127.0.0.1:5984: connect: connection refused")
	}
	return true, nil
}

func newStore(t *testing.T, exec offline.Executor) *offline.Store {
	t.Helper()
	store := offline.NewStore(storage.NewMemoryKV(), offline.Options{
		Online:        true,
		RetryInterval: time.Hour,
		Logger:        testLogger{t: t},
	})
	store.Initialize(exec)
	t.Cleanup(store.StopRetryLoop)
	return store
}

func TestMonitor_Transitions(t *testing.T) {
	var replayed int
	store := newStore(t, func(ctx context.Context, action string, args []json.RawMessage) error {
		replayed++
		return nil
	})
	pinger := &fakePinger{results: []bool{true, false, false, true}}
	monitor := NewMonitor(pinger, store, Options{Logger: testLogger{t: t}})
	ctx := context.Background()

	if !monitor.Check(ctx) || !store.Online() {
		t.Fatal("initial reachable observation should leave the store online")
	}

	monitor.Check(ctx)
	if store.Online() {
		t.Error("store online after unreachable observation")
	}
	store.EnqueueWrite("chain.save", "c1")
	monitor.Check(ctx)

	if !monitor.Check(ctx) {
		t.Fatal("expected reachable")
	}
	if !store.Online() {
		t.Error("reachable observation did not restore online")
	}
	if replayed != 1 {
		t.Errorf("replayed writes = %d, want 1", replayed)
	}
	if got := store.State().PendingWrites; got != 0 {
		t.Errorf("pending writes = %d, want 0", got)
	}
}

func TestMonitor_RecoversFromWriteDetectedOutage(t *testing.T) {
	var replayed int
	store := newStore(t, func(ctx context.Context, action string, args []json.RawMessage) error {
		replayed++
		return nil
	})
	monitor := NewMonitor(&fakePinger{results: []bool{true}}, store, Options{Logger: testLogger{t: t}})
	ctx := context.Background()

	monitor.Check(ctx)

	// a failed write flips the store offline while pings keep succeeding
	store.SetOnline(false)
	store.EnqueueWrite("chain.save", "c1")
	store.EnqueueWrite("social.like", "c1", true)

	// Flush alone is a no-op while the store believes it is offline
	store.Flush(ctx)
	if replayed != 0 {
		t.Fatalf("replayed writes while offline = %d, want 0", replayed)
	}

	if !monitor.Check(ctx) {
		t.Fatal("expected reachable")
	}
	if !store.Online() {
		t.Fatal("steady reachable observation left the store offline")
	}
	if replayed != 2 {
		t.Errorf("replayed writes = %d, want 2", replayed)
	}
	if got := len(store.Queue()); got != 0 {
		t.Errorf("queue length = %d, want 0", got)
	}
}

func TestMonitor_Retry(t *testing.T) {
	t.Run("restores online before draining", func(t *testing.T) {
		var replayed int
		store := newStore(t, func(ctx context.Context, action string, args []json.RawMessage) error {
			replayed++
			return nil
		})
		monitor := NewMonitor(&fakePinger{results: []bool{true}}, store, Options{Logger: testLogger{t: t}})
		ctx := context.Background()
		monitor.Check(ctx)

		store.SetOnline(false)
		store.EnqueueWrite("chain.save", "c1")
		monitor.Retry(ctx)

		if !store.Online() || replayed != 1 {
			t.Errorf("online = %v, replayed = %d, want true, 1", store.Online(), replayed)
		}
	})

	t.Run("drains once when already online", func(t *testing.T) {
		var attempts int
		store := newStore(t, func(ctx context.Context, action string, args []json.RawMessage) error {
			attempts++
			return errors.New("conflict")
		})
		monitor := NewMonitor(&fakePinger{results: []bool{true}}, store, Options{Logger: testLogger{t: t}})
		ctx := context.Background()
		monitor.Check(ctx)

		store.EnqueueWrite("chain.save", "c1")
		monitor.Retry(ctx)

		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
		if q := store.Queue(); len(q) != 1 || q[0].Retries != 1 {
			t.Errorf("queue = %+v, want one write with one retry", q)
		}
	})

	t.Run("unreachable leaves the queue alone", func(t *testing.T) {
		var attempts int
		store := newStore(t, func(ctx context.Context, action string, args []json.RawMessage) error {
			attempts++
			return nil
		})
		monitor := NewMonitor(&fakePinger{results: []bool{false}}, store, Options{Logger: testLogger{t: t}})

		store.EnqueueWrite("chain.save", "c1")
		monitor.Retry(context.Background())

		if store.Online() || attempts != 0 || len(store.Queue()) != 1 {
			t.Errorf("online = %v, attempts = %d, queued = %d", store.Online(), attempts, len(store.Queue()))
		}
	})
}

func TestMonitor_InitialUnreachableSeedsOffline(t *testing.T) {
	store := newStore(t, nil)
	monitor := NewMonitor(&fakePinger{results: []bool{false}}, store, Options{Logger: testLogger{t: t}})

	if monitor.Check(context.Background()) {
		t.Fatal("expected unreachable")
	}
	if store.Online() {
		t.Error("store online after unreachable first observation")
	}
}

func TestMonitor_RunStopsWithContext(t *testing.T) {
	store := newStore(t, nil)
	pinger := &fakePinger{results: []bool{true}}
	monitor := NewMonitor(pinger, store, Options{Interval: 5 * time.Millisecond, Logger: testLogger{t: t}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	pinger.mu.Lock()
	calls := pinger.calls
	pinger.mu.Unlock()
	if calls < 2 {
		t.Errorf("ping calls = %d, want at least 2", calls)
	}
}
