package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"prochain-bridge/internal/offline"
	"prochain-bridge/internal/remote"
	"prochain-bridge/internal/storage"
)

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...any) {
	l.t.Logf(format, args...)
}

type chain struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestGateway(t *testing.T) (*Gateway, *offline.Store) {
	t.Helper()
	store := offline.NewStore(storage.NewMemoryKV(), offline.Options{
		Online:        true,
		RetryInterval: time.Hour,
		Logger:        testLogger{t: t},
	})
	store.Initialize(nil)
	t.Cleanup(store.StopRetryLoop)
	return New(store, WithLogger(testLogger{t: t})), store
}

func TestWithOfflineFallback_RoundTrip(t *testing.T) {
	g, store := newTestGateway(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (*chain, error) {
		calls++
		return &chain{ID: "c1", Name: "Vocal Chain"}, nil
	}

	got, err := WithOfflineFallback(ctx, g, "chain:c1", fetch)
	if err != nil {
		t.Fatalf("online read: %v", err)
	}
	if got.Name != "Vocal Chain" {
		t.Errorf("online read = %+v", got)
	}
	if _, ok := store.GetCachedChain("chain:c1"); !ok {
		t.Fatal("online read was not cached")
	}

	store.SetOnline(false)

	got, err = WithOfflineFallback(ctx, g, "chain:c1", fetch)
	if err != nil {
		t.Fatalf("offline cached read: %v", err)
	}
	if got == nil || got.ID != "c1" {
		t.Errorf("offline cached read = %+v, want c1", got)
	}

	got, err = WithOfflineFallback(ctx, g, "chain:never", fetch)
	if err != nil {
		t.Fatalf("offline uncached read: %v", err)
	}
	if got != nil {
		t.Errorf("offline uncached read = %+v, want nil", got)
	}

	if calls != 1 {
		t.Errorf("remote calls = %d, want 1", calls)
	}
}

func TestWithOfflineFallback_FailureUsesCache(t *testing.T) {
	g, store := newTestGateway(t)
	ctx := context.Background()
	store.CacheChain("browse:all:popular:20", []chain{{ID: "c1"}, {ID: "c2"}})

	boom := errors.New("lookup couch: no such host")
	got, err := WithOfflineFallback(ctx, g, "browse:all:popular:20", func(ctx context.Context) ([]chain, error) {
		return nil, boom
	})
	if err != nil {
		t.Fatalf("fallback read: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("fallback read = %+v, want 2 cached chains", got)
	}
	if !store.Online() {
		t.Error("a failed read must not change the online belief")
	}

	_, err = WithOfflineFallback(ctx, g, "browse:none", func(ctx context.Context) ([]chain, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("uncached failure = %v, want original error", err)
	}
}

func TestWithOfflineFallback_NullResultNotCached(t *testing.T) {
	g, store := newTestGateway(t)

	got, err := WithOfflineFallback(context.Background(), g, "chain:missing", func(ctx context.Context) (*chain, error) {
		return nil, nil
	})
	if err != nil || got != nil {
		t.Fatalf("null read = %+v, %v", got, err)
	}
	if _, ok := store.GetCachedChain("chain:missing"); ok {
		t.Error("null result was cached")
	}
}

func TestWithWriteQueue_NetworkErrorClassification(t *testing.T) {
	transport := []string{
		"TypeError: Failed to fetch",
		"fetch failed",
		"NetworkError when attempting to fetch resource.",
		"Network request failed",
		"connect ECONNREFUSED 127.0.0.1:443",
		"getaddrinfo ENOTFOUND api.example.com",
		"dial tcp: lookup couch: no such host",
		"connect: network is unreachable",
	}

	for _, msg := range transport {
		t.Run(msg, func(t *testing.T) {
			g, store := newTestGateway(t)
			_, err := WithWriteQueue(context.Background(), g, "chain.rate", []any{"c1", "u1", 5}, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, errors.New(msg)
			})

			if !errors.Is(err, ErrQueued) {
				t.Fatalf("err = %v, want ErrQueued", err)
			}
			var qe *QueuedError
			if !errors.As(err, &qe) || qe.WriteID == "" {
				t.Errorf("err = %#v, want *QueuedError with write id", err)
			}
			if store.Online() {
				t.Error("store still online after network failure")
			}
			queue := store.Queue()
			if len(queue) != 1 {
				t.Fatalf("queue length = %d, want 1", len(queue))
			}
			if queue[0].Action != "chain.rate" || len(queue[0].Args) != 3 {
				t.Errorf("queued write = %+v", queue[0])
			}
		})
	}

	t.Run("validation error", func(t *testing.T) {
		g, store := newTestGateway(t)
		appErr := errors.New("validation failed: rating must be between 1 and 5")
		_, err := WithWriteQueue(context.Background(), g, "chain.rate", []any{"c1", "u1", 9}, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, appErr
		})
		if !errors.Is(err, appErr) {
			t.Errorf("err = %v, want original error", err)
		}
		if errors.Is(err, ErrQueued) {
			t.Error("validation error was queued")
		}
		if !store.Online() {
			t.Error("validation error changed the online belief")
		}
		if got := len(store.Queue()); got != 0 {
			t.Errorf("queue length = %d, want 0", got)
		}
	})

	t.Run("typed application error", func(t *testing.T) {
		g, store := newTestGateway(t)
		appErr := &remote.Error{Op: "chains.put", Kind: remote.Application, Status: 409, Err: errors.New("connection refused by policy")}
		_, err := WithWriteQueue(context.Background(), g, "chain.save", []any{"c1"}, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, appErr
		})
		if errors.Is(err, ErrQueued) || len(store.Queue()) != 0 || !store.Online() {
			t.Errorf("typed application error was treated as transport: %v", err)
		}
	})
}

func TestWithWriteQueue_OfflineSkipsRemote(t *testing.T) {
	g, store := newTestGateway(t)
	store.SetOnline(false)

	called := false
	_, err := WithWriteQueue(context.Background(), g, "user.follow", []any{"u1", "u2"}, func(ctx context.Context) (bool, error) {
		called = true
		return true, nil
	})
	if called {
		t.Error("remote called while offline")
	}
	var qe *QueuedError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *QueuedError", err)
	}
	if qe.Cause != nil {
		t.Errorf("cause = %v, want nil when already offline", qe.Cause)
	}
	if got := store.State(); got.PendingWrites != 1 || got.SyncStatus != offline.StatusOffline {
		t.Errorf("state = %+v", got)
	}
}

func TestWithWriteQueue_Success(t *testing.T) {
	g, store := newTestGateway(t)
	got, err := WithWriteQueue(context.Background(), g, "comment.add", []any{"c1"}, func(ctx context.Context) (string, error) {
		return "comment-1", nil
	})
	if err != nil || got != "comment-1" {
		t.Fatalf("WithWriteQueue() = %q, %v", got, err)
	}
	if len(store.Queue()) != 0 {
		t.Error("successful write was queued")
	}
}
