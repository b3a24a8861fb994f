// Package gateway makes remote catalog calls offline tolerant. Reads fall
// back to the offline cache, writes that cannot reach the backend are queued
// for replay.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"prochain-bridge/internal/offline"
	"prochain-bridge/internal/remote"
)

// ErrQueued is matched by every *QueuedError.
var ErrQueued = errors.New("offline, queued for retry")

// QueuedError reports that a write was saved locally and will be replayed.
type QueuedError struct {
	WriteID string
	Action  string
	// Cause is the transport failure that triggered queueing, nil when the
	// store was already offline.
	Cause error
}

func (e *QueuedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s queued as %s: %v", ErrQueued, e.Action, e.WriteID, e.Cause)
	}
	return fmt.Sprintf("%s: %s queued as %s", ErrQueued, e.Action, e.WriteID)
}

func (e *QueuedError) Is(target error) bool {
	return target == ErrQueued
}

func (e *QueuedError) Unwrap() error {
	return e.Cause
}

type Option func(*Gateway)

func WithLogger(logger offline.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithClassifier replaces remote.IsTransport as the test for failures that
// should be queued.
func WithClassifier(isTransport func(error) bool) Option {
	return func(g *Gateway) {
		g.isTransport = isTransport
	}
}

type Gateway struct {
	store       *offline.Store
	logger      offline.Logger
	isTransport func(error) bool
}

func New(store *offline.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:       store,
		logger:      log.Default(),
		isTransport: remote.IsTransport,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Store() *offline.Store {
	return g.store
}

// WithOfflineFallback runs remoteCall while online and caches non-null
// results under cacheKey. A failed call is answered from the cache when
// possible. While offline remoteCall is never invoked: the cached value is
// returned, or the zero value of T with a nil error.
func WithOfflineFallback[T any](ctx context.Context, g *Gateway, cacheKey string, remoteCall func(context.Context) (T, error)) (T, error) {
	var zero T

	if !g.store.Online() {
		if cached, ok := cachedValue[T](g, cacheKey); ok {
			return cached, nil
		}
		return zero, nil
	}

	result, err := remoteCall(ctx)
	if err != nil {
		if cached, ok := cachedValue[T](g, cacheKey); ok {
			g.logger.Printf("[gateway] %s: serving cached value after error: %v", cacheKey, err)
			return cached, nil
		}
		return zero, err
	}

	if data, merr := json.Marshal(result); merr == nil && !bytes.Equal(data, []byte("null")) {
		g.store.CacheChain(cacheKey, json.RawMessage(data))
	}
	return result, nil
}

// WithWriteQueue runs remoteCall while online. When the store is offline,
// or the call fails with a transport error, the write is queued as
// (action, args), the store is marked offline and a *QueuedError is
// returned. Any other failure is returned unchanged.
func WithWriteQueue[T any](ctx context.Context, g *Gateway, action string, args []any, remoteCall func(context.Context) (T, error)) (T, error) {
	var zero T

	if !g.store.Online() {
		write := g.store.EnqueueWrite(action, args...)
		g.logger.Printf("[gateway] offline, queued %s as %s", action, write.ID)
		return zero, &QueuedError{WriteID: write.ID, Action: action}
	}

	result, err := remoteCall(ctx)
	if err == nil {
		return result, nil
	}
	if !g.isTransport(err) {
		return zero, err
	}

	write := g.store.EnqueueWrite(action, args...)
	g.store.SetOnline(false)
	g.logger.Printf("[gateway] %s failed with network error, queued as %s: %v", action, write.ID, err)
	return zero, &QueuedError{WriteID: write.ID, Action: action, Cause: err}
}

func cachedValue[T any](g *Gateway, key string) (T, bool) {
	var out T
	entry, ok := g.store.GetCachedChain(key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(entry.Data, &out); err != nil {
		g.logger.Printf("[gateway] cached value for %s does not decode: %v", key, err)
		return out, false
	}
	return out, true
}
