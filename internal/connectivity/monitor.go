// Package connectivity turns backend reachability into the offline store's
// online belief.
package connectivity

import (
	"context"
	"log"
	"sync"
	"time"

	"prochain-bridge/internal/offline"
)

const (
	DefaultInterval = 15 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// Pinger is satisfied by *kivik.Client.
type Pinger interface {
	Ping(ctx context.Context) (bool, error)
}

type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   offline.Logger
}

// Monitor reconciles the store with every observation, so an outage the
// gateway detected from a failed write ends at the next successful ping.
// Transitions are logged once.
type Monitor struct {
	pinger   Pinger
	store    *offline.Store
	interval time.Duration
	timeout  time.Duration
	logger   offline.Logger

	mu        sync.Mutex
	observed  bool
	reachable bool
}

func NewMonitor(pinger Pinger, store *offline.Store, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Monitor{
		pinger:   pinger,
		store:    store,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// Run checks once immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check pings the backend once and brings the store's online belief in
// line with the answer, flushing the queue when the store comes back
// online. It reports whether the backend answered.
func (m *Monitor) Check(ctx context.Context) bool {
	reachable, _ := m.check(ctx)
	return reachable
}

// Retry is the manual retry path: it pings first so a store stuck offline
// is restored before the queue is drained, then drains once.
func (m *Monitor) Retry(ctx context.Context) {
	reachable, flushed := m.check(ctx)
	if reachable && !flushed {
		m.store.Flush(ctx)
	}
}

func (m *Monitor) check(ctx context.Context) (reachable, flushed bool) {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	ok, err := m.pinger.Ping(pingCtx)
	cancel()
	if ctx.Err() != nil {
		return false, false
	}
	reachable = ok && err == nil

	m.mu.Lock()
	changed := !m.observed || reachable != m.reachable
	m.observed = true
	m.reachable = reachable
	m.mu.Unlock()

	if changed {
		switch {
		case reachable:
			m.logger.Printf("[connectivity] backend reachable")
		case err != nil:
			m.logger.Printf("[connectivity] backend unreachable: %v", err)
		default:
			m.logger.Printf("[connectivity] backend unreachable")
		}
	}

	online := m.store.Online()
	switch {
	case reachable && !online:
		m.store.SetOnline(true)
		m.store.Flush(ctx)
		flushed = true
	case reachable && changed:
		m.store.Flush(ctx)
		flushed = true
	case !reachable && online:
		m.store.SetOnline(false)
	}
	return reachable, flushed
}
