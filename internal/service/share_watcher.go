package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/offline"
)

const DefaultSharePollInterval = 30 * time.Second

// ShareWatcher polls the signed-in user's received shares and publishes an
// update whenever the pending count changes or unseen shares arrive.
type ShareWatcher struct {
	shares   *ShareService
	interval time.Duration
	publish  func(domain.ReceivedSharesUpdate)
	logger   offline.Logger

	mu      sync.Mutex
	userID  string
	seen    map[string]struct{}
	pending int
}

func NewShareWatcher(shares *ShareService, interval time.Duration, publish func(domain.ReceivedSharesUpdate), logger offline.Logger) *ShareWatcher {
	if interval <= 0 {
		interval = DefaultSharePollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ShareWatcher{
		shares:   shares,
		interval: interval,
		publish:  publish,
		logger:   logger,
		seen:     make(map[string]struct{}),
		pending:  -1,
	}
}

// Run polls once immediately and then every interval until ctx is done.
func (w *ShareWatcher) Run(ctx context.Context) error {
	w.poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *ShareWatcher) poll(ctx context.Context) {
	if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
		w.logger.Printf("[shares] poll failed: %v", err)
	}
}

// Poll fetches the received shares once. It reports whether an update was
// published. Signed-out users and offline reads with nothing cached are
// skipped without error.
func (w *ShareWatcher) Poll(ctx context.Context) (bool, error) {
	userID, err := currentUser(ctx, w.shares.sessions)
	if errors.Is(err, ErrUnauthenticated) {
		w.reset("")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	received, err := w.shares.Received(ctx)
	if err != nil {
		return false, err
	}
	if received == nil && !w.shares.gw.Store().Online() {
		return false, nil
	}

	w.mu.Lock()
	if userID != w.userID {
		w.resetLocked(userID)
	}
	current := make(map[string]struct{}, len(received))
	var fresh []*domain.Share
	for _, share := range received {
		if share.Status != domain.ShareStatusPending {
			continue
		}
		current[share.ID] = struct{}{}
		if _, ok := w.seen[share.ID]; !ok {
			fresh = append(fresh, share)
		}
	}
	changed := len(fresh) > 0 || len(current) != w.pending
	w.seen = current
	w.pending = len(current)
	w.mu.Unlock()

	if !changed {
		return false, nil
	}
	if len(fresh) > 0 {
		w.logger.Printf("[shares] %d new share(s), %d pending", len(fresh), len(current))
	}
	if w.publish != nil {
		w.publish(domain.ReceivedSharesUpdate{Pending: len(current), New: fresh})
	}
	return true, nil
}

func (w *ShareWatcher) reset(userID string) {
	w.mu.Lock()
	w.resetLocked(userID)
	w.mu.Unlock()
}

func (w *ShareWatcher) resetLocked(userID string) {
	w.userID = userID
	w.seen = make(map[string]struct{})
	w.pending = -1
}
