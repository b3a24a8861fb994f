package offline

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrPaused is returned by an Executor that cannot run any write right now,
// for example while nobody is signed in. The drain stops without charging a
// retry and the queue is kept as is.
var ErrPaused = errors.New("sync paused")

const (
	MaxCacheEntries = 100
	MaxRetries      = 5

	DefaultMaxQueueLength = 500
	DefaultMaxDeadLetters = 50
	DefaultRetryInterval  = 30 * time.Second
)

const (
	queueKey      = "offline.write_queue"
	cacheKey      = "offline.chain_cache"
	deadLetterKey = "offline.dead_letters"
)

type Status string

const (
	StatusSynced  Status = "synced"
	StatusPending Status = "pending"
	StatusOffline Status = "offline"
	StatusSyncing Status = "syncing"
)

// QueuedWrite is a mutating operation waiting to be replayed against the
// backend. Args holds one JSON document per positional argument.
type QueuedWrite struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Args       []json.RawMessage `json:"args"`
	Retries    int               `json:"retries"`
	LastError  string            `json:"last_error,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

type CacheEntry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
}

// DeadLetter is a write that left the queue without succeeding, either after
// exhausting its retries or because the queue overflowed.
type DeadLetter struct {
	Write     QueuedWrite `json:"write"`
	Reason    string      `json:"reason"`
	DroppedAt time.Time   `json:"dropped_at"`
}

type State struct {
	Online        bool   `json:"online"`
	SyncStatus    Status `json:"sync_status"`
	Retrying      bool   `json:"retrying"`
	PendingWrites int    `json:"pending_writes"`
	LastError     string `json:"last_error,omitempty"`
	DeadLetters   int    `json:"dead_letters"`
}

// Executor replays one queued write. A nil error removes the write from the
// queue.
type Executor func(ctx context.Context, action string, args []json.RawMessage) error

type Logger interface {
	Printf(format string, args ...any)
}
