// Package offline buffers writes and caches reads while the catalog backend
// cannot be reached. It knows nothing about the operations it stores: writes
// are opaque (action, args) pairs replayed through a caller-supplied Executor.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"prochain-bridge/internal/storage"

	"github.com/google/uuid"
)

type Options struct {
	RetryInterval  time.Duration
	MaxQueueLength int
	MaxDeadLetters int
	// Online is the initial connectivity belief.
	Online bool
	Logger Logger
	Now    func() time.Time
	NewID  func() string
}

type Store struct {
	kv             storage.KV
	logger         Logger
	now            func() time.Time
	newID          func() string
	retryInterval  time.Duration
	maxQueueLength int
	maxDeadLetters int

	mu          sync.Mutex
	queue       []QueuedWrite
	cache       map[string]CacheEntry
	deadLetters []DeadLetter
	online      bool
	retrying    bool
	lastError   string
	initialized bool
	exec        Executor

	loopCancel context.CancelFunc
	loopDone   chan struct{}

	subscribers map[int]func(State)
	nextSubID   int
}

func NewStore(kv storage.KV, opts Options) *Store {
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.MaxQueueLength == 0 {
		opts.MaxQueueLength = DefaultMaxQueueLength
	}
	if opts.MaxDeadLetters == 0 {
		opts.MaxDeadLetters = DefaultMaxDeadLetters
	}
	return &Store{
		kv:             kv,
		logger:         opts.Logger,
		now:            opts.Now,
		newID:          opts.NewID,
		retryInterval:  opts.RetryInterval,
		maxQueueLength: opts.MaxQueueLength,
		maxDeadLetters: opts.MaxDeadLetters,
		queue:          []QueuedWrite{},
		cache:          make(map[string]CacheEntry),
		deadLetters:    []DeadLetter{},
		online:         opts.Online,
		subscribers:    make(map[int]func(State)),
	}
}

// Initialize loads persisted state and starts the retry loop. Calling it
// again is a no-op. Missing or corrupt persisted data yields empty
// collections.
func (s *Store) Initialize(exec Executor) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.exec = exec

	s.queue = []QueuedWrite{}
	s.loadLocked(queueKey, &s.queue)
	if s.queue == nil {
		s.queue = []QueuedWrite{}
	}
	s.cache = make(map[string]CacheEntry)
	s.loadLocked(cacheKey, &s.cache)
	if s.cache == nil {
		s.cache = make(map[string]CacheEntry)
	}
	s.deadLetters = []DeadLetter{}
	s.loadLocked(deadLetterKey, &s.deadLetters)
	if s.deadLetters == nil {
		s.deadLetters = []DeadLetter{}
	}

	if exec != nil && s.retryInterval > 0 {
		s.startLoopLocked()
	}
	s.logger.Printf("[offline] initialized: %d pending writes, %d cached entries", len(s.queue), len(s.cache))
	s.mu.Unlock()
	s.notify()
}

// StopRetryLoop cancels the background retry loop and waits for it to exit.
func (s *Store) StopRetryLoop() {
	s.mu.Lock()
	cancel := s.loopCancel
	done := s.loopDone
	s.loopCancel = nil
	s.loopDone = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Store) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.loopCancel = cancel
	s.loopDone = done
	exec := s.exec
	interval := s.retryInterval

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ProcessQueue(ctx, exec)
			}
		}
	}()
}

// EnqueueWrite appends a write to the end of the queue and persists it. It
// never fails; when the queue is full the oldest write is moved to the dead
// letters to make room.
func (s *Store) EnqueueWrite(action string, args ...any) QueuedWrite {
	encoded := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			s.logger.Printf("[offline] %s: argument %d is not serializable: %v", action, i, err)
			data = []byte("null")
		}
		encoded = append(encoded, data)
	}

	s.mu.Lock()
	write := QueuedWrite{
		ID:         s.newID(),
		Action:     action,
		Args:       encoded,
		Retries:    0,
		EnqueuedAt: s.now(),
	}
	evicted := false
	if s.maxQueueLength > 0 {
		for len(s.queue) >= s.maxQueueLength {
			oldest := s.queue[0]
			s.queue = s.queue[1:]
			s.addDeadLetterLocked(oldest, "evicted: queue full")
			s.logger.Printf("[offline] queue full, evicted write %s (%s)", oldest.ID, oldest.Action)
			evicted = true
		}
	}
	s.queue = append(s.queue, write)
	if evicted {
		s.persistLocked(deadLetterKey, s.deadLetters)
	}
	s.persistLocked(queueKey, s.queue)
	s.mu.Unlock()

	s.notify()
	return cloneWrite(write)
}

// SetOnline records the connectivity belief. It does not trigger a drain.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()
	if changed {
		s.logger.Printf("[offline] online=%v", online)
	}
	s.notify()
}

// Flush drains the queue with the executor given to Initialize.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	exec := s.exec
	s.mu.Unlock()
	s.ProcessQueue(ctx, exec)
}

// ProcessQueue attempts every queued write once, in enqueue order. It returns
// immediately when another drain is in flight or the store believes it is
// offline. Writes enqueued during the pass are left for the next one.
func (s *Store) ProcessQueue(ctx context.Context, exec Executor) {
	s.mu.Lock()
	if s.retrying || !s.online || exec == nil {
		s.mu.Unlock()
		return
	}
	s.retrying = true
	snapshot := make([]QueuedWrite, len(s.queue))
	for i, write := range s.queue {
		snapshot[i] = cloneWrite(write)
	}
	s.mu.Unlock()
	s.notify()

	for _, write := range snapshot {
		if ctx.Err() != nil {
			break
		}
		err := exec(ctx, write.Action, write.Args)
		if err != nil && ctx.Err() != nil {
			// teardown, not a failed attempt
			break
		}
		if errors.Is(err, ErrPaused) {
			s.logger.Printf("[offline] drain paused at %s: %v", write.ID, err)
			break
		}
		s.applyResult(write, err)
	}

	s.mu.Lock()
	s.persistLocked(queueKey, s.queue)
	s.persistLocked(deadLetterKey, s.deadLetters)
	s.retrying = false
	s.mu.Unlock()
	s.notify()
}

func (s *Store) applyResult(write QueuedWrite, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(write.ID)
	if idx < 0 {
		return
	}
	if err == nil {
		s.removeLocked(idx)
		return
	}

	live := &s.queue[idx]
	live.Retries++
	live.LastError = err.Error()
	if live.Retries < MaxRetries {
		return
	}
	dropped := *live
	s.removeLocked(idx)
	s.lastError = fmt.Sprintf("write %s (%s) dropped after %d retries: %s", dropped.ID, dropped.Action, MaxRetries, dropped.LastError)
	s.addDeadLetterLocked(dropped, fmt.Sprintf("dropped after %d retries", MaxRetries))
	s.logger.Printf("[offline] %s", s.lastError)
}

// CacheChain stores the latest successful read for key, evicting the oldest
// entry when the cache grows past MaxCacheEntries.
func (s *Store) CacheChain(key string, data any) {
	encoded, err := json.Marshal(data)
	if err != nil {
		s.logger.Printf("[offline] cache %s: payload is not serializable: %v", key, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = CacheEntry{
		Key:      key,
		Data:     encoded,
		CachedAt: s.now(),
	}
	for len(s.cache) > MaxCacheEntries {
		oldest, ok := s.oldestCacheKeyLocked(key)
		if !ok {
			break
		}
		delete(s.cache, oldest)
	}
	s.persistLocked(cacheKey, s.cache)
}

// ForgetCached removes key from the cache.
func (s *Store) ForgetCached(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache[key]; !ok {
		return
	}
	delete(s.cache, key)
	s.persistLocked(cacheKey, s.cache)
}

func (s *Store) GetCachedChain(key string) (CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[key]
	if !ok {
		return CacheEntry{}, false
	}
	entry.Data = append(json.RawMessage(nil), entry.Data...)
	return entry, true
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Queue returns a copy of the pending writes in enqueue order.
func (s *Store) Queue() []QueuedWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]QueuedWrite, len(s.queue))
	for i, write := range s.queue {
		out[i] = cloneWrite(write)
	}
	return out
}

func (s *Store) DeadLetters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetter, len(s.deadLetters))
	for i, letter := range s.deadLetters {
		out[i] = letter
		out[i].Write = cloneWrite(letter.Write)
	}
	return out
}

func (s *Store) ClearDeadLetters() {
	s.mu.Lock()
	s.deadLetters = []DeadLetter{}
	s.persistLocked(deadLetterKey, s.deadLetters)
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers fn to receive the state after every change. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	state := s.stateLocked()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(state)
	}
}

func (s *Store) stateLocked() State {
	status := StatusSynced
	switch {
	case !s.online:
		status = StatusOffline
	case s.retrying:
		status = StatusSyncing
	case len(s.queue) > 0:
		status = StatusPending
	}
	return State{
		Online:        s.online,
		SyncStatus:    status,
		Retrying:      s.retrying,
		PendingWrites: len(s.queue),
		LastError:     s.lastError,
		DeadLetters:   len(s.deadLetters),
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.queue {
		if s.queue[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(idx int) {
	s.queue = append(s.queue[:idx], s.queue[idx+1:]...)
}

func (s *Store) addDeadLetterLocked(write QueuedWrite, reason string) {
	s.deadLetters = append(s.deadLetters, DeadLetter{
		Write:     write,
		Reason:    reason,
		DroppedAt: s.now(),
	})
	if s.maxDeadLetters > 0 && len(s.deadLetters) > s.maxDeadLetters {
		s.deadLetters = append([]DeadLetter(nil), s.deadLetters[len(s.deadLetters)-s.maxDeadLetters:]...)
	}
}

func (s *Store) oldestCacheKeyLocked(keep string) (string, bool) {
	keys := make([]string, 0, len(s.cache))
	for key := range s.cache {
		if key != keep {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.cache[keys[i]], s.cache[keys[j]]
		if a.CachedAt.Equal(b.CachedAt) {
			return keys[i] < keys[j]
		}
		return a.CachedAt.Before(b.CachedAt)
	})
	return keys[0], true
}

func (s *Store) loadLocked(key string, into any) {
	data, err := s.kv.Get(context.Background(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Printf("[offline] load %s failed: %v", key, err)
		}
		return
	}
	if err := json.Unmarshal(data, into); err != nil {
		s.logger.Printf("[offline] %s is corrupt, starting empty: %v", key, err)
	}
}

func (s *Store) persistLocked(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Printf("[offline] encode %s failed: %v", key, err)
		return
	}
	if err := s.kv.Set(context.Background(), key, data); err != nil {
		s.logger.Printf("[offline] persist %s failed: %v", key, err)
	}
}

func cloneWrite(write QueuedWrite) QueuedWrite {
	args := make([]json.RawMessage, len(write.Args))
	for i, arg := range write.Args {
		args[i] = append(json.RawMessage(nil), arg...)
	}
	write.Args = args
	return write
}
