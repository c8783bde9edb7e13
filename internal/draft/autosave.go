// File: internal/draft/autosave.go
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"marketplace_backend/internal/platform/metrics"

	"go.uber.org/zap"
)

// ErrClosed is returned by Save after Close.
var ErrClosed = errors.New("autosave cache is closed")

const lockStripes = 64

type pendingEntry struct {
	data  []byte
	gen   uint64
	timer *time.Timer
}

// Autosaver is a write-behind cache of wizard sessions. Saves land in memory
// immediately and reach the store once the key has been quiet for the
// debounce interval; Load always sees the latest Save.
type Autosaver struct {
	store    Store
	debounce time.Duration
	ttl      time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingEntry
	closed  bool

	// serializes store writes and deletes for a key
	keyLocks stripedMutex
}

// stripedMutex maps keys onto a fixed set of mutexes.
type stripedMutex [lockStripes]sync.Mutex

func (m *stripedMutex) For(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m[h.Sum32()%lockStripes]
}

// NewAutosaver creates an Autosaver. debounce <= 0 writes through.
func NewAutosaver(store Store, debounce, ttl time.Duration, logger *zap.Logger) *Autosaver {
	return &Autosaver{
		store:    store,
		debounce: debounce,
		ttl:      ttl,
		logger:   logger.Named("DraftAutosave"),
		pending:  make(map[string]*pendingEntry),
	}
}

// Save records s for key and schedules the store write.
func (a *Autosaver) Save(ctx context.Context, key string, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode draft session: %w", err)
	}

	if a.debounce <= 0 {
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if closed {
			return ErrClosed
		}
		l := a.keyLocks.For(key)
		l.Lock()
		defer l.Unlock()
		return a.write(ctx, key, data)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	e, ok := a.pending[key]
	if !ok {
		e = &pendingEntry{}
		a.pending[key] = e
	}
	e.data = data
	e.gen++
	gen := e.gen
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(a.debounce, func() {
		if err := a.flush(context.Background(), key, gen); err != nil {
			a.logger.Warn("Debounced draft write failed", zap.String("key", key), zap.Error(err))
		}
	})
	return nil
}

// Load returns the most recent session for key.
func (a *Autosaver) Load(ctx context.Context, key string) (*Session, error) {
	a.mu.Lock()
	var data []byte
	if e, ok := a.pending[key]; ok {
		data = e.data
	}
	a.mu.Unlock()

	if data == nil {
		var err error
		data, err = a.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode draft session: %w", err)
	}
	return &s, nil
}

// Flush writes the pending entry for key, if any, right away.
func (a *Autosaver) Flush(ctx context.Context, key string) error {
	return a.flush(ctx, key, 0)
}

// flush writes the pending entry for key. A non-zero gen only writes when the
// entry has not been replaced since that generation was scheduled.
func (a *Autosaver) flush(ctx context.Context, key string, gen uint64) error {
	l := a.keyLocks.For(key)
	l.Lock()
	defer l.Unlock()

	a.mu.Lock()
	e, ok := a.pending[key]
	if !ok || (gen != 0 && e.gen != gen) {
		a.mu.Unlock()
		return nil
	}
	data, written := e.data, e.gen
	a.mu.Unlock()

	if err := a.write(ctx, key, data); err != nil {
		return err
	}

	a.mu.Lock()
	if cur, ok := a.pending[key]; ok && cur == e && cur.gen == written {
		if cur.timer != nil {
			cur.timer.Stop()
		}
		delete(a.pending, key)
	}
	a.mu.Unlock()
	return nil
}

// FlushAll writes every pending entry.
func (a *Autosaver) FlushAll(ctx context.Context) error {
	a.mu.Lock()
	keys := make([]string, 0, len(a.pending))
	for k := range a.pending {
		keys = append(keys, k)
	}
	a.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if err := a.Flush(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// Clear drops any pending write for key and deletes the stored session.
func (a *Autosaver) Clear(ctx context.Context, key string) error {
	l := a.keyLocks.For(key)
	l.Lock()
	defer l.Unlock()

	a.mu.Lock()
	if e, ok := a.pending[key]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(a.pending, key)
	}
	a.mu.Unlock()

	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete draft session: %w", err)
	}
	return nil
}

// Close rejects further saves and flushes everything pending.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	err := a.FlushAll(ctx)

	a.mu.Lock()
	for _, e := range a.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	a.mu.Unlock()
	if err != nil {
		a.logger.Error("Failed to flush pending drafts on close", zap.Error(err))
	}
	return err
}

func (a *Autosaver) write(ctx context.Context, key string, data []byte) error {
	if err := a.store.Set(ctx, key, data, a.ttl); err != nil {
		metrics.DraftAutosaveWrites.WithLabelValues("error").Inc()
		return err
	}
	metrics.DraftAutosaveWrites.WithLabelValues("ok").Inc()
	return nil
}
