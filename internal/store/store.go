// Package store persists homogeneous record collections behind a sliding
// expiry window.
//
// Every collection lives under one namespaced key and is written as a single
// JSON envelope:
//
//	{"items": [...], "expiresAt": <epoch millis>}
//
// A read after expiresAt behaves as if nothing was stored and yields the
// caller's default. Every write replaces the whole envelope and re-stamps
// expiresAt = now + TTL. Content that fails to decode is treated exactly like
// an absent key; callers never see a decode error.
//
// The byte-level persistence is delegated to a [Backend]: [NewMemoryBackend]
// for tests and ephemeral runs, [OpenSQLite] for a durable local file, and
// [NewRedisBackend] for a shared cache.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-safety-training/internal/observability"
)

// DefaultTTL is the expiry window applied when Options.TTL is unset.
const DefaultTTL = 3 * time.Hour

// Backend stores raw envelope bytes by key.
type Backend interface {
	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value at key. ttl is the logical expiry window, which
	// backends with native expiry may use to reclaim space.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Record is an entity with an identifier unique within its collection.
// WithID returns a copy of the record carrying the given id.
type Record[T any] interface {
	RecordID() string
	WithID(id string) T
}

// Options configures a Store.
type Options struct {
	TTL     time.Duration
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Store owns every persisted collection. Collections are opened from it with
// [Open] and share its backend, clock, and per-key write locks.
type Store struct {
	backend Backend
	ttl     time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Store over the given backend.
func New(backend Backend, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		backend: backend,
		ttl:     opts.TTL,
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// TTL reports the expiry window applied on every write.
func (s *Store) TTL() time.Duration { return s.ttl }

// Key builds a namespaced collection key, e.g. Key("badges", "learner-7")
// yields "badges:learner-7". An empty scope yields the bare kind.
func Key(kind, scope string) string {
	if scope == "" {
		return kind
	}
	return kind + ":" + scope
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Store) observe(result string) {
	if s.metrics != nil {
		s.metrics.StoreReads.WithLabelValues(result).Inc()
	}
}

type envelope[T any] struct {
	Items     []T   `json:"items"`
	ExpiresAt int64 `json:"expiresAt"`
}

// Collection is a typed handle on one keyed collection.
type Collection[T Record[T]] struct {
	store *Store
	key   string
}

// Open returns a typed handle on the collection stored at key.
func Open[T Record[T]](s *Store, key string) *Collection[T] {
	return &Collection[T]{store: s, key: key}
}

// Key returns the collection's storage key.
func (c *Collection[T]) Key() string { return c.key }

// Read returns the stored items, or def when the collection is absent,
// expired, or unreadable.
func (c *Collection[T]) Read(ctx context.Context, def []T) []T {
	items, ok, stale := c.load(ctx)
	if stale {
		c.purge(ctx)
	}
	if !ok {
		return def
	}
	return items
}

// load decodes the stored envelope. stale reports a corrupt or expired entry
// that is still occupying the backend.
func (c *Collection[T]) load(ctx context.Context) (items []T, ok, stale bool) {
	s := c.store
	raw, found, err := s.backend.Get(ctx, c.key)
	if err != nil {
		s.logger.Warn("collection read failed, using default", "key", c.key, "error", err)
		s.observe("error")
		return nil, false, false
	}
	if !found {
		s.observe("miss")
		return nil, false, false
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn("corrupt collection, using default", "key", c.key, "error", err)
		s.observe("corrupt")
		return nil, false, true
	}
	if s.clock.Now().UnixMilli() > env.ExpiresAt {
		s.observe("expired")
		return nil, false, true
	}
	s.observe("hit")
	if env.Items == nil {
		env.Items = []T{}
	}
	return env.Items, true, false
}

// purge deletes a stale entry. It re-checks under the key lock so a write
// that landed after the unlocked read is kept.
func (c *Collection[T]) purge(ctx context.Context) {
	l := c.store.lockFor(c.key)
	l.Lock()
	defer l.Unlock()

	if _, _, stale := c.load(ctx); stale {
		c.drop(ctx)
	}
}

// drop deletes the entry. Callers hold the key lock.
func (c *Collection[T]) drop(ctx context.Context) {
	if err := c.store.backend.Delete(ctx, c.key); err != nil {
		c.store.logger.Warn("stale collection delete failed", "key", c.key, "error", err)
		return
	}
	c.store.logger.Debug("stale collection dropped", "key", c.key)
}

// Write replaces the whole collection and resets its expiry.
func (c *Collection[T]) Write(ctx context.Context, items []T) error {
	l := c.store.lockFor(c.key)
	l.Lock()
	defer l.Unlock()
	return c.write(ctx, items)
}

func (c *Collection[T]) write(ctx context.Context, items []T) error {
	s := c.store
	if items == nil {
		items = []T{}
	}
	env := envelope[T]{
		Items:     items,
		ExpiresAt: s.clock.Now().Add(s.ttl).UnixMilli(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", c.key, err)
	}
	if err := s.backend.Set(ctx, c.key, data, s.ttl); err != nil {
		return fmt.Errorf("write collection %s: %w", c.key, err)
	}
	return nil
}

// Mutate performs an atomic read-modify-write. fn receives the current items
// (or def) and returns the new items plus whether anything changed; unchanged
// collections are not rewritten.
func (c *Collection[T]) Mutate(ctx context.Context, def []T, fn func(items []T) ([]T, bool)) error {
	l := c.store.lockFor(c.key)
	l.Lock()
	defer l.Unlock()

	current, ok, stale := c.load(ctx)
	if !ok {
		current = append([]T(nil), def...)
	}
	next, changed := fn(current)
	if !changed {
		if stale {
			c.drop(ctx)
		}
		return nil
	}
	return c.write(ctx, next)
}

// Create assigns a fresh id to item, appends it, and persists the collection.
func (c *Collection[T]) Create(ctx context.Context, item T) (T, error) {
	created := item.WithID(uuid.NewString())
	err := c.Mutate(ctx, nil, func(items []T) ([]T, bool) {
		return append(items, created), true
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return created, nil
}

// Update applies fn to the record with the given id. It reports false, and
// writes nothing, when no such record exists.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(T) T) (bool, error) {
	var found bool
	err := c.Mutate(ctx, nil, func(items []T) ([]T, bool) {
		for i := range items {
			if items[i].RecordID() == id {
				// The id is not editable through an update.
				items[i] = fn(items[i]).WithID(id)
				found = true
				return items, true
			}
		}
		return items, false
	})
	return found, err
}

// Remove deletes the record with the given id. It reports false when no such
// record exists.
func (c *Collection[T]) Remove(ctx context.Context, id string) (bool, error) {
	var found bool
	err := c.Mutate(ctx, nil, func(items []T) ([]T, bool) {
		for i := range items {
			if items[i].RecordID() == id {
				found = true
				return append(items[:i], items[i+1:]...), true
			}
		}
		return items, false
	})
	return found, err
}

// Find returns the record with the given id from the live collection.
func (c *Collection[T]) Find(ctx context.Context, id string) (T, bool) {
	for _, item := range c.Read(ctx, nil) {
		if item.RecordID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}
