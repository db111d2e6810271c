package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryItem is immutable once stored; a sliding refresh stores a new one.
type memoryItem[V any] struct {
	entry    Entry[V]
	absolute time.Time
	sliding  time.Duration
	expires  time.Time
}

// Memory is an in-process Cache backed by go-cache. Liveness is decided
// against the configured clock; go-cache's own expiration mirrors it so the
// cleanup janitor can reclaim entries nobody reads again.
type Memory[V any] struct {
	// mu serializes writers with the read-then-refresh in TryGet.
	mu    sync.Mutex
	items *gocache.Cache
	now   func() time.Time
}

// MemoryOption customises a Memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	now             func() time.Time
	cleanupInterval time.Duration
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) {
		c.now = now
	}
}

// WithCleanupInterval starts go-cache's janitor, which drops expired entries
// every interval. A non-positive interval disables it.
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		c.cleanupInterval = interval
	}
}

// NewMemory returns an empty in-process cache.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	cfg := memoryConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory[V]{
		items: gocache.New(gocache.NoExpiration, cfg.cleanupInterval),
		now:   cfg.now,
	}
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(key, Entry[V]{Value: value}, opts)
	return nil
}

func (m *Memory[V]) SetNegative(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(key, Entry[V]{Negative: true}, Options{AbsoluteTTL: ttl})
	return nil
}

func (m *Memory[V]) store(key string, entry Entry[V], opts Options) {
	now := m.now()
	absolute := absoluteDeadline(now, opts.AbsoluteTTL)
	m.put(key, &memoryItem[V]{
		entry:    entry,
		absolute: absolute,
		sliding:  opts.SlidingTTL,
		expires:  deadline(now, absolute, opts.SlidingTTL),
	}, now)
}

// put must be called with mu held.
func (m *Memory[V]) put(key string, it *memoryItem[V], now time.Time) {
	ttl := gocache.NoExpiration
	if !it.expires.IsZero() {
		ttl = it.expires.Sub(now)
		if ttl <= 0 {
			m.items.Delete(key)
			return
		}
	}
	m.items.Set(key, it, ttl)
}

func (m *Memory[V]) TryGet(_ context.Context, key string) (Entry[V], bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.items.Get(key)
	if !ok {
		return Entry[V]{}, false, nil
	}
	it := raw.(*memoryItem[V])

	now := m.now()
	if it.expired(now) {
		m.items.Delete(key)
		return Entry[V]{}, false, nil
	}

	if it.sliding > 0 {
		refreshed := *it
		refreshed.expires = deadline(now, it.absolute, it.sliding)
		m.put(key, &refreshed, now)
	}
	return it.entry, true, nil
}

func (m *Memory[V]) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	m.items.Delete(key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones the
// janitor has not collected yet.
func (m *Memory[V]) Len() int {
	return m.items.ItemCount()
}

// DeleteExpired drops every entry that is no longer live by the configured
// clock and returns how many were removed.
func (m *Memory[V]) DeleteExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, item := range m.items.Items() {
		if it, ok := item.Object.(*memoryItem[V]); ok && it.expired(now) {
			m.items.Delete(key)
			removed++
		}
	}
	return removed
}

func (it *memoryItem[V]) expired(now time.Time) bool {
	return !it.expires.IsZero() && !now.Before(it.expires)
}
