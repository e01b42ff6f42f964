package search

import (
	"context"
	"sync"
	"time"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
	"github.com/sathyapriyan07/metamovies-sub001/internal/metrics"
)

// CacheBackend is an optional shared layer behind the in-memory map.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]domain.Item, bool, error)
	Set(ctx context.Context, key string, items []domain.Item) error
}

type cacheEntry struct {
	items    []domain.Item
	storedAt time.Time
}

// ResultCache memoizes the last successful result list per key. Entries never
// expire; a key is only overwritten by a newer successful fetch. The map is
// unbounded for the lifetime of its owner (one live session, or the process).
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	backend CacheBackend
	now     func() time.Time
}

type CacheOption func(*ResultCache)

func WithCacheBackend(backend CacheBackend) CacheOption {
	return func(c *ResultCache) {
		c.backend = backend
	}
}

func WithCacheClock(clock Clock) CacheOption {
	return func(c *ResultCache) {
		if clock != nil {
			c.now = clock.Now
		}
	}
}

func NewResultCache(opts ...CacheOption) *ResultCache {
	c := &ResultCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ResultCache) Get(ctx context.Context, key string) ([]domain.Item, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
		return cloneItems(entry.items), true
	}

	if c.backend != nil {
		items, found, err := c.backend.Get(ctx, key)
		if err == nil && found {
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			c.storeLocal(key, items)
			return cloneItems(items), true
		}
	}

	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (c *ResultCache) Put(ctx context.Context, key string, items []domain.Item) {
	c.storeLocal(key, items)
	if c.backend != nil {
		_ = c.backend.Set(ctx, key, items)
	}
}

// Reset drops every local entry and rotates the backend when it supports it.
func (c *ResultCache) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	if rotator, ok := c.backend.(Rotator); ok {
		return rotator.Rotate(ctx)
	}
	return nil
}

// StoredAt reports when the entry for key was last written.
func (c *ResultCache) StoredAt(key string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry.storedAt, ok
}

func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResultCache) storeLocal(key string, items []domain.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		items:    cloneItems(items),
		storedAt: c.now(),
	}
}

func cloneItems(items []domain.Item) []domain.Item {
	if items == nil {
		return []domain.Item{}
	}
	out := make([]domain.Item, len(items))
	for i, item := range items {
		copied := item
		if item.ReleaseDate != nil {
			value := *item.ReleaseDate
			copied.ReleaseDate = &value
		}
		out[i] = copied
	}
	return out
}
