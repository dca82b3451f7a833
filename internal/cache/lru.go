// Package cache wraps hashicorp/golang-lru/v2 with the hit/miss/eviction
// counters internal/cache/metrics_cache.go's hand-rolled MetricsCache
// tracks, so every LRU in the engine (parser trees, embeddings, symbol
// lookups) exposes the same small stats surface instead of reinventing
// counters per call site.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Stats is a point-in-time snapshot of a Cache's usage.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Len       int
}

// Cache is a fixed-capacity, least-recently-used cache with stats.
type Cache[K comparable, V any] struct {
	inner              *lru.Cache[K, V]
	hits, misses, evic int64
}

// New creates a Cache holding at most size entries. size must be positive.
func New[K comparable, V any](size int) (*Cache[K, V], error) {
	c := &Cache[K, V]{}
	inner, err := lru.NewWithEvict[K, V](size, func(K, V) {
		atomic.AddInt64(&c.evic, 1)
	})
	if err != nil {
		return nil, err
	}
	c.inner = inner
	return c, nil
}

// Get returns the cached value and whether it was present, updating the
// recency order and hit/miss counters.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		atomic.AddInt64(&c.hits, 1)
	} else {
		atomic.AddInt64(&c.misses, 1)
	}
	return v, ok
}

// Add inserts or updates an entry, evicting the least-recently-used entry
// if the cache is at capacity.
func (c *Cache[K, V]) Add(key K, value V) {
	c.inner.Add(key, value)
}

// Remove deletes an entry if present.
func (c *Cache[K, V]) Remove(key K) {
	c.inner.Remove(key)
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int { return c.inner.Len() }

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evic),
		Len:       c.inner.Len(),
	}
}
