// Package cache provides a thread-safe get-or-compute cache for short-lived
// derived values such as signed access URLs. Entries expire after a caller
// supplied TTL; the TTL must be chosen as a fraction of the true downstream
// expiry of the value so the cache never outlives what it caches.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solhart/mediakit-api/internal/platform/metrics"
)

// Stats holds a cache's hit/miss counters.
type Stats struct {
	Name   string `json:"name"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// entry is a computed (or in-flight) cache value. Entries are created on
// miss, replaced on expiry, and never updated in place.
type entry[V any] struct {
	// ready is closed once value/err are set.
	ready     chan struct{}
	value     V
	err       error
	expiresAt time.Time
}

// Cache is a TTL-bounded single-key lookup cache with at-most-one
// computation per key: under concurrent misses for the same key exactly one
// caller runs compute while the rest block and share the result. Callers
// for different keys never block each other.
type Cache[V any] struct {
	name string

	mu      sync.Mutex
	entries map[string]*entry[V]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty cache.
func New[V any](name string) *Cache[V] {
	return &Cache[V]{
		name:    name,
		entries: make(map[string]*entry[V]),
	}
}

// Name returns the cache's registry name.
func (c *Cache[V]) Name() string {
	return c.name
}

// GetOrCompute returns the cached value for key when fresh, and otherwise
// runs compute exactly once for all concurrent callers of that key. A failed
// compute is not cached: the error is shared with callers already waiting,
// and the next caller recomputes.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (V, error)) (V, error) {
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		select {
		case <-e.ready:
			if now.Before(e.expiresAt) {
				c.mu.Unlock()
				c.hits.Add(1)
				metrics.CacheLookupsTotal.WithLabelValues(c.name, "hit").Inc()
				return e.value, nil
			}
			// Expired: fall through and replace the entry.
		default:
			// Another caller is computing this key; wait for it.
			c.mu.Unlock()
			c.misses.Add(1)
			metrics.CacheLookupsTotal.WithLabelValues(c.name, "miss").Inc()
			select {
			case <-e.ready:
				return e.value, e.err
			case <-ctx.Done():
				var zero V
				return zero, ctx.Err()
			}
		}
	}

	e := &entry[V]{ready: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	c.misses.Add(1)
	metrics.CacheLookupsTotal.WithLabelValues(c.name, "miss").Inc()

	value, err := compute(ctx)

	c.mu.Lock()
	if err != nil {
		// Drop the failed entry so the next caller retries, unless
		// Invalidate or a Clear already replaced it.
		if c.entries[key] == e {
			delete(c.entries, key)
		}
	} else {
		e.value = value
		e.expiresAt = time.Now().Add(ttl)
	}
	e.err = err
	c.mu.Unlock()
	close(e.ready)

	return value, err
}

// Invalidate removes the entry for key, forcing the next lookup to
// recompute.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.mu.Unlock()
}

// Stats returns the cache's counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()
	return Stats{
		Name:   c.name,
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
	}
}
