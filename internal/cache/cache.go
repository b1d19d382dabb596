// Package cache provides a small read-through cache with per-entry TTL.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache maps keys to values that expire after a TTL. Values are loaded on
// demand through GetOrRefresh. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	// gens counts invalidations per key; a load started under an older
	// generation is returned to its caller but not stored.
	gens map[K]uint64
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// New returns an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]entry[V])}
}

func (c *Cache[K, V]) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// GetOrRefresh returns the cached value for key, calling load to refresh
// it when missing or expired. A failed load leaves the cache untouched.
// Concurrent misses may each call load; the last result wins.
func (c *Cache[K, V]) GetOrRefresh(ctx context.Context, key K, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.Unlock()
	if ok && now.Before(e.expires) {
		return e.value, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return v, nil
	}
	if c.entries == nil {
		c.entries = make(map[K]entry[V])
	}
	c.entries[key] = entry[V]{value: v, expires: c.now().Add(ttl)}
	return v, nil
}

// Invalidate drops key so the next GetOrRefresh reloads it. Loads already
// in flight for key do not repopulate it.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	if c.gens == nil {
		c.gens = make(map[K]uint64)
	}
	c.gens[key]++
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
