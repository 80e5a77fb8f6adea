// Package cache is a small time-boxed cache: entries expire after a TTL
// and GetOrRefresh re-fetches them through the caller's loader, so the
// staleness policy is testable in isolation.
package cache

import (
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe cache whose entries live for a fixed duration.
type TTL[K comparable, V any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[K]item[V]
	now   func() time.Time
}

// NewTTL creates a cache whose entries expire ttl after they were stored.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		ttl:   ttl,
		items: make(map[K]item[V]),
		now:   time.Now,
	}
}

// Get returns the cached value for key if it exists and has not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		var zero V
		delete(c.items, key)
		return zero, false
	}
	return it.value, true
}

// Set stores value under key, restarting its TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = item[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// GetOrRefresh returns the cached value, or loads, stores and returns a
// fresh one when the entry is missing or stale. A loader error leaves the
// cache untouched.
func (c *TTL[K, V]) GetOrRefresh(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// SetClock overrides the cache's time source. Test hook.
func (c *TTL[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
