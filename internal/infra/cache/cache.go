// Package cache provides a simple in-memory TTL cache. The ledger uses it
// for account lookups on the hot path; a Redis-backed implementation could
// replace it behind the same port.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL. Expired entries are
// dropped lazily on read and swept periodically in the background, so a key
// that is never touched again still gets reclaimed.
type InMemory[T any] struct {
	mu    sync.Mutex
	items map[string]entry[T]
	ttl   time.Duration
}

// New creates a new in-memory cache with the given TTL.
func New[T any](ttl time.Duration) *InMemory[T] {
	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
	}
	go c.sweep()
	return c
}

// Get retrieves a value from the cache. Returns false if not found or
// expired; an expired entry is removed on the spot.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.items, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// sweep periodically removes expired entries. The interval is floored so a
// short TTL (tests use milliseconds) doesn't spin the ticker.
func (c *InMemory[T]) sweep() {
	interval := c.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
		}
		c.mu.Unlock()
	}
}
