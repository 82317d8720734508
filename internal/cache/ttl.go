// Package cache provides an in-memory TTL cache with an injected clock and a
// bounded capacity. Each owner constructs its own instance; there is no
// process-wide cache.
package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fixed or stepping clock.
type Clock func() time.Time

// Config configures a TTL cache.
type Config struct {
	// TTL is how long an entry stays fresh after it is set.
	TTL time.Duration

	// Capacity bounds the number of entries. When full, the entry closest to
	// expiry is evicted. Zero or negative means unbounded.
	Capacity int

	// Clock defaults to time.Now.
	Clock Clock
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a concurrency-safe cache whose entries expire after a fixed TTL.
// Expired entries are dropped lazily on access and on insert.
type TTL[K comparable, V any] struct {
	ttl      time.Duration
	capacity int
	clock    Clock

	mu      sync.Mutex
	entries map[K]entry[V]
}

// New creates a TTL cache.
func New[K comparable, V any](cfg Config) *TTL[K, V] {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TTL[K, V]{
		ttl:      cfg.TTL,
		capacity: cfg.Capacity,
		clock:    clock,
		entries:  make(map[K]entry[V]),
	}
}

// Get returns the cached value for key if it has not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock().Before(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the configured TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	if _, exists := c.entries[key]; !exists && c.capacity > 0 && len(c.entries) >= c.capacity {
		c.purgeExpired(now)
		if len(c.entries) >= c.capacity {
			c.evictOldest()
		}
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Delete removes key from the cache.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, including ones that have expired
// but not yet been purged.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops all expired entries and returns how many were removed.
func (c *TTL[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpired(c.clock())
}

func (c *TTL[K, V]) purgeExpired(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// evictOldest removes the entry with the earliest expiry. With a single TTL
// that is also the least recently written entry.
func (c *TTL[K, V]) evictOldest() {
	var (
		oldestKey K
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
