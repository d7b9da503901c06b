package pms

import (
	"sync"
	"time"
)

// DefaultCacheTTL applies to read-mostly reference data (locations,
// operatories, providers) when no TTL is given.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry[T any] struct {
	data   T
	expiry time.Time
}

// Cache is a short-TTL in-memory result cache. Expiry is checked at read
// time; there is no background sweep — an expired entry is a miss and gets
// overwritten on the next Set. Each adapter instance owns one Cache per
// capability, so entries never cross tenants or entity types.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[T]
	now     func() time.Time
}

// NewCache creates an empty cache. now may be nil (wall clock).
func NewCache[T any](now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}
	return &Cache[T]{
		entries: make(map[string]cacheEntry[T]),
		now:     now,
	}
}

// Get returns the cached value for key, or ok=false when absent or expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiry) {
		var zero T
		return zero, false
	}
	return entry.data, true
}

// Set stores data under key for ttl. A non-positive ttl uses DefaultCacheTTL.
func (c *Cache[T]) Set(key string, data T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{data: data, expiry: c.now().Add(ttl)}
	c.mu.Unlock()
}
