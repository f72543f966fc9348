package iocache

import (
	"bytes"
	"sync"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// memoryEntry is a value plus the time it was written.
type memoryEntry struct {
	value     []byte
	writtenAt time.Time
}

// MemoryCache is the server tier: process-wide, TTL-bounded and shared across requests.
// Expiry is checked on read only; there is no background sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var _ contract.Cache = &MemoryCache{} // Compile-time check

// NewMemoryCache creates a memory cache with the given TTL. A non-positive TTL uses the default of one hour.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(ttl, time.Now)
}

// NewMemoryCacheWithClock creates a memory cache that reads time from now.
func NewMemoryCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCache {
	if ttl <= 0 {
		ttl = contract.DefaultCacheTTL
	}
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the value for key. An expired entry is deleted and reported as a miss.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.writtenAt) > c.ttl {
		c.mu.Lock()
		// Only drop the entry we saw; a concurrent Set may have replaced it
		if cur, still := c.entries[key]; still && cur.writtenAt.Equal(e.writtenAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return bytes.Clone(e.value), true
}

// Set stores value under key with the current write timestamp.
func (c *MemoryCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: bytes.Clone(value), writtenAt: c.now()}
}

// Has is Get with the value discarded.
func (c *MemoryCache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
}

// InvalidateUser removes every category key of one user.
func (c *MemoryCache) InvalidateUser(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, category := range schema.CacheCategories {
		delete(c.entries, schema.CacheKey(category, username))
	}
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

// Status returns a summary of the memory tier.
func (c *MemoryCache) Status() schema.MemoryStatus {
	return schema.MemoryStatus{Entries: c.Len(), TTL: c.ttl}
}

// InvalidateUser deletes every category key of one user from any cache tier.
func InvalidateUser(cache contract.Cache, username string) {
	if mc, ok := cache.(*MemoryCache); ok {
		mc.InvalidateUser(username)
		return
	}
	for _, category := range schema.CacheCategories {
		cache.Delete(schema.CacheKey(category, username))
	}
}
