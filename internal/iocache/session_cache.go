package iocache

import (
	"bytes"
	"sync"

	"github.com/huangsam/devscore/internal/contract"
)

// SessionCache is the client tier. It is private to one session, has no TTL
// and is only ever refreshed by overwrite.
type SessionCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

var _ contract.Cache = &SessionCache{} // Compile-time check

// NewSessionCache creates an empty session cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{entries: make(map[string][]byte)}
}

// Get returns the stored value. Presence means fresh.
func (c *SessionCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

// Set replaces the value of key.
func (c *SessionCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = bytes.Clone(value)
}

// Has reports whether key is present.
func (c *SessionCache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key.
func (c *SessionCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear ends the session.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}
