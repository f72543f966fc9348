// Package iocache is for caching I/O calls across the memory, session and persisted tiers.
package iocache

import (
	"sync"

	"github.com/huangsam/devscore/internal/contract"
)

// CacheStoreManager manages the server memory tier and the persisted stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	memory       contract.Cache
	snapshots    contract.SnapshotStore
	events       contract.EventStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// NewCacheStoreManager wires existing tiers into a manager.
func NewCacheStoreManager(memory contract.Cache, snapshots contract.SnapshotStore, events contract.EventStore) *CacheStoreManager {
	return &CacheStoreManager{memory: memory, snapshots: snapshots, events: events}
}

// GetMemoryCache returns the process memory tier.
func (mgr *CacheStoreManager) GetMemoryCache() contract.Cache {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.memory
}

// GetSnapshotStore returns the persisted snapshot tier.
func (mgr *CacheStoreManager) GetSnapshotStore() contract.SnapshotStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.snapshots
}

// GetEventStore returns the scan event log.
func (mgr *CacheStoreManager) GetEventStore() contract.EventStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.events
}

// Close closes the persisted stores.
func (mgr *CacheStoreManager) Close() {
	mgr.Lock()
	defer mgr.Unlock()
	if mgr.snapshots != nil {
		_ = mgr.snapshots.Close()
	}
	if mgr.events != nil {
		_ = mgr.events.Close()
	}
}
