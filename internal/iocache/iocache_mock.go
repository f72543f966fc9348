package iocache

import (
	"context"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetMemoryCache implements the CacheManager interface.
func (m *MockCacheManager) GetMemoryCache() contract.Cache {
	ret := m.Called()
	cache, _ := ret.Get(0).(contract.Cache)
	return cache
}

// GetSnapshotStore implements the CacheManager interface.
func (m *MockCacheManager) GetSnapshotStore() contract.SnapshotStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.SnapshotStore)
	return store
}

// GetEventStore implements the CacheManager interface.
func (m *MockCacheManager) GetEventStore() contract.EventStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.EventStore)
	return store
}

// MockSnapshotStore is a mock implementation of SnapshotStore for testing.
type MockSnapshotStore struct {
	mock.Mock
}

var _ contract.SnapshotStore = &MockSnapshotStore{} // Compile-time check

// Get implements the SnapshotStore interface.
func (m *MockSnapshotStore) Get(ctx context.Context, userID string) (*schema.Snapshot, error) {
	args := m.Called(ctx, userID)
	snap, _ := args.Get(0).(*schema.Snapshot)
	return snap, args.Error(1)
}

// Upsert implements the SnapshotStore interface.
func (m *MockSnapshotStore) Upsert(ctx context.Context, snap *schema.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

// ClearComponents implements the SnapshotStore interface.
func (m *MockSnapshotStore) ClearComponents(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// ListScores implements the SnapshotStore interface.
func (m *MockSnapshotStore) ListScores(ctx context.Context, excludeUserID string) ([]float64, error) {
	args := m.Called(ctx, excludeUserID)
	scores, _ := args.Get(0).([]float64)
	return scores, args.Error(1)
}

// ListSnapshots implements the SnapshotStore interface.
func (m *MockSnapshotStore) ListSnapshots(ctx context.Context) ([]schema.Snapshot, error) {
	args := m.Called(ctx)
	snaps, _ := args.Get(0).([]schema.Snapshot)
	return snaps, args.Error(1)
}

// GetStatus implements the SnapshotStore interface.
func (m *MockSnapshotStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the SnapshotStore interface.
func (m *MockSnapshotStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockEventStore is a mock implementation of EventStore for testing.
type MockEventStore struct {
	mock.Mock
}

var _ contract.EventStore = &MockEventStore{} // Compile-time check

// Append implements the EventStore interface.
func (m *MockEventStore) Append(ctx context.Context, event schema.ScanEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// ListEvents implements the EventStore interface.
func (m *MockEventStore) ListEvents(ctx context.Context, userID string, limit int) ([]schema.ScanEvent, error) {
	args := m.Called(ctx, userID, limit)
	events, _ := args.Get(0).([]schema.ScanEvent)
	return events, args.Error(1)
}

// GetStatus implements the EventStore interface.
func (m *MockEventStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the EventStore interface.
func (m *MockEventStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
