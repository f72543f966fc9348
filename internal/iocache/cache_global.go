package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// OpenStores builds a standalone manager. Callers own the result and must Close it.
func OpenStores(ttl time.Duration, snapBackend schema.DatabaseBackend, snapConnStr string, eventBackend schema.DatabaseBackend, eventConnStr string) (*CacheStoreManager, error) {
	snapshots, err := NewSnapshotStore(snapBackend, snapConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}

	events, err := NewEventStore(eventBackend, eventConnStr)
	if err != nil {
		_ = snapshots.Close()
		return nil, fmt.Errorf("failed to initialize event store: %w", err)
	}

	return NewCacheStoreManager(NewMemoryCache(ttl), snapshots, events), nil
}

// InitCaching initializes the global manager exactly once.
func InitCaching(ttl time.Duration, snapBackend schema.DatabaseBackend, snapConnStr string, eventBackend schema.DatabaseBackend, eventConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		mgr, err := OpenStores(ttl, snapBackend, snapConnStr, eventBackend, eventConnStr)
		if err != nil {
			initErr = err
			return
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.memory = mgr.memory
		Manager.snapshots = mgr.snapshots
		Manager.events = mgr.events
	})

	return initErr
}

// CloseCaching should be called on application shutdown.
func CloseCaching() { // called in main defer
	closeOnce.Do(Manager.Close)
}

// ClearStore wipes one persisted store.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
// For NoneBackend, it does nothing.
func ClearStore(backend schema.DatabaseBackend, dbFilePath, connStr, table string) error {
	if err := validateTableName(table); err != nil {
		return err
	}

	switch backend {
	case schema.SQLiteBackend:
		path := connStr
		if path == "" {
			path = dbFilePath
		}
		if path == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if path == ":memory:" {
			return nil
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", path, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTable(backend, connStr, table)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(backend schema.DatabaseBackend, connStr, table string) error {
	driverName := driverFor(backend)
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}
	return nil
}

// DefaultDBFilePath returns the default SQLite file of a persisted table.
func DefaultDBFilePath(table string) string {
	if table == EventTable {
		return contract.GetEventDBFilePath()
	}
	return contract.GetSnapshotDBFilePath()
}
