package store

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
)

// Global store instance for the CLI commands.
var (
	current   contract.Store
	initOnce  sync.Once
	closeOnce sync.Once
	mu        sync.RWMutex
)

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	return contract.GetDBFilePath()
}

// GetBoltFilePath returns the path to the default bbolt file.
func GetBoltFilePath() string {
	return contract.GetBoltFilePath()
}

// Open returns a store for the configured backend.
func Open(backend schema.DatabaseBackend, connStr string, opts ...Option) (contract.Store, error) {
	switch backend {
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend:
		return NewSQLStore(backend, connStr, opts...)
	case schema.BoltBackend:
		return NewBoltStore(connStr, opts...)
	case schema.NoneBackend:
		return NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, bolt, or none", backend)
	}
}

// Init opens the global store exactly once.
func Init(backend schema.DatabaseBackend, connStr string, opts ...Option) error {
	var initErr error
	initOnce.Do(func() {
		s, err := Open(backend, connStr, opts...)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize store: %w", err)
			return
		}
		mu.Lock()
		current = s
		mu.Unlock()
	})
	return initErr
}

// Get returns the global store, or nil before Init.
func Get() contract.Store {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Close should be called on application shutdown.
func Close() {
	closeOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if current != nil {
			if err := current.Close(); err != nil {
				contract.LogWarn("failed to close store", err)
			}
		}
	})
}

// Clear wipes all persisted state of the backend.
// For SQLite and bolt, it deletes the file.
// For MySQL/PostgreSQL, it drops the tables along with the migration history.
// For NoneBackend, it does nothing.
func Clear(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeFile(connStr, GetDBFilePath())
	case schema.BoltBackend:
		return removeFile(connStr, GetBoltFilePath())
	case schema.MySQLBackend:
		return dropSQLTables("mysql", backend, connStr)
	case schema.PostgreSQLBackend:
		return dropSQLTables("pgx", backend, connStr)
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported store backend for clearing: %s", backend)
	}
}

func removeFile(path, fallback string) error {
	if path == "" {
		path = fallback
	}
	// Remove the file; ignore if it doesn't exist
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove store file %s: %w", path, err)
	}
	return nil
}

// dropSQLTables connects to the SQL database and drops every store table if it exists.
func dropSQLTables(driverName string, backend schema.DatabaseBackend, connStr string) error {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driverName, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	for _, table := range append(allTables, locksTable, "schema_migrations") {
		if err := validateTableName(table); err != nil {
			return err
		}
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
