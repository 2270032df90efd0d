// Package sqlite stores the ledger in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/simaogato/ledgerflow-backend/internal/adapter/repository/sqlstore"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Open creates the database file if needed, applies migrations and returns a
// connection limited to one writer.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := Migrate(path, false); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// NewEntryStore creates the sqlite-backed ledger store
func NewEntryStore(db *DB) *sqlstore.Store {
	return sqlstore.New(db.DB, sqlstore.SQLite)
}

// Migrate brings the schema up to date. With refresh every table is dropped
// first, which deletes the whole ledger.
func Migrate(path string, refresh bool) error {
	if refresh {
		if err := withMigrator(path, func(m *migrate.Migrate) error {
			return m.Drop()
		}); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}

	return withMigrator(path, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// withMigrator uses a separate connection so migrations never share the
// store's single connection.
func withMigrator(path string, fn func(m *migrate.Migrate) error) error {
	migrateDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(migrateDB, &sqlitemigrate.Config{})
	if err != nil {
		migrateDB.Close()
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
