package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. With refresh every table is dropped
// first, which deletes the whole ledger.
func Migrate(connectionString string, refresh bool) error {
	if refresh {
		if err := withMigrator(connectionString, func(m *migrate.Migrate) error {
			return m.Drop()
		}); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}

	return withMigrator(connectionString, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// withMigrator uses a dedicated connection; closing the migrator closes it.
func withMigrator(connectionString string, fn func(m *migrate.Migrate) error) error {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}

	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("create postgres driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}
