package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// DialectFor maps a configured driver to its goose dialect
func DialectFor(driver string) (goose.Dialect, error) {
	switch driver {
	case "sqlite":
		return goose.DialectSQLite3, nil
	case "postgres", "pgx":
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("no migration dialect for driver %q", driver)
	}
}

// RunMigrations applies all pending migrations from migrationsFS
func RunMigrations(ctx context.Context, db *sql.DB, driver string, migrationsFS fs.FS) (int, error) {
	provider, err := newProvider(db, driver, migrationsFS)
	if err != nil {
		return 0, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("failed to apply migrations: %w", err)
	}
	return len(results), nil
}

// MigrationVersion returns the current schema version
func MigrationVersion(ctx context.Context, db *sql.DB, driver string, migrationsFS fs.FS) (int64, error) {
	provider, err := newProvider(db, driver, migrationsFS)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

// RollbackMigration reverts the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB, driver string, migrationsFS fs.FS) error {
	provider, err := newProvider(db, driver, migrationsFS)
	if err != nil {
		return err
	}
	if _, err := provider.Down(ctx); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

func newProvider(db *sql.DB, driver string, migrationsFS fs.FS) (*goose.Provider, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	provider, err := goose.NewProvider(dialect, db, migrationsFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return provider, nil
}
