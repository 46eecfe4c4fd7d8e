package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
	"github.com/odiabackend099/callwaiting/migrations"
)

// Epoch is the default start time for fixed test clocks
var Epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// NewTestDB creates an in-memory SQLite database with the real schema applied
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.GetFS())
	if err != nil {
		db.Close()
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { CleanupDB(db) })
	return db
}

// CleanupDB closes the test database
func CleanupDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}

// NewClock returns a fixed clock at Epoch
func NewClock() *clock.Fixed {
	return clock.NewFixed(Epoch)
}

// NewLogger returns a quiet logger for tests
func NewLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}
