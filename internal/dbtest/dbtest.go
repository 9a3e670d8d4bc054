// Package dbtest opens throwaway SQLite databases for persistence tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-journal-go/internal/schema"
	"github.com/ovaphlow/pitchfork/service-journal-go/pkg/database"
)

// OpenEmpty opens an unmigrated SQLite database in t's temp dir.
func OpenEmpty(t testing.TB) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := database.Connect(database.Config{
		Driver:   "sqlite",
		DSN:      "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		MaxConns: 4,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// Open opens a SQLite database migrated to the latest schema.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	db := OpenEmpty(t)
	if _, err := database.Migrate(context.Background(), db, database.SQLite, schema.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
