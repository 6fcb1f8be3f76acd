// Package storagetest provides migrated in-memory databases for store tests.
package storagetest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"linkdash/internal/adapters/storage"
)

// NewDB opens a private in-memory database with every migration applied.
// The database is closed when the test finishes.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := storage.Open(storage.MemoryPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// InsertAccount writes a minimal active account row so foreign keys resolve.
func InsertAccount(t testing.TB, db *sql.DB, id, email, role string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO account (id, email, role, status, created_at) VALUES (?, ?, ?, 'active', ?)",
		id, email, role, storage.FormatTime(time.Now()))
	if err != nil {
		t.Fatalf("insert account %s: %v", id, err)
	}
}
