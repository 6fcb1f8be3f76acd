package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"linkdash/internal/adapters/http/perf"
)

// newTimedLinkDB returns a migrated database with one account that links can reference.
func newTimedLinkDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	_, err = db.Exec("INSERT INTO account (id, email, role, created_at) VALUES ('owner', 'owner@linkdash.test', 'member', ?)",
		FormatTime(time.Now()))
	if err != nil {
		t.Fatalf("insert owner: %v", err)
	}
	return db
}

func insertLink(ctx context.Context, db SQLDB, id, status string) (sql.Result, error) {
	return db.ExecContext(ctx,
		"INSERT INTO link (id, owner_id, alias, target_url, status, created_at) VALUES (?, 'owner', ?, 'https://example.com', ?, ?)",
		id, "alias-"+id, status, FormatTime(time.Now()))
}

func TestTimedDBRecordsEveryOperation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		op   string
		run  func(t *testing.T, tdb *TimedDB)
	}{
		{"exec", "ExecContext", func(t *testing.T, tdb *TimedDB) {
			res, err := insertLink(ctx, tdb, "l1", "active")
			if err != nil {
				t.Fatalf("ExecContext: %v", err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				t.Errorf("RowsAffected = %d, want 1", n)
			}
		}},
		{"query", "QueryContext", func(t *testing.T, tdb *TimedDB) {
			rows, err := tdb.QueryContext(ctx, "SELECT id FROM link WHERE status = ?", "active")
			if err != nil {
				t.Fatalf("QueryContext: %v", err)
			}
			rows.Close()
		}},
		{"query row", "QueryRowContext", func(t *testing.T, tdb *TimedDB) {
			var n int
			if err := tdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM link").Scan(&n); err != nil {
				t.Fatalf("QueryRowContext: %v", err)
			}
		}},
		{"begin", "BeginTx", func(t *testing.T, tdb *TimedDB) {
			tx, err := tdb.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("BeginTx: %v", err)
			}
			tx.Rollback()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := perf.NewCollector(10)
			tdb := NewTimedDB(newTimedLinkDB(t), collector, 0)
			tt.run(t, tdb)

			if got := collector.TotalRecorded(); got != 1 {
				t.Fatalf("TotalRecorded = %d, want 1", got)
			}
			snap := collector.Snapshot(time.Time{}, 0)
			if len(snap.SlowestQueries) != 1 || snap.SlowestQueries[0].Path != tt.op {
				t.Errorf("SlowestQueries = %+v, want one %s entry", snap.SlowestQueries, tt.op)
			}
		})
	}
}

func TestTimedDBPassesErrorsThrough(t *testing.T) {
	ctx := context.Background()
	tdb := NewTimedDB(newTimedLinkDB(t), nil, 0)

	if _, err := insertLink(ctx, tdb, "dup", "active"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := insertLink(ctx, tdb, "dup", "active"); err == nil {
		t.Error("duplicate id should fail")
	}
	if _, err := tdb.QueryContext(ctx, "SELECT nope FROM link"); err == nil {
		t.Error("unknown column should fail")
	}
	var id string
	err := tdb.QueryRowContext(ctx, "SELECT id FROM link WHERE id = ?", "missing").Scan(&id)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing row: err = %v, want sql.ErrNoRows", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := tdb.QueryContext(cancelled, "SELECT id FROM link"); err == nil {
		t.Error("cancelled context should fail")
	}
}

func TestTimedDBConcurrentUse(t *testing.T) {
	ctx := context.Background()
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(newTimedLinkDB(t), collector, 0)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			insertLink(ctx, tdb, "c"+string(rune('a'+i)), "active")
			var n int
			tdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM link").Scan(&n)
		}(i)
	}
	wg.Wait()

	if got := collector.TotalRecorded(); got != 16 {
		t.Errorf("TotalRecorded = %d, want 16", got)
	}
	var n int
	if err := tdb.RawDB().QueryRow("SELECT COUNT(*) FROM link").Scan(&n); err != nil || n != 8 {
		t.Errorf("links = %d (err %v), want 8", n, err)
	}
}

func TestTimedDBSlowThreshold(t *testing.T) {
	db := newTimedLinkDB(t)
	if got := NewTimedDB(db, nil, 0).threshold; got != DefaultSlowQueryMs {
		t.Errorf("threshold = %v, want default %d", got, DefaultSlowQueryMs)
	}
	if got := NewTimedDB(db, nil, 250).threshold; got != 250 {
		t.Errorf("threshold = %v, want 250", got)
	}
}
