package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"linkdash/internal/adapters/storage"
	domain "linkdash/internal/domain/withdrawal"
)

// ErrNotFound is returned when no withdrawal matches.
var ErrNotFound = errors.New("withdrawal not found")

const (
	selectColumns = "SELECT w.id, w.user_id, w.amount_cents, w.method, w.status, w.reason, w.requested_at, w.decided_at, w.paid_at"
	fromJoined    = " FROM withdrawal w JOIN account a ON a.id = w.user_id"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new withdrawal store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Withdrawal by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Withdrawal, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM withdrawal w WHERE w.id = ?", id)
	entity, err := scanWithdrawal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Withdrawal{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

const upsertQuery = `INSERT INTO withdrawal (id, user_id, amount_cents, method, status, reason, requested_at, decided_at, paid_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status=excluded.status,
	reason=excluded.reason,
	decided_at=excluded.decided_at,
	paid_at=excluded.paid_at`

// Save persists a Withdrawal to the database.
// PRE: entity has been validated
// POST: Entity is persisted; amount and method are immutable after insert
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Withdrawal) error {
	return s.SaveAll(ctx, []domain.Withdrawal{entity})
}

// SaveAll persists every withdrawal in a single transaction.
// PRE: every entity has been validated
// POST: all entities persisted, or none on error
func (s *SQLiteStore) SaveAll(ctx context.Context, entities []domain.Withdrawal) error {
	if len(entities) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entities {
		_, err := stmt.ExecContext(ctx,
			e.ID,
			e.UserID,
			e.AmountCents,
			e.Method,
			e.Status,
			e.Reason,
			storage.FormatTime(e.RequestedAt),
			storage.NullableTime(e.DecidedAt),
			storage.NullableTime(e.PaidAt),
		)
		if err != nil {
			return fmt.Errorf("save withdrawal %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

func where(filter ListFilter) *storage.Where {
	w := &storage.Where{}
	return w.Eq("w.status", filter.Status).
		Eq("w.user_id", filter.UserID).
		Eq("w.method", filter.Method).
		Like(filter.Search, "a.email", "w.id")
}

// List retrieves Withdrawals based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities in a stable order
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Withdrawal, error) {
	var qb strings.Builder
	w := where(filter)
	args := w.Args()

	qb.WriteString(selectColumns)
	qb.WriteString(fromJoined)
	qb.WriteString(w.SQL())
	qb.WriteString(storage.OrderBy(filter.Sort, filter.Dir, SortColumns, "w.requested_at", "w.id"))
	page, pageArgs := storage.Page(filter.Limit, filter.Offset)
	qb.WriteString(page)
	args = append(args, pageArgs...)

	return s.query(ctx, qb.String(), args...)
}

// ListByIDs returns the withdrawals whose IDs are in ids. Unknown IDs are skipped.
func (s *SQLiteStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Withdrawal, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return storage.ByIDChunks(ctx, ids, func(ctx context.Context, chunk []string) ([]domain.Withdrawal, error) {
		var w storage.Where
		w.In("w.id", chunk)
		return s.query(ctx, selectColumns+" FROM withdrawal w"+w.SQL()+" ORDER BY w.id", w.Args()...)
	})
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Withdrawal
	for rows.Next() {
		entity, err := scanWithdrawal(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of withdrawals matching filter, ignoring Limit and Offset.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	w := where(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+fromJoined+w.SQL(), w.Args()...).Scan(&count)
	return count, err
}

// CountByStatus returns withdrawal totals keyed by status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM withdrawal GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// SumByStatus returns the total amount in cents of withdrawals with status.
func (s *SQLiteStore) SumByStatus(ctx context.Context, status string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM withdrawal WHERE status = ?", status).Scan(&total)
	return total, err
}

// scanWithdrawal extracts a Withdrawal from a row scanner function.
func scanWithdrawal(scan func(dest ...any) error) (domain.Withdrawal, error) {
	var entity domain.Withdrawal
	var requestedAt string
	var decidedAt, paidAt sql.NullString
	err := scan(
		&entity.ID,
		&entity.UserID,
		&entity.AmountCents,
		&entity.Method,
		&entity.Status,
		&entity.Reason,
		&requestedAt,
		&decidedAt,
		&paidAt,
	)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	entity.RequestedAt = storage.ParseTime(requestedAt)
	entity.DecidedAt = storage.ParseTime(decidedAt.String)
	entity.PaidAt = storage.ParseTime(paidAt.String)
	return entity, nil
}
