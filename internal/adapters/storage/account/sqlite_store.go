package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"linkdash/internal/adapters/storage"
	domain "linkdash/internal/domain/account"
)

// ErrNotFound is returned when no account matches.
var ErrNotFound = errors.New("account not found")

const selectColumns = "SELECT id, email, name, password_hash, role, status, created_at, failed_logins, locked_until FROM account"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	entity, err := scanAccount(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email, ignoring case.
// PRE: email is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	entity, err := scanAccount(s.db.QueryRowContext(ctx, selectColumns+" WHERE LOWER(email) = LOWER(?)", email).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, ErrNotFound
	}
	return entity, err
}

const upsertQuery = `INSERT INTO account (id, email, name, password_hash, role, status, created_at, failed_logins, locked_until)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	email=excluded.email,
	name=excluded.name,
	password_hash=excluded.password_hash,
	role=excluded.role,
	status=excluded.status,
	failed_logins=excluded.failed_logins,
	locked_until=excluded.locked_until`

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	return s.SaveAll(ctx, []domain.Account{entity})
}

// SaveAll persists every account in a single transaction.
// PRE: every entity has been validated
// POST: all entities persisted, or none on error
func (s *SQLiteStore) SaveAll(ctx context.Context, entities []domain.Account) error {
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
			e.Email,
			e.Name,
			e.PasswordHash,
			e.Role,
			e.Status,
			storage.FormatTime(e.CreatedAt),
			e.FailedLogins,
			storage.NullableTime(e.LockedUntil),
		)
		if err != nil {
			return fmt.Errorf("save account %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes an Account from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	return err
}

func where(filter ListFilter) *storage.Where {
	w := &storage.Where{}
	return w.Eq("role", filter.Role).
		Eq("status", filter.Status).
		Like(filter.Search, "email", "name")
}

// List retrieves Accounts based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities in a stable order
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	var qb strings.Builder
	w := where(filter)
	args := w.Args()

	qb.WriteString(selectColumns)
	qb.WriteString(w.SQL())
	qb.WriteString(storage.OrderBy(filter.Sort, filter.Dir, SortColumns, "created_at", "id"))
	page, pageArgs := storage.Page(filter.Limit, filter.Offset)
	qb.WriteString(page)
	args = append(args, pageArgs...)

	return s.query(ctx, qb.String(), args...)
}

// ListByIDs returns the accounts whose IDs are in ids. Unknown IDs are skipped.
func (s *SQLiteStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return storage.ByIDChunks(ctx, ids, func(ctx context.Context, chunk []string) ([]domain.Account, error) {
		var w storage.Where
		w.In("id", chunk)
		return s.query(ctx, selectColumns+w.SQL()+" ORDER BY id", w.Args()...)
	})
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of accounts matching filter, ignoring Limit and Offset.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	w := where(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account"+w.SQL(), w.Args()...).Scan(&count)
	return count, err
}

// CountByStatus returns account totals keyed by status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM account GROUP BY status")
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

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt string
	var lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.Name,
		&entity.PasswordHash,
		&entity.Role,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt = storage.ParseTime(createdAt)
	entity.LockedUntil = storage.ParseTime(lockedUntil.String)
	return entity, nil
}
