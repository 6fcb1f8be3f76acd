package link

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"linkdash/internal/adapters/storage"
	domain "linkdash/internal/domain/link"
)

// ErrNotFound is returned when no link matches.
var ErrNotFound = errors.New("link not found")

const selectColumns = "SELECT id, owner_id, alias, target_url, title, status, clicks, created_at, expires_at FROM link"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new link store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Link by its ID.
// PRE: id is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Link, error) {
	return s.getOne(ctx, selectColumns+" WHERE id = ?", id)
}

// GetByAlias retrieves a Link by its short alias.
// PRE: alias is non-empty
// POST: Returns the entity or ErrNotFound
func (s *SQLiteStore) GetByAlias(ctx context.Context, alias string) (domain.Link, error) {
	return s.getOne(ctx, selectColumns+" WHERE alias = ?", alias)
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, arg string) (domain.Link, error) {
	entity, err := scanLink(s.db.QueryRowContext(ctx, query, arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Link{}, fmt.Errorf("%w: %s", ErrNotFound, arg)
	}
	return entity, err
}

const upsertQuery = `INSERT INTO link (id, owner_id, alias, target_url, title, status, clicks, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	alias=excluded.alias,
	target_url=excluded.target_url,
	title=excluded.title,
	status=excluded.status,
	clicks=excluded.clicks,
	expires_at=excluded.expires_at`

// Save persists a Link to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Link) error {
	return s.SaveAll(ctx, []domain.Link{entity})
}

// SaveAll persists every link in a single transaction.
// PRE: every entity has been validated
// POST: all entities persisted, or none on error
func (s *SQLiteStore) SaveAll(ctx context.Context, entities []domain.Link) error {
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
			e.OwnerID,
			e.Alias,
			e.TargetURL,
			e.Title,
			e.Status,
			e.Clicks,
			storage.FormatTime(e.CreatedAt),
			storage.NullableTime(e.ExpiresAt),
		)
		if err != nil {
			return fmt.Errorf("save link %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes a Link from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM link WHERE id = ?", id)
	return err
}

// DeleteAll removes the given links in one transaction and returns how many were removed.
func (s *SQLiteStore) DeleteAll(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	deleted := 0
	for chunk := range slices.Chunk(ids, storage.MaxInArgs) {
		var w storage.Where
		w.In("id", chunk)
		res, err := tx.ExecContext(ctx, "DELETE FROM link"+w.SQL(), w.Args()...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deleted += int(n)
	}
	return deleted, tx.Commit()
}

func where(filter ListFilter) *storage.Where {
	w := &storage.Where{}
	return w.Eq("status", filter.Status).
		Eq("owner_id", filter.OwnerID).
		Like(filter.Search, "alias", "title", "target_url")
}

// List retrieves Links based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities in a stable order
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Link, error) {
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

// ListByIDs returns the links whose IDs are in ids. Unknown IDs are skipped.
func (s *SQLiteStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Link, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return storage.ByIDChunks(ctx, ids, func(ctx context.Context, chunk []string) ([]domain.Link, error) {
		var w storage.Where
		w.In("id", chunk)
		return s.query(ctx, selectColumns+w.SQL()+" ORDER BY id", w.Args()...)
	})
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Link
	for rows.Next() {
		entity, err := scanLink(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of links matching filter, ignoring Limit and Offset.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	w := where(filter)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM link"+w.SQL(), w.Args()...).Scan(&count)
	return count, err
}

// CountByStatus returns link totals keyed by status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM link GROUP BY status")
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

// scanLink extracts a Link from a row scanner function.
func scanLink(scan func(dest ...any) error) (domain.Link, error) {
	var entity domain.Link
	var createdAt string
	var expiresAt sql.NullString
	err := scan(
		&entity.ID,
		&entity.OwnerID,
		&entity.Alias,
		&entity.TargetURL,
		&entity.Title,
		&entity.Status,
		&entity.Clicks,
		&createdAt,
		&expiresAt,
	)
	if err != nil {
		return domain.Link{}, err
	}
	entity.CreatedAt = storage.ParseTime(createdAt)
	entity.ExpiresAt = storage.ParseTime(expiresAt.String)
	return entity, nil
}
