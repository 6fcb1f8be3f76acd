package storage

import (
	"context"
	"slices"
	"strings"
	"time"
)

// MaxInArgs caps the ids bound by one IN clause. SQLite rejects statements
// with more than 32766 variables.
const MaxInArgs = 500

// Where accumulates AND-ed SQL conditions and their arguments for list queries.
type Where struct {
	clauses []string
	args    []any
}

// Eq adds "col = ?" unless value is empty.
func (w *Where) Eq(col, value string) *Where {
	if value == "" {
		return w
	}
	w.clauses = append(w.clauses, col+" = ?")
	w.args = append(w.args, value)
	return w
}

// likeEscaper escapes LIKE wildcards so a search term matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Like adds a case-insensitive substring match across cols unless term is blank.
// % and _ in term match themselves.
func (w *Where) Like(term string, cols ...string) *Where {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return w
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = "LOWER(" + c + `) LIKE ? ESCAPE '\'`
		w.args = append(w.args, pattern)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
	return w
}

// In adds "col IN (?, ...)". An empty ids list matches nothing.
// PRE: len(ids) <= MaxInArgs; larger lists go through ByIDChunks
func (w *Where) In(col string, ids []string) *Where {
	if len(ids) == 0 {
		w.clauses = append(w.clauses, "1 = 0")
		return w
	}
	w.clauses = append(w.clauses, col+" IN ("+Placeholders(len(ids))+")")
	for _, id := range ids {
		w.args = append(w.args, id)
	}
	return w
}

// ByIDChunks sorts and dedupes ids, then calls fn once per chunk of at most
// MaxInArgs ids. Results come back in id order when fn orders by id.
// POST: stops at the first error
func ByIDChunks[T any](ctx context.Context, ids []string, fn func(ctx context.Context, chunk []string) ([]T, error)) ([]T, error) {
	sorted := slices.Compact(slices.Sorted(slices.Values(ids)))
	var out []T
	for chunk := range slices.Chunk(sorted, MaxInArgs) {
		rows, err := fn(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// SQL renders the WHERE clause with a leading space, or "" when empty.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the bound arguments in clause order.
func (w *Where) Args() []any {
	return append([]any(nil), w.args...)
}

// OrderBy renders an ORDER BY clause for a whitelisted sort key.
// Unknown keys fall back to fallback; ties are broken by idCol so paging is stable.
func OrderBy(sort, dir string, columns map[string]string, fallback, idCol string) string {
	col, ok := columns[sort]
	if !ok {
		col = fallback
	}
	d := "ASC"
	if strings.EqualFold(dir, "desc") {
		d = "DESC"
	}
	return " ORDER BY " + col + " " + d + ", " + idCol + " ASC"
}

// Page renders LIMIT/OFFSET. A non-positive limit returns every row.
func Page(limit, offset int) (string, []any) {
	if limit <= 0 {
		return "", nil
	}
	if offset < 0 {
		offset = 0
	}
	return " LIMIT ? OFFSET ?", []any{limit, offset}
}

// Placeholders returns n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// FormatTime renders t in DateLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// NullableTime renders t in DateLayout, or nil for the zero time.
func NullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// ParseTime parses a stored timestamp; empty strings yield the zero time.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
