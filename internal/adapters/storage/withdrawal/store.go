package withdrawal

import (
	"context"

	domain "linkdash/internal/domain/withdrawal"
)

// Store persists Withdrawal state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Withdrawal, error)
	Save(ctx context.Context, value domain.Withdrawal) error
	SaveAll(ctx context.Context, values []domain.Withdrawal) error
	List(ctx context.Context, filter ListFilter) ([]domain.Withdrawal, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Withdrawal, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	SumByStatus(ctx context.Context, status string) (int, error)
}

// ListFilter carries filtering parameters for List and Count.
// Search matches the requesting user's email or the withdrawal ID.
// A non-positive Limit returns every matching row.
type ListFilter struct {
	Status string
	UserID string
	Method string
	Search string
	Sort   string
	Dir    string
	Limit  int
	Offset int
}

// SortColumns maps accepted sort keys to columns.
var SortColumns = map[string]string{
	"amount":       "w.amount_cents",
	"method":       "w.method",
	"status":       "w.status",
	"requested_at": "w.requested_at",
	"decided_at":   "w.decided_at",
}
