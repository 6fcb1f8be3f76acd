package account

import (
	"context"

	domain "linkdash/internal/domain/account"
)

// Store persists Account state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	SaveAll(ctx context.Context, values []domain.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ListFilter carries filtering parameters for List and Count.
// A non-positive Limit returns every matching row.
type ListFilter struct {
	Role   string
	Status string
	Search string
	Sort   string
	Dir    string
	Limit  int
	Offset int
}

// SortColumns maps accepted sort keys to columns.
var SortColumns = map[string]string{
	"email":      "email",
	"name":       "name",
	"role":       "role",
	"status":     "status",
	"created_at": "created_at",
}
