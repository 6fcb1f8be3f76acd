package link

import (
	"context"

	domain "linkdash/internal/domain/link"
)

// Store persists Link state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Link, error)
	GetByAlias(ctx context.Context, alias string) (domain.Link, error)
	Save(ctx context.Context, value domain.Link) error
	SaveAll(ctx context.Context, values []domain.Link) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, ids []string) (int, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Link, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Link, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// ListFilter carries filtering parameters for List and Count.
// A non-positive Limit returns every matching row.
type ListFilter struct {
	Status  string
	OwnerID string
	Search  string
	Sort    string
	Dir     string
	Limit   int
	Offset  int
}

// SortColumns maps accepted sort keys to columns.
var SortColumns = map[string]string{
	"alias":      "alias",
	"title":      "title",
	"status":     "status",
	"clicks":     "clicks",
	"created_at": "created_at",
	"expires_at": "expires_at",
}
