package projections

import (
	"context"

	accountstore "linkdash/internal/adapters/storage/account"
	linkstore "linkdash/internal/adapters/storage/link"
	withdrawalstore "linkdash/internal/adapters/storage/withdrawal"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/link"
	"linkdash/internal/domain/withdrawal"
)

// LinkStore interface for link queries.
type LinkStore interface {
	List(ctx context.Context, filter linkstore.ListFilter) ([]link.Link, error)
	Count(ctx context.Context, filter linkstore.ListFilter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// WithdrawalStore interface for withdrawal queries.
type WithdrawalStore interface {
	List(ctx context.Context, filter withdrawalstore.ListFilter) ([]withdrawal.Withdrawal, error)
	Count(ctx context.Context, filter withdrawalstore.ListFilter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	SumByStatus(ctx context.Context, status string) (int, error)
}

// AccountStore interface for account queries.
type AccountStore interface {
	List(ctx context.Context, filter accountstore.ListFilter) ([]account.Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]account.Account, error)
	Count(ctx context.Context, filter accountstore.ListFilter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}
