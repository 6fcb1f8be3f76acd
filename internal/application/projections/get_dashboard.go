package projections

import (
	"context"

	"linkdash/internal/domain/withdrawal"
)

// GetDashboardQuery carries input for the dashboard projection.
type GetDashboardQuery struct {
	IncludeUsers bool // only super admins see account totals
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	LinkStore       LinkStore
	WithdrawalStore WithdrawalStore
	AccountStore    AccountStore // optional when IncludeUsers is false
}

// DashboardResult carries per-status totals for the admin dashboard.
type DashboardResult struct {
	Links              map[string]int `json:"links"`
	Withdrawals        map[string]int `json:"withdrawals"`
	Users              map[string]int `json:"users,omitempty"`
	PendingPayoutCents int            `json:"pending_payout_cents"`
}

// QueryGetDashboard aggregates status counts per list kind.
// PRE: LinkStore and WithdrawalStore are set
// POST: Users is populated only when IncludeUsers is true
func QueryGetDashboard(ctx context.Context, query GetDashboardQuery, deps GetDashboardDeps) (DashboardResult, error) {
	var result DashboardResult
	var err error

	if result.Links, err = deps.LinkStore.CountByStatus(ctx); err != nil {
		return DashboardResult{}, err
	}
	if result.Withdrawals, err = deps.WithdrawalStore.CountByStatus(ctx); err != nil {
		return DashboardResult{}, err
	}
	if result.PendingPayoutCents, err = deps.WithdrawalStore.SumByStatus(ctx, withdrawal.StatusApproved); err != nil {
		return DashboardResult{}, err
	}
	if query.IncludeUsers && deps.AccountStore != nil {
		if result.Users, err = deps.AccountStore.CountByStatus(ctx); err != nil {
			return DashboardResult{}, err
		}
	}
	return result, nil
}
