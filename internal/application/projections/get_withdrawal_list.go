package projections

import (
	"context"
	"time"

	withdrawalstore "linkdash/internal/adapters/storage/withdrawal"
	"linkdash/internal/application/listutil"
)

// Withdrawal list filter and sort keys accepted from clients.
var (
	WithdrawalFilterKeys  = []string{"status", "method", "user"}
	WithdrawalSortColumns = []string{"amount", "method", "status", "requested_at", "decided_at"}
)

// GetWithdrawalListQuery carries query parameters.
type GetWithdrawalListQuery struct {
	Params listutil.ListParams
}

// WithdrawalRow is one row of the withdrawal list, joined with the requesting user.
type WithdrawalRow struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	UserEmail   string     `json:"user_email"`
	AmountCents int        `json:"amount_cents"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// GetWithdrawalListResult carries the query result.
type GetWithdrawalListResult struct {
	Rows []WithdrawalRow   `json:"rows"`
	Page listutil.PageInfo `json:"page"`
}

// GetWithdrawalListDeps holds dependencies for GetWithdrawalList.
type GetWithdrawalListDeps struct {
	WithdrawalStore WithdrawalStore
	AccountStore    AccountStore
}

// WithdrawalStoreFilter translates list params into a store filter without paging.
func WithdrawalStoreFilter(p listutil.ListParams) withdrawalstore.ListFilter {
	return withdrawalstore.ListFilter{
		Status: p.Filters["status"],
		Method: p.Filters["method"],
		UserID: p.Filters["user"],
		Search: p.Search,
		Sort:   p.Sort,
		Dir:    p.Dir,
	}
}

// QueryGetWithdrawalList retrieves one page of withdrawals with user emails.
// PRE: Params parsed with WithdrawalSortColumns and WithdrawalFilterKeys
// POST: Rows holds at most Page.PerPage withdrawals; Page.Total counts every match
func QueryGetWithdrawalList(ctx context.Context, query GetWithdrawalListQuery, deps GetWithdrawalListDeps) (GetWithdrawalListResult, error) {
	filter := WithdrawalStoreFilter(query.Params)

	total, err := deps.WithdrawalStore.Count(ctx, filter)
	if err != nil {
		return GetWithdrawalListResult{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit = info.PerPage
	filter.Offset = info.Offset()

	list, err := deps.WithdrawalStore.List(ctx, filter)
	if err != nil {
		return GetWithdrawalListResult{}, err
	}

	userIDs := make([]string, 0, len(list))
	for _, w := range list {
		userIDs = append(userIDs, w.UserID)
	}
	emails := make(map[string]string, len(userIDs))
	if len(userIDs) > 0 {
		users, err := deps.AccountStore.ListByIDs(ctx, userIDs)
		if err != nil {
			return GetWithdrawalListResult{}, err
		}
		for _, u := range users {
			emails[u.ID] = u.Email
		}
	}

	rows := make([]WithdrawalRow, 0, len(list))
	for _, w := range list {
		row := WithdrawalRow{
			ID:          w.ID,
			UserID:      w.UserID,
			UserEmail:   emails[w.UserID],
			AmountCents: w.AmountCents,
			Method:      w.Method,
			Status:      w.Status,
			Reason:      w.Reason,
			RequestedAt: w.RequestedAt,
		}
		if !w.DecidedAt.IsZero() {
			d := w.DecidedAt
			row.DecidedAt = &d
		}
		rows = append(rows, row)
	}
	return GetWithdrawalListResult{Rows: rows, Page: info}, nil
}
