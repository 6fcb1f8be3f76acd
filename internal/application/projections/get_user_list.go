package projections

import (
	"context"
	"time"

	accountstore "linkdash/internal/adapters/storage/account"
	"linkdash/internal/application/listutil"
)

// User list filter and sort keys accepted from clients.
var (
	UserFilterKeys  = []string{"status", "role"}
	UserSortColumns = []string{"email", "name", "role", "status", "created_at"}
)

// GetUserListQuery carries query parameters.
type GetUserListQuery struct {
	Params listutil.ListParams
}

// UserRow is one row of the user list. Credentials are never exposed.
type UserRow struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Locked    bool      `json:"locked"`
}

// GetUserListResult carries the query result.
type GetUserListResult struct {
	Rows []UserRow         `json:"rows"`
	Page listutil.PageInfo `json:"page"`
}

// GetUserListDeps holds dependencies for GetUserList.
type GetUserListDeps struct {
	AccountStore AccountStore
	Now          func() time.Time
}

// UserStoreFilter translates list params into a store filter without paging.
func UserStoreFilter(p listutil.ListParams) accountstore.ListFilter {
	return accountstore.ListFilter{
		Status: p.Filters["status"],
		Role:   p.Filters["role"],
		Search: p.Search,
		Sort:   p.Sort,
		Dir:    p.Dir,
	}
}

// QueryGetUserList retrieves one page of accounts.
// PRE: Params parsed with UserSortColumns and UserFilterKeys
// POST: Rows holds at most Page.PerPage accounts; Page.Total counts every match
func QueryGetUserList(ctx context.Context, query GetUserListQuery, deps GetUserListDeps) (GetUserListResult, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	filter := UserStoreFilter(query.Params)

	total, err := deps.AccountStore.Count(ctx, filter)
	if err != nil {
		return GetUserListResult{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit = info.PerPage
	filter.Offset = info.Offset()

	accounts, err := deps.AccountStore.List(ctx, filter)
	if err != nil {
		return GetUserListResult{}, err
	}

	at := now()
	rows := make([]UserRow, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, UserRow{
			ID:        a.ID,
			Email:     a.Email,
			Name:      a.Name,
			Role:      a.Role,
			Status:    a.Status,
			CreatedAt: a.CreatedAt,
			Locked:    a.IsLocked(at),
		})
	}
	return GetUserListResult{Rows: rows, Page: info}, nil
}
