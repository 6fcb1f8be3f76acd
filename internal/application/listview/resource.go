package listview

import (
	"context"
	"time"

	"linkdash/internal/application/listutil"
	"linkdash/internal/application/projections"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/link"
	"linkdash/internal/domain/selection"
	"linkdash/internal/domain/withdrawal"
)

// Resource names accepted by the registry and the admin view routes.
const (
	ResourceLinks       = "links"
	ResourceWithdrawals = "withdrawals"
	ResourceUsers       = "users"
)

// Row is one rendered list row. Item carries the full projection row for display.
type Row struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Item   any    `json:"item"`
}

// Page is one fetched page of rows.
type Page struct {
	Rows []Row
	Info listutil.PageInfo
}

// FetchFunc is the list query service: it returns one page of rows matching filter.
type FetchFunc func(ctx context.Context, filter selection.Filter, page, perPage int) (Page, error)

// Resource describes one kind of admin list.
type Resource struct {
	Name        string
	FilterKeys  []string // exact-match filter keys; q, sort and dir are always allowed
	SortColumns []string
	Fetch       FetchFunc
	// StatusAfter reports the status a row shows once action succeeds.
	// Actions without a status (delete) remove the row instead.
	StatusAfter func(action string) (string, bool)
}

// sanitize keeps only the keys this resource understands.
func (r Resource) sanitize(f selection.Filter) selection.Filter {
	keys := append([]string{selection.KeySearch, selection.KeySort, selection.KeyDir}, r.FilterKeys...)
	return selection.FilterFromValues(f.Values(), keys...)
}

// LinkResource lists links through QueryGetLinkList.
func LinkResource(store projections.LinkStore) Resource {
	return Resource{
		Name:        ResourceLinks,
		FilterKeys:  projections.LinkFilterKeys,
		SortColumns: projections.LinkSortColumns,
		StatusAfter: link.StatusAfter,
		Fetch: func(ctx context.Context, f selection.Filter, page, perPage int) (Page, error) {
			params := listutil.ParamsFromFilter(f, page, perPage, projections.LinkSortColumns, projections.LinkFilterKeys)
			res, err := projections.QueryGetLinkList(ctx, projections.GetLinkListQuery{Params: params},
				projections.GetLinkListDeps{LinkStore: store})
			if err != nil {
				return Page{}, err
			}
			rows := make([]Row, len(res.Rows))
			for i, r := range res.Rows {
				rows[i] = Row{ID: r.ID, Status: r.Status, Item: r}
			}
			return Page{Rows: rows, Info: res.Page}, nil
		},
	}
}

// WithdrawalResource lists withdrawals through QueryGetWithdrawalList.
func WithdrawalResource(store projections.WithdrawalStore, accounts projections.AccountStore) Resource {
	return Resource{
		Name:        ResourceWithdrawals,
		FilterKeys:  projections.WithdrawalFilterKeys,
		SortColumns: projections.WithdrawalSortColumns,
		StatusAfter: withdrawal.StatusAfter,
		Fetch: func(ctx context.Context, f selection.Filter, page, perPage int) (Page, error) {
			params := listutil.ParamsFromFilter(f, page, perPage, projections.WithdrawalSortColumns, projections.WithdrawalFilterKeys)
			res, err := projections.QueryGetWithdrawalList(ctx, projections.GetWithdrawalListQuery{Params: params},
				projections.GetWithdrawalListDeps{WithdrawalStore: store, AccountStore: accounts})
			if err != nil {
				return Page{}, err
			}
			rows := make([]Row, len(res.Rows))
			for i, r := range res.Rows {
				rows[i] = Row{ID: r.ID, Status: r.Status, Item: r}
			}
			return Page{Rows: rows, Info: res.Page}, nil
		},
	}
}

// UserResource lists accounts through QueryGetUserList.
func UserResource(accounts projections.AccountStore, now func() time.Time) Resource {
	return Resource{
		Name:        ResourceUsers,
		FilterKeys:  projections.UserFilterKeys,
		SortColumns: projections.UserSortColumns,
		StatusAfter: account.StatusAfter,
		Fetch: func(ctx context.Context, f selection.Filter, page, perPage int) (Page, error) {
			params := listutil.ParamsFromFilter(f, page, perPage, projections.UserSortColumns, projections.UserFilterKeys)
			res, err := projections.QueryGetUserList(ctx, projections.GetUserListQuery{Params: params},
				projections.GetUserListDeps{AccountStore: accounts, Now: now})
			if err != nil {
				return Page{}, err
			}
			rows := make([]Row, len(res.Rows))
			for i, r := range res.Rows {
				rows[i] = Row{ID: r.ID, Status: r.Status, Item: r}
			}
			return Page{Rows: rows, Info: res.Page}, nil
		},
	}
}
