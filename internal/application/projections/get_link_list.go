package projections

import (
	"context"
	"time"

	linkstore "linkdash/internal/adapters/storage/link"
	"linkdash/internal/application/listutil"
	"linkdash/internal/domain/link"
)

// Link list filter and sort keys accepted from clients.
var (
	LinkFilterKeys  = []string{"status", "owner"}
	LinkSortColumns = []string{"alias", "title", "status", "clicks", "created_at", "expires_at"}
)

// GetLinkListQuery carries query parameters.
type GetLinkListQuery struct {
	Params  listutil.ListParams
	OwnerID string // restricts to one member's links; overrides an "owner" filter
}

// LinkRow is one row of the link list.
type LinkRow struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Alias     string     `json:"alias"`
	TargetURL string     `json:"target_url"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Clicks    int        `json:"clicks"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GetLinkListResult carries the query result.
type GetLinkListResult struct {
	Rows []LinkRow         `json:"rows"`
	Page listutil.PageInfo `json:"page"`
}

// GetLinkListDeps holds dependencies for GetLinkList.
type GetLinkListDeps struct {
	LinkStore LinkStore
}

// LinkStoreFilter translates list params into a store filter without paging.
func LinkStoreFilter(p listutil.ListParams) linkstore.ListFilter {
	return linkstore.ListFilter{
		Status:  p.Filters["status"],
		OwnerID: p.Filters["owner"],
		Search:  p.Search,
		Sort:    p.Sort,
		Dir:     p.Dir,
	}
}

// QueryGetLinkList retrieves one page of links.
// PRE: Params parsed with LinkSortColumns and LinkFilterKeys
// POST: Rows holds at most Page.PerPage links; Page.Total counts every match
func QueryGetLinkList(ctx context.Context, query GetLinkListQuery, deps GetLinkListDeps) (GetLinkListResult, error) {
	filter := LinkStoreFilter(query.Params)
	if query.OwnerID != "" {
		filter.OwnerID = query.OwnerID
	}

	total, err := deps.LinkStore.Count(ctx, filter)
	if err != nil {
		return GetLinkListResult{}, err
	}
	info := listutil.NewPageInfo(query.Params.Page, query.Params.PerPage, total)
	filter.Limit = info.PerPage
	filter.Offset = info.Offset()

	links, err := deps.LinkStore.List(ctx, filter)
	if err != nil {
		return GetLinkListResult{}, err
	}

	rows := make([]LinkRow, 0, len(links))
	for _, l := range links {
		rows = append(rows, NewLinkRow(l))
	}
	return GetLinkListResult{Rows: rows, Page: info}, nil
}

// NewLinkRow converts a link into its list row.
func NewLinkRow(l link.Link) LinkRow {
	row := LinkRow{
		ID:        l.ID,
		OwnerID:   l.OwnerID,
		Alias:     l.Alias,
		TargetURL: l.TargetURL,
		Title:     l.Title,
		Status:    l.Status,
		Clicks:    l.Clicks,
		CreatedAt: l.CreatedAt,
	}
	if !l.ExpiresAt.IsZero() {
		exp := l.ExpiresAt
		row.ExpiresAt = &exp
	}
	return row
}
