package projections

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	accountstore "linkdash/internal/adapters/storage/account"
	linkstore "linkdash/internal/adapters/storage/link"
	withdrawalstore "linkdash/internal/adapters/storage/withdrawal"
	"linkdash/internal/application/listutil"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/link"
	"linkdash/internal/domain/withdrawal"
)

type mockLinkStore struct {
	links      []link.Link
	total      int
	lastFilter linkstore.ListFilter
	counts     map[string]int
	err        error
}

// List records the filter and returns the seeded links.
func (m *mockLinkStore) List(_ context.Context, f linkstore.ListFilter) ([]link.Link, error) {
	m.lastFilter = f
	return m.links, m.err
}

// Count returns the seeded total.
func (m *mockLinkStore) Count(_ context.Context, _ linkstore.ListFilter) (int, error) {
	return m.total, m.err
}

// CountByStatus returns the seeded status counts.
func (m *mockLinkStore) CountByStatus(_ context.Context) (map[string]int, error) {
	return m.counts, m.err
}

type mockWithdrawalStore struct {
	list       []withdrawal.Withdrawal
	lastFilter withdrawalstore.ListFilter
	counts     map[string]int
	approved   int
}

// List records the filter and returns the seeded withdrawals.
func (m *mockWithdrawalStore) List(_ context.Context, f withdrawalstore.ListFilter) ([]withdrawal.Withdrawal, error) {
	m.lastFilter = f
	return m.list, nil
}

// Count returns the number of seeded withdrawals.
func (m *mockWithdrawalStore) Count(_ context.Context, _ withdrawalstore.ListFilter) (int, error) {
	return len(m.list), nil
}

// CountByStatus returns the seeded status counts.
func (m *mockWithdrawalStore) CountByStatus(_ context.Context) (map[string]int, error) {
	return m.counts, nil
}

// SumByStatus returns the seeded approved total.
func (m *mockWithdrawalStore) SumByStatus(_ context.Context, _ string) (int, error) {
	return m.approved, nil
}

type mockAccountStore struct {
	accounts []account.Account
	counts   map[string]int
}

// List returns the seeded accounts.
func (m *mockAccountStore) List(_ context.Context, _ accountstore.ListFilter) ([]account.Account, error) {
	return m.accounts, nil
}

// ListByIDs returns seeded accounts whose IDs are requested.
func (m *mockAccountStore) ListByIDs(_ context.Context, ids []string) ([]account.Account, error) {
	var out []account.Account
	for _, a := range m.accounts {
		for _, id := range ids {
			if a.ID == id {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

// Count returns the number of seeded accounts.
func (m *mockAccountStore) Count(_ context.Context, _ accountstore.ListFilter) (int, error) {
	return len(m.accounts), nil
}

// CountByStatus returns the seeded status counts.
func (m *mockAccountStore) CountByStatus(_ context.Context) (map[string]int, error) {
	return m.counts, nil
}

func params(raw string, sortCols, filterKeys []string) listutil.ListParams {
	q, _ := url.ParseQuery(raw)
	return listutil.ParseListParams(q, sortCols, filterKeys)
}

// TestQueryGetLinkList verifies filter translation, paging, and row mapping.
func TestQueryGetLinkList(t *testing.T) {
	exp := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	store := &mockLinkStore{
		total: 237,
		links: []link.Link{
			{ID: "link-42", Alias: "promo", Status: link.StatusActive, ExpiresAt: exp},
			{ID: "link-43", Alias: "sale", Status: link.StatusActive},
		},
	}
	p := params("status=active&q=pro&sort=clicks&dir=desc&page=3&per_page=50", LinkSortColumns, LinkFilterKeys)

	result, err := QueryGetLinkList(context.Background(), GetLinkListQuery{Params: p}, GetLinkListDeps{LinkStore: store})
	if err != nil {
		t.Fatalf("QueryGetLinkList() error = %v", err)
	}

	want := linkstore.ListFilter{Status: "active", Search: "pro", Sort: "clicks", Dir: "desc", Limit: 50, Offset: 100}
	if store.lastFilter != want {
		t.Errorf("store filter = %+v, want %+v", store.lastFilter, want)
	}
	if result.Page.Total != 237 || result.Page.TotalPages != 5 || result.Page.Page != 3 {
		t.Errorf("page = %+v, want total 237 pages 5 page 3", result.Page)
	}
	if len(result.Rows) != 2 || result.Rows[0].ExpiresAt == nil || result.Rows[1].ExpiresAt != nil {
		t.Errorf("rows = %+v, want expiry only on the first", result.Rows)
	}
}

// TestQueryGetLinkList_OwnerOverride verifies a member cannot widen the owner filter.
func TestQueryGetLinkList_OwnerOverride(t *testing.T) {
	store := &mockLinkStore{}
	p := params("owner=someone-else", LinkSortColumns, LinkFilterKeys)

	_, err := QueryGetLinkList(context.Background(), GetLinkListQuery{Params: p, OwnerID: "me"}, GetLinkListDeps{LinkStore: store})
	if err != nil {
		t.Fatalf("QueryGetLinkList() error = %v", err)
	}
	if store.lastFilter.OwnerID != "me" {
		t.Errorf("OwnerID = %q, want me", store.lastFilter.OwnerID)
	}
}

// TestQueryGetLinkList_StoreError verifies store errors propagate.
func TestQueryGetLinkList_StoreError(t *testing.T) {
	boom := errors.New("disk gone")
	_, err := QueryGetLinkList(context.Background(), GetLinkListQuery{}, GetLinkListDeps{LinkStore: &mockLinkStore{err: boom}})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

// TestQueryGetWithdrawalList verifies user emails are joined onto rows.
func TestQueryGetWithdrawalList(t *testing.T) {
	decided := time.Now()
	ws := &mockWithdrawalStore{list: []withdrawal.Withdrawal{
		{ID: "w1", UserID: "u1", AmountCents: 1500, Status: withdrawal.StatusPending},
		{ID: "w2", UserID: "u2", AmountCents: 900, Status: withdrawal.StatusRejected, Reason: "dup", DecidedAt: decided},
	}}
	as := &mockAccountStore{accounts: []account.Account{
		{ID: "u1", Email: "ana@example.com"},
		{ID: "u2", Email: "ben@example.com"},
	}}
	p := params("status=pending&method=bank", WithdrawalSortColumns, WithdrawalFilterKeys)

	result, err := QueryGetWithdrawalList(context.Background(), GetWithdrawalListQuery{Params: p},
		GetWithdrawalListDeps{WithdrawalStore: ws, AccountStore: as})
	if err != nil {
		t.Fatalf("QueryGetWithdrawalList() error = %v", err)
	}
	if ws.lastFilter.Status != "pending" || ws.lastFilter.Method != "bank" {
		t.Errorf("store filter = %+v", ws.lastFilter)
	}
	if result.Rows[0].UserEmail != "ana@example.com" || result.Rows[1].UserEmail != "ben@example.com" {
		t.Errorf("emails not joined: %+v", result.Rows)
	}
	if result.Rows[0].DecidedAt != nil || result.Rows[1].DecidedAt == nil {
		t.Errorf("DecidedAt mapping wrong: %+v", result.Rows)
	}
}

// TestQueryGetUserList verifies lockout state is computed at query time.
func TestQueryGetUserList(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	as := &mockAccountStore{accounts: []account.Account{
		{ID: "u1", Email: "ana@example.com", LockedUntil: now.Add(time.Minute)},
		{ID: "u2", Email: "ben@example.com", LockedUntil: now.Add(-time.Minute)},
	}}

	result, err := QueryGetUserList(context.Background(), GetUserListQuery{Params: params("", UserSortColumns, UserFilterKeys)},
		GetUserListDeps{AccountStore: as, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("QueryGetUserList() error = %v", err)
	}
	if !result.Rows[0].Locked || result.Rows[1].Locked {
		t.Errorf("Locked flags = %v %v, want true false", result.Rows[0].Locked, result.Rows[1].Locked)
	}
}

// TestQueryGetDashboard verifies user totals are gated on IncludeUsers.
func TestQueryGetDashboard(t *testing.T) {
	deps := GetDashboardDeps{
		LinkStore:       &mockLinkStore{counts: map[string]int{"active": 200, "blocked": 37}},
		WithdrawalStore: &mockWithdrawalStore{counts: map[string]int{"pending": 4}, approved: 12000},
		AccountStore:    &mockAccountStore{counts: map[string]int{"active": 10}},
	}

	admin, err := QueryGetDashboard(context.Background(), GetDashboardQuery{}, deps)
	if err != nil {
		t.Fatalf("QueryGetDashboard() error = %v", err)
	}
	if admin.Links["blocked"] != 37 || admin.Withdrawals["pending"] != 4 || admin.PendingPayoutCents != 12000 {
		t.Errorf("admin dashboard = %+v", admin)
	}
	if admin.Users != nil {
		t.Error("Users should be omitted for admins")
	}

	super, err := QueryGetDashboard(context.Background(), GetDashboardQuery{IncludeUsers: true}, deps)
	if err != nil {
		t.Fatalf("QueryGetDashboard() error = %v", err)
	}
	if super.Users["active"] != 10 {
		t.Errorf("Users = %v, want active 10", super.Users)
	}
}
