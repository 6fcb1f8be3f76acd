package orchestrators

import (
	"context"
	"errors"
	"sort"
	"strings"

	accountstore "linkdash/internal/adapters/storage/account"
	linkstore "linkdash/internal/adapters/storage/link"
	withdrawalstore "linkdash/internal/adapters/storage/withdrawal"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/audit"
	"linkdash/internal/domain/link"
	"linkdash/internal/domain/withdrawal"
)

// --- in-memory test doubles ---

var errNotFound = errors.New("not found")

// page applies limit/offset to a slice already sorted by id.
func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

type memLinkStore struct {
	links   map[string]link.Link
	saveErr error
	saves   int
}

func newMemLinkStore(links ...link.Link) *memLinkStore {
	s := &memLinkStore{links: make(map[string]link.Link)}
	for _, l := range links {
		s.links[l.ID] = l
	}
	return s
}

func (s *memLinkStore) sorted() []link.Link {
	out := make([]link.Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memLinkStore) GetByAlias(_ context.Context, alias string) (link.Link, error) {
	for _, l := range s.links {
		if l.Alias == alias {
			return l, nil
		}
	}
	return link.Link{}, errNotFound
}

func (s *memLinkStore) Save(_ context.Context, l link.Link) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.links[l.ID] = l
	return nil
}

func (s *memLinkStore) List(_ context.Context, f linkstore.ListFilter) ([]link.Link, error) {
	var out []link.Link
	for _, l := range s.sorted() {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.OwnerID != "" && l.OwnerID != f.OwnerID {
			continue
		}
		if f.Search != "" && !strings.Contains(l.Alias, f.Search) {
			continue
		}
		out = append(out, l)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (s *memLinkStore) ListByIDs(_ context.Context, ids []string) ([]link.Link, error) {
	var out []link.Link
	for _, id := range ids {
		if l, ok := s.links[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memLinkStore) SaveAll(_ context.Context, links []link.Link) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	for _, l := range links {
		s.links[l.ID] = l
	}
	return nil
}

func (s *memLinkStore) DeleteAll(_ context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := s.links[id]; ok {
			delete(s.links, id)
			n++
		}
	}
	return n, nil
}

type memWithdrawalStore struct {
	items map[string]withdrawal.Withdrawal
}

func newMemWithdrawalStore(items ...withdrawal.Withdrawal) *memWithdrawalStore {
	s := &memWithdrawalStore{items: make(map[string]withdrawal.Withdrawal)}
	for _, w := range items {
		s.items[w.ID] = w
	}
	return s
}

func (s *memWithdrawalStore) Save(_ context.Context, w withdrawal.Withdrawal) error {
	s.items[w.ID] = w
	return nil
}

func (s *memWithdrawalStore) List(_ context.Context, f withdrawalstore.ListFilter) ([]withdrawal.Withdrawal, error) {
	var out []withdrawal.Withdrawal
	for _, w := range s.items {
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		if f.Method != "" && w.Method != f.Method {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, f.Limit, f.Offset), nil
}

func (s *memWithdrawalStore) ListByIDs(_ context.Context, ids []string) ([]withdrawal.Withdrawal, error) {
	var out []withdrawal.Withdrawal
	for _, id := range ids {
		if w, ok := s.items[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *memWithdrawalStore) SaveAll(_ context.Context, list []withdrawal.Withdrawal) error {
	for _, w := range list {
		s.items[w.ID] = w
	}
	return nil
}

type memAccountStore struct {
	accounts map[string]account.Account // keyed by id
}

func newMemAccountStore(accounts ...account.Account) *memAccountStore {
	s := &memAccountStore{accounts: make(map[string]account.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, errNotFound
	}
	return a, nil
}

func (s *memAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return account.Account{}, errNotFound
}

func (s *memAccountStore) Save(_ context.Context, a account.Account) error {
	s.accounts[a.ID] = a
	return nil
}

func (s *memAccountStore) List(_ context.Context, f accountstore.ListFilter) ([]account.Account, error) {
	var out []account.Account
	for _, a := range s.accounts {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Role != "" && a.Role != f.Role {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, f.Limit, f.Offset), nil
}

func (s *memAccountStore) ListByIDs(_ context.Context, ids []string) ([]account.Account, error) {
	var out []account.Account
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memAccountStore) SaveAll(_ context.Context, list []account.Account) error {
	for _, a := range list {
		s.accounts[a.ID] = a
	}
	return nil
}

type memAuditStore struct {
	events []audit.Event
}

func (s *memAuditStore) Save(_ context.Context, e audit.Event) error {
	s.events = append(s.events, e)
	return nil
}
