package orchestrators

import (
	"context"
	"errors"
	"testing"

	"linkdash/internal/domain/account"
)

// TestSeed_AdminOnly verifies only the super admin is created without demo data.
func TestSeed_AdminOnly(t *testing.T) {
	accounts := newMemAccountStore()
	deps := SeedDeps{AccountStore: accounts, LinkStore: newMemLinkStore(), WithdrawalStore: newMemWithdrawalStore()}

	res, err := ExecuteSeed(context.Background(), SeedInput{AdminEmail: "root@example.com", AdminPassword: "super-secret-pw"}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Accounts != 1 || len(accounts.accounts) != 1 {
		t.Fatalf("result = %+v", res)
	}
	root, _ := accounts.GetByEmail(context.Background(), "root@example.com")
	if root.Role != account.RoleSuperAdmin || root.Status != account.StatusActive {
		t.Errorf("root = %+v", root)
	}
}

// TestSeed_DemoIsIdempotent verifies a second run creates nothing.
func TestSeed_DemoIsIdempotent(t *testing.T) {
	accounts := newMemAccountStore()
	links := newMemLinkStore()
	withdrawals := newMemWithdrawalStore()
	deps := SeedDeps{AccountStore: accounts, LinkStore: links, WithdrawalStore: withdrawals}
	input := SeedInput{AdminEmail: "root@example.com", AdminPassword: "super-secret-pw", Demo: true, LinksPerUser: 10}

	res, err := ExecuteSeed(context.Background(), input, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Accounts != 5 || res.Links != 30 || res.Withdrawals != 15 {
		t.Errorf("first run = %+v", res)
	}

	res, err = ExecuteSeed(context.Background(), input, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != (SeedResult{}) {
		t.Errorf("second run = %+v, want nothing created", res)
	}
	if len(links.links) != 30 || len(withdrawals.items) != 15 {
		t.Errorf("links = %d, withdrawals = %d", len(links.links), len(withdrawals.items))
	}
}

// TestSeed_RequiresAdmin verifies missing credentials are an error.
func TestSeed_RequiresAdmin(t *testing.T) {
	_, err := ExecuteSeed(context.Background(), SeedInput{Demo: true}, SeedDeps{AccountStore: newMemAccountStore()})
	if !errors.Is(err, ErrSeedAdminRequired) {
		t.Errorf("err = %v, want ErrSeedAdminRequired", err)
	}
}
