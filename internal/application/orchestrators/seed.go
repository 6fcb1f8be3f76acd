package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkdash/internal/domain/account"
	"linkdash/internal/domain/link"
	"linkdash/internal/domain/withdrawal"
)

// ErrSeedAdminRequired is returned when no super admin credentials are configured.
var ErrSeedAdminRequired = errors.New("admin email and password are required to seed")

// SeedDeps holds stores needed for seeding.
type SeedDeps struct {
	AccountStore    seedAccountStore
	LinkStore       seedLinkStore
	WithdrawalStore seedWithdrawalStore
	Now             func() time.Time
}

type seedAccountStore interface {
	Save(ctx context.Context, a account.Account) error
	GetByEmail(ctx context.Context, email string) (account.Account, error)
}

type seedLinkStore interface {
	SaveAll(ctx context.Context, links []link.Link) error
}

type seedWithdrawalStore interface {
	SaveAll(ctx context.Context, list []withdrawal.Withdrawal) error
}

// SeedInput carries the configured super admin and whether to add demo data.
type SeedInput struct {
	AdminEmail    string
	AdminPassword string
	Demo          bool
	LinksPerUser  int // demo only; defaults to 30
}

// SeedResult reports how many rows the seed created.
type SeedResult struct {
	Accounts    int
	Links       int
	Withdrawals int
}

// demoPassword is shared by every demo account.
const demoPassword = "linkdash-demo!"

// demoAccounts returns the demo accounts created alongside the super admin.
func demoAccounts() []account.Account {
	return []account.Account{
		{Email: "admin@linkdash.test", Name: "Demo Admin", Role: account.RoleAdmin},
		{Email: "ana@linkdash.test", Name: "Ana Member", Role: account.RoleMember},
		{Email: "bo@linkdash.test", Name: "Bo Member", Role: account.RoleMember},
		{Email: "cy@linkdash.test", Name: "Cy Member", Role: account.RoleMember, Status: account.StatusSuspended},
	}
}

// ExecuteSeed creates the super admin and, optionally, demo accounts with links and withdrawals.
// It is idempotent: accounts that already exist (by email) are skipped along with their demo data.
// PRE: Database is migrated
// POST: The super admin exists; with Demo, each new demo member owns links and withdrawals
func ExecuteSeed(ctx context.Context, input SeedInput, deps SeedDeps) (SeedResult, error) {
	if input.AdminEmail == "" || input.AdminPassword == "" {
		return SeedResult{}, ErrSeedAdminRequired
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	var result SeedResult

	admin := account.Account{Email: input.AdminEmail, Name: "Super Admin", Role: account.RoleSuperAdmin}
	created, err := seedAccount(ctx, deps.AccountStore, admin, input.AdminPassword, now())
	if err != nil {
		return result, err
	}
	if created {
		result.Accounts++
	}
	if !input.Demo {
		return result, nil
	}

	perUser := input.LinksPerUser
	if perUser <= 0 {
		perUser = 30
	}
	for _, def := range demoAccounts() {
		acct := def
		created, err := seedAccount(ctx, deps.AccountStore, acct, demoPassword, now())
		if err != nil {
			return result, err
		}
		if !created {
			continue
		}
		result.Accounts++
		if acct.Role != account.RoleMember {
			continue
		}
		stored, err := deps.AccountStore.GetByEmail(ctx, acct.Email)
		if err != nil {
			return result, fmt.Errorf("seed %s: reload: %w", acct.Email, err)
		}

		links := demoLinks(stored.ID, perUser, now())
		if err := deps.LinkStore.SaveAll(ctx, links); err != nil {
			return result, fmt.Errorf("seed links for %s: %w", acct.Email, err)
		}
		result.Links += len(links)

		list := demoWithdrawals(stored.ID, now())
		if err := deps.WithdrawalStore.SaveAll(ctx, list); err != nil {
			return result, fmt.Errorf("seed withdrawals for %s: %w", acct.Email, err)
		}
		result.Withdrawals += len(list)
	}

	slog.Info("seed_event", "event", "seeded", "accounts", result.Accounts, "links", result.Links, "withdrawals", result.Withdrawals)
	return result, nil
}

// seedAccount saves def with password unless an account with its email exists.
func seedAccount(ctx context.Context, store seedAccountStore, def account.Account, password string, now time.Time) (bool, error) {
	if _, err := store.GetByEmail(ctx, def.Email); err == nil {
		return false, nil
	}
	def.ID = uuid.New().String()
	def.CreatedAt = now.UTC()
	if def.Status == "" {
		def.Status = account.StatusActive
	}
	if err := def.SetPassword(password); err != nil {
		return false, fmt.Errorf("seed %s: set password: %w", def.Email, err)
	}
	if err := def.Validate(); err != nil {
		return false, fmt.Errorf("seed %s: %w", def.Email, err)
	}
	if err := store.Save(ctx, def); err != nil {
		return false, fmt.Errorf("seed %s: save: %w", def.Email, err)
	}
	slog.Info("seed_event", "event", "account_created", "email", def.Email, "role", def.Role)
	return true, nil
}

// demoLinks cycles through every link status so filters have something to match.
func demoLinks(ownerID string, n int, now time.Time) []link.Link {
	statuses := []string{link.StatusActive, link.StatusActive, link.StatusDisabled, link.StatusBlocked, link.StatusExpired}
	links := make([]link.Link, n)
	for i := range links {
		links[i] = link.Link{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			Alias:     generateAlias(),
			TargetURL: fmt.Sprintf("https://example.com/article/%d", i+1),
			Title:     fmt.Sprintf("Article %d", i+1),
			Status:    statuses[i%len(statuses)],
			Clicks:    (i * 37) % 1000,
			CreatedAt: now.Add(-time.Duration(i) * time.Hour).UTC(),
		}
	}
	return links
}

// demoWithdrawals creates one withdrawal per status.
func demoWithdrawals(userID string, now time.Time) []withdrawal.Withdrawal {
	at := now.UTC()
	return []withdrawal.Withdrawal{
		{ID: uuid.New().String(), UserID: userID, AmountCents: 2500, Method: withdrawal.MethodPayPal, Status: withdrawal.StatusPending, RequestedAt: at.Add(-2 * time.Hour)},
		{ID: uuid.New().String(), UserID: userID, AmountCents: 12000, Method: withdrawal.MethodBank, Status: withdrawal.StatusPending, RequestedAt: at.Add(-26 * time.Hour)},
		{ID: uuid.New().String(), UserID: userID, AmountCents: 800, Method: withdrawal.MethodCrypto, Status: withdrawal.StatusApproved, RequestedAt: at.Add(-72 * time.Hour), DecidedAt: at.Add(-48 * time.Hour)},
		{ID: uuid.New().String(), UserID: userID, AmountCents: 5000, Method: withdrawal.MethodPayPal, Status: withdrawal.StatusRejected, Reason: "Payout details did not match the account holder.", RequestedAt: at.Add(-96 * time.Hour), DecidedAt: at.Add(-90 * time.Hour)},
		{ID: uuid.New().String(), UserID: userID, AmountCents: 1500, Method: withdrawal.MethodBank, Status: withdrawal.StatusPaid, RequestedAt: at.Add(-240 * time.Hour), DecidedAt: at.Add(-230 * time.Hour), PaidAt: at.Add(-200 * time.Hour)},
	}
}
