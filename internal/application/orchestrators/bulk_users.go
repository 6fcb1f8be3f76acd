package orchestrators

import (
	"context"
	"fmt"

	accountstore "linkdash/internal/adapters/storage/account"
	"linkdash/internal/application/projections"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/audit"
)

// BulkUserStore defines the account store interface needed by ExecuteBulkUserAction.
type BulkUserStore interface {
	List(ctx context.Context, filter accountstore.ListFilter) ([]account.Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]account.Account, error)
	SaveAll(ctx context.Context, accounts []account.Account) error
}

// BulkUserActionDeps holds dependencies for ExecuteBulkUserAction.
type BulkUserActionDeps struct {
	AccountStore BulkUserStore
	AuditStore   AuditStore
	// Revoke ends the sessions of an account that can no longer sign in. May be nil.
	Revoke func(accountID string)
}

// ExecuteBulkUserAction applies a bulk status change to user accounts.
// PRE: input.Actor is a super admin; input.Request is an account action
// POST: every legal transition is persisted in one transaction
// POST: deps.Revoke is called for every changed account that can no longer sign in
// INVARIANT: the actor's own account and super admin accounts are never changed
func ExecuteBulkUserAction(ctx context.Context, input BulkInput, deps BulkUserActionDeps) (BulkResult, error) {
	req := input.Request
	if err := validateBulk(req, account.IsValidAction, account.ErrUnknownAction); err != nil {
		return BulkResult{}, err
	}

	targets, missing, err := resolveUsers(ctx, input, deps.AccountStore)
	if err != nil {
		return BulkResult{}, fmt.Errorf("resolve users: %w", err)
	}
	result := BulkResult{Action: req.Action, Matched: len(targets), Missing: missing}

	changed := make([]account.Account, 0, len(targets))
	for _, a := range targets {
		if a.ID == input.Actor.ID {
			result.Skipped++
			continue
		}
		if err := a.Apply(req.Action); err != nil {
			result.Skipped++
			continue
		}
		changed = append(changed, a)
	}
	if err := deps.AccountStore.SaveAll(ctx, changed); err != nil {
		return BulkResult{}, fmt.Errorf("save users: %w", err)
	}
	result.Updated = len(changed)

	if deps.Revoke != nil {
		for _, a := range changed {
			if !a.CanSignIn() {
				deps.Revoke(a.ID)
			}
		}
	}

	recordBulk(ctx, deps.AuditStore, input, audit.CategoryAccount, "user", result)
	return result, nil
}

func resolveUsers(ctx context.Context, input BulkInput, store BulkUserStore) ([]account.Account, int, error) {
	req := input.Request
	if req.SelectAll {
		filter := projections.UserStoreFilter(storeParams(req.Filter, projections.UserSortColumns, projections.UserFilterKeys))
		all, err := collectAll(ctx, func(ctx context.Context, limit, offset int) ([]account.Account, error) {
			f := filter
			f.Limit, f.Offset = limit, offset
			return store.List(ctx, f)
		})
		return all, 0, err
	}
	ids := uniqueIDs(req.IDs)
	found, err := store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return found, len(ids) - len(found), nil
}
