package orchestrators

import (
	"context"
	"fmt"

	linkstore "linkdash/internal/adapters/storage/link"
	"linkdash/internal/application/projections"
	"linkdash/internal/domain/audit"
	"linkdash/internal/domain/link"
)

// BulkLinkStore defines the link store interface needed by ExecuteBulkLinkAction.
type BulkLinkStore interface {
	List(ctx context.Context, filter linkstore.ListFilter) ([]link.Link, error)
	ListByIDs(ctx context.Context, ids []string) ([]link.Link, error)
	SaveAll(ctx context.Context, links []link.Link) error
	DeleteAll(ctx context.Context, ids []string) (int, error)
}

// BulkLinkActionDeps holds dependencies for ExecuteBulkLinkAction.
type BulkLinkActionDeps struct {
	LinkStore  BulkLinkStore
	AuditStore AuditStore
}

// ExecuteBulkLinkAction applies a bulk action to links.
// PRE: input.Request is a link action (activate, disable, block, delete)
// POST: every legal transition is persisted in one transaction; illegal ones are skipped
// INVARIANT: a select-all request is resolved against its filter now, not when it was built
func ExecuteBulkLinkAction(ctx context.Context, input BulkInput, deps BulkLinkActionDeps) (BulkResult, error) {
	req := input.Request
	if err := validateBulk(req, link.IsValidAction, link.ErrUnknownAction); err != nil {
		return BulkResult{}, err
	}

	targets, missing, err := resolveLinks(ctx, input, deps.LinkStore)
	if err != nil {
		return BulkResult{}, fmt.Errorf("resolve links: %w", err)
	}
	result := BulkResult{Action: req.Action, Matched: len(targets), Missing: missing}

	if req.Action == link.ActionDelete {
		ids := make([]string, len(targets))
		for i, l := range targets {
			ids[i] = l.ID
		}
		n, err := deps.LinkStore.DeleteAll(ctx, ids)
		if err != nil {
			return BulkResult{}, fmt.Errorf("delete links: %w", err)
		}
		result.Updated = n
		result.Skipped = len(targets) - n
	} else {
		changed := make([]link.Link, 0, len(targets))
		for _, l := range targets {
			if err := l.Apply(req.Action); err != nil {
				result.Skipped++
				continue
			}
			changed = append(changed, l)
		}
		if err := deps.LinkStore.SaveAll(ctx, changed); err != nil {
			return BulkResult{}, fmt.Errorf("save links: %w", err)
		}
		result.Updated = len(changed)
	}

	recordBulk(ctx, deps.AuditStore, input, audit.CategoryLink, "link", result)
	return result, nil
}

func resolveLinks(ctx context.Context, input BulkInput, store BulkLinkStore) ([]link.Link, int, error) {
	req := input.Request
	if req.SelectAll {
		filter := projections.LinkStoreFilter(storeParams(req.Filter, projections.LinkSortColumns, projections.LinkFilterKeys))
		all, err := collectAll(ctx, func(ctx context.Context, limit, offset int) ([]link.Link, error) {
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
