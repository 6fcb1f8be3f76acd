package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"linkdash/internal/application/listutil"
	"linkdash/internal/domain/audit"
	"linkdash/internal/domain/selection"
)

// resolvePageSize is the page size used when walking every row matching a filter.
const resolvePageSize = 500

// ErrInvalidBulkRequest wraps every reason a bulk request is rejected before it runs.
var ErrInvalidBulkRequest = errors.New("invalid bulk request")

// AuditStore defines the audit store interface needed by the bulk orchestrators.
type AuditStore interface {
	Save(ctx context.Context, e audit.Event) error
}

// BulkInput carries input for the bulk action orchestrators.
type BulkInput struct {
	Actor   audit.Actor
	Request selection.Request
}

// BulkResult reports what a bulk action did.
// Matched counts the targets found; Updated + Skipped == Matched.
type BulkResult struct {
	Action  string `json:"action"`
	Matched int    `json:"matched"`
	Updated int    `json:"updated"`
	Skipped int    `json:"skipped"`
	Missing int    `json:"missing"`
}

// validateBulk checks the request shape and that action is one the resource knows.
func validateBulk(req selection.Request, validAction func(string) bool, unknown error) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBulkRequest, err)
	}
	if !validAction(req.Action) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidBulkRequest, unknown, req.Action)
	}
	return nil
}

// storeParams parses the filter a select-all request carries, the way a list page would.
func storeParams(f selection.Filter, sortCols, filterKeys []string) listutil.ListParams {
	return listutil.ParamsFromFilter(f, 1, listutil.DefaultPerPage, sortCols, filterKeys)
}

// collectAll walks every page of list until a short page is returned.
func collectAll[T any](ctx context.Context, list func(ctx context.Context, limit, offset int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += resolvePageSize {
		page, err := list(ctx, resolvePageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < resolvePageSize {
			return all, nil
		}
	}
}

// uniqueIDs drops duplicate ids while keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// bulkMetadata is the audit payload recorded for each bulk action.
type bulkMetadata struct {
	SelectAll bool             `json:"select_all"`
	Filter    selection.Filter `json:"filter,omitempty"`
	IDs       []string         `json:"ids,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	BulkResult
}

// recordBulk writes the audit event for a finished bulk action and logs it.
// Audit failures are logged, not returned: the action itself already committed.
func recordBulk(ctx context.Context, store AuditStore, in BulkInput, category audit.Category, resourceType string, result BulkResult) {
	req := in.Request
	meta := bulkMetadata{SelectAll: req.SelectAll, Filter: req.Filter, Reason: req.Reason, BulkResult: result}
	if !req.SelectAll {
		meta.IDs = slices.Clone(req.IDs)
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		raw = []byte("{}")
	}

	severity := audit.SeverityInfo
	if category == audit.CategoryAccount || req.SelectAll {
		severity = audit.SeverityWarning
	}
	event := audit.NewEvent(in.Actor, category, audit.ActionBulkUpdate).
		WithSeverity(severity).
		WithResource(resourceType, "").
		WithDescription(fmt.Sprintf("%s applied to %d of %d %ss", req.Action, result.Updated, result.Matched, resourceType)).
		WithMetadata(string(raw))
	if store != nil {
		if err := store.Save(ctx, event); err != nil {
			slog.Error("audit_event", "event", "save_failed", "error", err, "action", req.Action)
		}
	}

	slog.Info("bulk_event",
		"event", resourceType+"_"+req.Action,
		"actor", in.Actor.Email,
		"select_all", req.SelectAll,
		"matched", result.Matched,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"missing", result.Missing,
	)
}
