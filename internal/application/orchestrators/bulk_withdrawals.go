package orchestrators

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"linkdash/internal/adapters/email"
	withdrawalstore "linkdash/internal/adapters/storage/withdrawal"
	"linkdash/internal/application/projections"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/audit"
	"linkdash/internal/domain/withdrawal"
)

// BulkWithdrawalStore defines the withdrawal store interface needed by ExecuteBulkWithdrawalAction.
type BulkWithdrawalStore interface {
	List(ctx context.Context, filter withdrawalstore.ListFilter) ([]withdrawal.Withdrawal, error)
	ListByIDs(ctx context.Context, ids []string) ([]withdrawal.Withdrawal, error)
	SaveAll(ctx context.Context, list []withdrawal.Withdrawal) error
}

// WithdrawalRecipientStore resolves the users to notify about a decision.
type WithdrawalRecipientStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]account.Account, error)
}

// BulkWithdrawalActionDeps holds dependencies for ExecuteBulkWithdrawalAction.
type BulkWithdrawalActionDeps struct {
	WithdrawalStore BulkWithdrawalStore
	AccountStore    WithdrawalRecipientStore // optional: nil skips notices
	AuditStore      AuditStore
	Sender          email.Sender // optional: nil skips notices
	From            string
	Now             func() time.Time
}

// ExecuteBulkWithdrawalAction applies a bulk decision to withdrawals and emails affected users.
// PRE: input.Request is a withdrawal action; reject carries a non-blank reason
// POST: every legal transition is persisted in one transaction; illegal ones are skipped
// INVARIANT: a select-all request is resolved against its filter now, not when it was built
func ExecuteBulkWithdrawalAction(ctx context.Context, input BulkInput, deps BulkWithdrawalActionDeps) (BulkResult, error) {
	req := input.Request
	if err := validateBulk(req, withdrawal.IsValidAction, withdrawal.ErrUnknownAction); err != nil {
		return BulkResult{}, err
	}
	if req.Action == withdrawal.ActionReject && strings.TrimSpace(req.Reason) == "" {
		return BulkResult{}, fmt.Errorf("%w: %w", ErrInvalidBulkRequest, withdrawal.ErrReasonRequired)
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	targets, missing, err := resolveWithdrawals(ctx, input, deps.WithdrawalStore)
	if err != nil {
		return BulkResult{}, fmt.Errorf("resolve withdrawals: %w", err)
	}
	result := BulkResult{Action: req.Action, Matched: len(targets), Missing: missing}

	at := now().UTC()
	changed := make([]withdrawal.Withdrawal, 0, len(targets))
	for _, w := range targets {
		if err := w.Apply(req.Action, req.Reason, at); err != nil {
			result.Skipped++
			continue
		}
		changed = append(changed, w)
	}
	if err := deps.WithdrawalStore.SaveAll(ctx, changed); err != nil {
		return BulkResult{}, fmt.Errorf("save withdrawals: %w", err)
	}
	result.Updated = len(changed)

	recordBulk(ctx, deps.AuditStore, input, audit.CategoryWithdrawal, "withdrawal", result)

	if req.Action != withdrawal.ActionMarkPaid {
		notifyWithdrawalDecisions(ctx, deps, changed)
	}
	return result, nil
}

func resolveWithdrawals(ctx context.Context, input BulkInput, store BulkWithdrawalStore) ([]withdrawal.Withdrawal, int, error) {
	req := input.Request
	if req.SelectAll {
		filter := projections.WithdrawalStoreFilter(storeParams(req.Filter, projections.WithdrawalSortColumns, projections.WithdrawalFilterKeys))
		all, err := collectAll(ctx, func(ctx context.Context, limit, offset int) ([]withdrawal.Withdrawal, error) {
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

// notifyWithdrawalDecisions emails each user whose withdrawal was decided.
// Delivery failures are logged; the decision stands.
func notifyWithdrawalDecisions(ctx context.Context, deps BulkWithdrawalActionDeps, decided []withdrawal.Withdrawal) {
	if deps.Sender == nil || deps.AccountStore == nil || len(decided) == 0 {
		return
	}
	userIDs := make([]string, 0, len(decided))
	for _, w := range decided {
		userIDs = append(userIDs, w.UserID)
	}
	users, err := deps.AccountStore.ListByIDs(ctx, uniqueIDs(userIDs))
	if err != nil {
		slog.Warn("email_event", "event", "withdrawal_notice_lookup_failed", "error", err)
		return
	}
	emails := make(map[string]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}

	reqs := make([]email.SendRequest, 0, len(decided))
	for _, w := range decided {
		to, ok := emails[w.UserID]
		if !ok {
			continue
		}
		msg, err := withdrawalNotice(w, to, deps.From)
		if err != nil {
			slog.Warn("email_event", "event", "withdrawal_notice_render_failed", "withdrawal_id", w.ID, "error", err)
			continue
		}
		reqs = append(reqs, msg)
	}
	if len(reqs) == 0 {
		return
	}
	if _, err := deps.Sender.SendBatch(ctx, reqs); err != nil {
		slog.Warn("email_event", "event", "withdrawal_notice_failed", "count", len(reqs), "error", err)
	}
}

// withdrawalNotice builds the decision email for one withdrawal.
// The rejection reason is admin-written markdown.
func withdrawalNotice(w withdrawal.Withdrawal, to, from string) (email.SendRequest, error) {
	amount := fmt.Sprintf("$%d.%02d", w.AmountCents/100, w.AmountCents%100)
	var subject, body string
	switch w.Status {
	case withdrawal.StatusApproved:
		subject = "Your withdrawal was approved"
		body = fmt.Sprintf("<p>Your withdrawal of %s via %s was approved and will be paid shortly.</p>",
			amount, html.EscapeString(w.Method))
	case withdrawal.StatusRejected:
		reason, err := email.RenderMarkdown(w.Reason)
		if err != nil {
			return email.SendRequest{}, err
		}
		subject = "Your withdrawal was rejected"
		body = fmt.Sprintf("<p>Your withdrawal of %s was rejected.</p>\n%s", amount, reason)
	default:
		return email.SendRequest{}, fmt.Errorf("no notice for status %q", w.Status)
	}
	return email.SendRequest{To: []string{to}, From: from, Subject: subject, HTML: body}, nil
}
