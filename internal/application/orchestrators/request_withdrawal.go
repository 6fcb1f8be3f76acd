package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"linkdash/internal/domain/withdrawal"
)

// RequestWithdrawalStore defines the store interface needed by RequestWithdrawal.
type RequestWithdrawalStore interface {
	Save(ctx context.Context, w withdrawal.Withdrawal) error
}

// RequestWithdrawalInput carries input for the request withdrawal orchestrator.
type RequestWithdrawalInput struct {
	UserID      string
	AmountCents int
	Method      string
}

// RequestWithdrawalDeps holds dependencies for RequestWithdrawal.
type RequestWithdrawalDeps struct {
	WithdrawalStore RequestWithdrawalStore
	Now             func() time.Time
}

// ExecuteRequestWithdrawal records a member's payout request.
// PRE: UserID identifies an existing account
// POST: A pending withdrawal is persisted
func ExecuteRequestWithdrawal(ctx context.Context, input RequestWithdrawalInput, deps RequestWithdrawalDeps) (withdrawal.Withdrawal, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	w := withdrawal.Withdrawal{
		ID:          uuid.New().String(),
		UserID:      input.UserID,
		AmountCents: input.AmountCents,
		Method:      input.Method,
		Status:      withdrawal.StatusPending,
		RequestedAt: now().UTC(),
	}
	if err := w.Validate(); err != nil {
		return withdrawal.Withdrawal{}, err
	}
	if err := deps.WithdrawalStore.Save(ctx, w); err != nil {
		return withdrawal.Withdrawal{}, fmt.Errorf("save withdrawal: %w", err)
	}

	slog.Info("withdrawal_event", "event", "withdrawal_requested", "withdrawal_id", w.ID, "user_id", w.UserID, "amount_cents", w.AmountCents)
	return w, nil
}
