package withdrawal_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"linkdash/internal/domain/withdrawal"
)

// TestWithdrawalValidation tests validation of Withdrawal.
func TestWithdrawalValidation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		w       withdrawal.Withdrawal
		wantErr error
	}{
		{
			name:    "valid pending",
			w:       withdrawal.Withdrawal{UserID: "u1", AmountCents: 2500, Method: withdrawal.MethodPayPal, Status: withdrawal.StatusPending},
			wantErr: nil,
		},
		{
			name:    "below minimum",
			w:       withdrawal.Withdrawal{UserID: "u1", AmountCents: 100, Method: withdrawal.MethodPayPal, Status: withdrawal.StatusPending},
			wantErr: withdrawal.ErrAmountTooSmall,
		},
		{
			name:    "unknown method",
			w:       withdrawal.Withdrawal{UserID: "u1", AmountCents: 2500, Method: "cheque", Status: withdrawal.StatusPending},
			wantErr: withdrawal.ErrInvalidMethod,
		},
		{
			name:    "approved without decision time",
			w:       withdrawal.Withdrawal{UserID: "u1", AmountCents: 2500, Method: withdrawal.MethodBank, Status: withdrawal.StatusApproved},
			wantErr: withdrawal.ErrMissingDecision,
		},
		{
			name:    "approved with decision time",
			w:       withdrawal.Withdrawal{UserID: "u1", AmountCents: 2500, Method: withdrawal.MethodBank, Status: withdrawal.StatusApproved, DecidedAt: now},
			wantErr: nil,
		},
		{
			name:    "no user",
			w:       withdrawal.Withdrawal{AmountCents: 2500, Method: withdrawal.MethodBank, Status: withdrawal.StatusPending},
			wantErr: withdrawal.ErrMissingUser,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.w.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestWithdrawalLifecycle walks pending -> approved -> paid.
func TestWithdrawalLifecycle(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	w := withdrawal.Withdrawal{Status: withdrawal.StatusPending}

	if err := w.MarkPaid(now); !errors.Is(err, withdrawal.ErrNotApproved) {
		t.Fatalf("MarkPaid on pending = %v, want ErrNotApproved", err)
	}
	if err := w.Apply(withdrawal.ActionApprove, "", now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !w.DecidedAt.Equal(now) {
		t.Errorf("DecidedAt = %v, want %v", w.DecidedAt, now)
	}
	if err := w.Apply(withdrawal.ActionApprove, "", now); !errors.Is(err, withdrawal.ErrNotPending) {
		t.Errorf("second approve = %v, want ErrNotPending", err)
	}
	if err := w.Apply(withdrawal.ActionMarkPaid, "", now.Add(time.Hour)); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if w.Status != withdrawal.StatusPaid {
		t.Errorf("Status = %s, want paid", w.Status)
	}
}

// TestWithdrawalReject verifies reason handling on rejection.
func TestWithdrawalReject(t *testing.T) {
	now := time.Now()

	w := withdrawal.Withdrawal{Status: withdrawal.StatusPending}
	if err := w.Reject("   ", now); !errors.Is(err, withdrawal.ErrReasonRequired) {
		t.Errorf("blank reason = %v, want ErrReasonRequired", err)
	}
	if err := w.Reject(strings.Repeat("x", withdrawal.MaxReasonLength+1), now); !errors.Is(err, withdrawal.ErrReasonTooLong) {
		t.Errorf("long reason = %v, want ErrReasonTooLong", err)
	}
	if w.Status != withdrawal.StatusPending {
		t.Fatalf("failed rejects must not change status, got %s", w.Status)
	}
	if err := w.Reject(" Payout details do not match account. ", now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if w.Reason != "Payout details do not match account." {
		t.Errorf("Reason = %q", w.Reason)
	}
}
