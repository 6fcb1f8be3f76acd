package withdrawal

import (
	"errors"
	"strings"
	"time"
)

// Business rule constants
const (
	MinAmountCents  = 500
	MaxReasonLength = 1000
)

// Status constants
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusPaid     = "paid"
)

// Payout method constants
const (
	MethodPayPal = "paypal"
	MethodBank   = "bank"
	MethodCrypto = "crypto"
)

// Bulk action names accepted for withdrawals.
const (
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionMarkPaid = "mark_paid"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusPending, StatusApproved, StatusRejected, StatusPaid}

// ValidMethods contains all valid payout methods.
var ValidMethods = []string{MethodPayPal, MethodBank, MethodCrypto}

// Actions lists the bulk actions available for withdrawals.
var Actions = []string{ActionApprove, ActionReject, ActionMarkPaid}

// Domain errors
var (
	ErrAmountTooSmall  = errors.New("withdrawal amount is below the minimum")
	ErrInvalidMethod   = errors.New("method must be one of: paypal, bank, crypto")
	ErrInvalidStatus   = errors.New("status must be one of: pending, approved, rejected, paid")
	ErrNotPending      = errors.New("withdrawal is not pending")
	ErrNotApproved     = errors.New("withdrawal is not approved")
	ErrReasonRequired  = errors.New("a reason is required to reject a withdrawal")
	ErrReasonTooLong   = errors.New("reason cannot exceed 1000 characters")
	ErrUnknownAction   = errors.New("unknown withdrawal action")
	ErrMissingUser     = errors.New("withdrawal must belong to a user")
	ErrMissingDecision = errors.New("decided withdrawals must record a decision time")
)

// Withdrawal is a member's request to pay out earnings.
type Withdrawal struct {
	ID          string
	UserID      string
	AmountCents int
	Method      string
	Status      string
	Reason      string // set on rejection
	RequestedAt time.Time
	DecidedAt   time.Time
	PaidAt      time.Time
}

// Validate checks if the Withdrawal has valid data.
// PRE: Withdrawal struct is populated
// POST: Returns nil if valid, error otherwise
func (w *Withdrawal) Validate() error {
	if strings.TrimSpace(w.UserID) == "" {
		return ErrMissingUser
	}
	if w.AmountCents < MinAmountCents {
		return ErrAmountTooSmall
	}
	if !contains(ValidMethods, w.Method) {
		return ErrInvalidMethod
	}
	if !contains(ValidStatuses, w.Status) {
		return ErrInvalidStatus
	}
	if len(w.Reason) > MaxReasonLength {
		return ErrReasonTooLong
	}
	if w.Status != StatusPending && w.DecidedAt.IsZero() {
		return ErrMissingDecision
	}
	return nil
}

// Approve moves a pending withdrawal to approved.
// PRE: Status is pending
// POST: Status is approved, DecidedAt is now
func (w *Withdrawal) Approve(now time.Time) error {
	if w.Status != StatusPending {
		return ErrNotPending
	}
	w.Status = StatusApproved
	w.DecidedAt = now
	return nil
}

// Reject moves a pending withdrawal to rejected with a reason.
// PRE: Status is pending, reason is non-empty
// POST: Status is rejected, Reason is set
func (w *Withdrawal) Reject(reason string, now time.Time) error {
	if w.Status != StatusPending {
		return ErrNotPending
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if len(reason) > MaxReasonLength {
		return ErrReasonTooLong
	}
	w.Status = StatusRejected
	w.Reason = reason
	w.DecidedAt = now
	return nil
}

// MarkPaid records that an approved withdrawal was paid out.
// PRE: Status is approved
// POST: Status is paid, PaidAt is now
func (w *Withdrawal) MarkPaid(now time.Time) error {
	if w.Status != StatusApproved {
		return ErrNotApproved
	}
	w.Status = StatusPaid
	w.PaidAt = now
	return nil
}

// Apply performs the named bulk action.
// PRE: action is one of Actions
// POST: Status transitioned or a domain error returned
func (w *Withdrawal) Apply(action, reason string, now time.Time) error {
	switch action {
	case ActionApprove:
		return w.Approve(now)
	case ActionReject:
		return w.Reject(reason, now)
	case ActionMarkPaid:
		return w.MarkPaid(now)
	}
	return ErrUnknownAction
}

// IsValidAction reports whether action is a known withdrawal bulk action.
func IsValidAction(action string) bool {
	return contains(Actions, action)
}

// StatusAfter returns the status a withdrawal would have after action.
func StatusAfter(action string) (string, bool) {
	switch action {
	case ActionApprove:
		return StatusApproved, true
	case ActionReject:
		return StatusRejected, true
	case ActionMarkPaid:
		return StatusPaid, true
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
