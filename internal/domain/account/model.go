package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
	MaxNameLength  = 100
	MinPassword    = 12
)

// Lockout policy
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// Role constants
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleMember     = "member"
)

// Account status constants
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusBanned    = "banned"
)

// Bulk action names accepted for user administration.
const (
	ActionActivate = "activate"
	ActionSuspend  = "suspend"
	ActionBan      = "ban"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleSuperAdmin, RoleAdmin, RoleMember}

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusActive, StatusSuspended, StatusBanned}

// Actions lists the bulk actions available for accounts.
var Actions = []string{ActionActivate, ActionSuspend, ActionBan}

// Domain errors
var (
	ErrInvalidEmail      = errors.New("email must contain '@'")
	ErrEmptyEmail        = errors.New("email cannot be empty")
	ErrInvalidRole       = errors.New("role must be one of: super_admin, admin, member")
	ErrInvalidStatus     = errors.New("status must be one of: active, suspended, banned")
	ErrEmptyPassword     = errors.New("password cannot be empty")
	ErrPasswordTooShort  = errors.New("password must be at least 12 characters")
	ErrWrongPassword     = errors.New("incorrect password")
	ErrAlreadyActive     = errors.New("account is already active")
	ErrAlreadySuspended  = errors.New("account is already suspended")
	ErrAlreadyBanned     = errors.New("account is already banned")
	ErrProtectedAccount  = errors.New("super admin accounts cannot be suspended or banned")
	ErrUnknownAction     = errors.New("unknown account action")
	ErrNameTooLong       = errors.New("name cannot exceed 100 characters")
	ErrEmailTooLong      = errors.New("email cannot exceed 254 characters")
	ErrAccountNotAllowed = errors.New("account is suspended or banned")
)

// Account holds state for a user of the dashboard.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Status       string
	CreatedAt    time.Time
	FailedLogins int
	LockedUntil  time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	if len(a.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !contains(ValidRoles, a.Role) {
		return ErrInvalidRole
	}
	if !contains(ValidStatuses, a.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt with cost 12.
// PRE: plaintext is non-empty and >= 12 characters
// POST: PasswordHash is set to bcrypt hash
func (a *Account) SetPassword(plaintext string) error {
	if plaintext == "" {
		return ErrEmptyPassword
	}
	if len(plaintext) < MinPassword {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// PRE: PasswordHash is set
// INVARIANT: Account fields are not mutated
func (a *Account) CheckPassword(plaintext string) error {
	if a.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsLocked returns true if the account is currently locked out.
// INVARIANT: Account fields are not mutated
func (a *Account) IsLocked(now time.Time) bool {
	if a.LockedUntil.IsZero() {
		return false
	}
	return now.Before(a.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the account after 5 failures.
// PRE: Account exists
// POST: FailedLogins incremented; LockedUntil set if >= 5 failures
func (a *Account) RecordFailedLogin(now time.Time) {
	a.FailedLogins++
	if a.FailedLogins >= MaxFailedLogins {
		a.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
// PRE: Account exists
// POST: FailedLogins is 0, LockedUntil is zero
func (a *Account) ResetFailedLogins() {
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
}

// CanSignIn reports whether the account status allows signing in.
// INVARIANT: Account fields are not mutated
func (a *Account) CanSignIn() bool {
	return a.Status == StatusActive
}

// IsAdmin returns true if the account can use the admin dashboard.
// INVARIANT: Account fields are not mutated
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// IsSuperAdmin returns true if the account has the super admin role.
// INVARIANT: Account fields are not mutated
func (a *Account) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// Activate restores a suspended or banned account.
// PRE: Account is not already active
// POST: Status is active, lockout cleared
func (a *Account) Activate() error {
	if a.Status == StatusActive {
		return ErrAlreadyActive
	}
	a.Status = StatusActive
	a.ResetFailedLogins()
	return nil
}

// Suspend temporarily blocks sign-in.
// PRE: Account is active and not a super admin
// POST: Status is suspended
func (a *Account) Suspend() error {
	if a.IsSuperAdmin() {
		return ErrProtectedAccount
	}
	switch a.Status {
	case StatusSuspended:
		return ErrAlreadySuspended
	case StatusBanned:
		return ErrAlreadyBanned
	}
	a.Status = StatusSuspended
	return nil
}

// Ban permanently blocks sign-in.
// PRE: Account is not banned and not a super admin
// POST: Status is banned
func (a *Account) Ban() error {
	if a.IsSuperAdmin() {
		return ErrProtectedAccount
	}
	if a.Status == StatusBanned {
		return ErrAlreadyBanned
	}
	a.Status = StatusBanned
	return nil
}

// Apply performs the named bulk action.
// PRE: action is one of Actions
// POST: Status transitioned or a domain error returned
func (a *Account) Apply(action string) error {
	switch action {
	case ActionActivate:
		return a.Activate()
	case ActionSuspend:
		return a.Suspend()
	case ActionBan:
		return a.Ban()
	}
	return ErrUnknownAction
}

// IsValidAction reports whether action is a known account bulk action.
func IsValidAction(action string) bool {
	return contains(Actions, action)
}

// StatusAfter returns the status an account would have after action.
func StatusAfter(action string) (string, bool) {
	switch action {
	case ActionActivate:
		return StatusActive, true
	case ActionSuspend:
		return StatusSuspended, true
	case ActionBan:
		return StatusBanned, true
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
