package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"linkdash/internal/domain/account"
	"linkdash/internal/domain/audit"
)

// AccountStoreForLogin defines the store interface needed by Login.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	AccountID string
	Email     string
	Role      string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	AccountStore AccountStoreForLogin
	AuditStore   AuditStore // optional
	Now          func() time.Time
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
)

// ExecuteLogin validates credentials and returns account info for session creation.
// PRE: Valid email and password provided
// POST: Returns account info on success, records failed login on failure
// INVARIANT: Locked, suspended and banned accounts cannot sign in
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	emailAddr := strings.TrimSpace(input.Email)
	if emailAddr == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	acct, err := deps.AccountStore.GetByEmail(ctx, emailAddr)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", emailAddr, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}

	if acct.IsLocked(now()) {
		slog.Info("auth_event", "event", "login_blocked", "email", emailAddr, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		acct.RecordFailedLogin(now())
		_ = deps.AccountStore.Save(ctx, acct)
		slog.Info("auth_event", "event", "login_failed", "email", emailAddr, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return LoginResult{}, ErrInvalidCredentials
	}

	if !acct.CanSignIn() {
		slog.Info("auth_event", "event", "login_blocked", "email", emailAddr, "reason", acct.Status)
		return LoginResult{}, account.ErrAccountNotAllowed
	}

	acct.ResetFailedLogins()
	_ = deps.AccountStore.Save(ctx, acct)

	if deps.AuditStore != nil {
		event := audit.NewEvent(audit.Actor{ID: acct.ID, Email: acct.Email, Role: acct.Role}, audit.CategorySecurity, audit.ActionLogin)
		if err := deps.AuditStore.Save(ctx, event); err != nil {
			slog.Error("audit_event", "event", "save_failed", "error", err, "action", audit.ActionLogin)
		}
	}
	slog.Info("auth_event", "event", "login_success", "email", emailAddr, "role", acct.Role)

	return LoginResult{
		AccountID: acct.ID,
		Email:     acct.Email,
		Role:      acct.Role,
	}, nil
}
