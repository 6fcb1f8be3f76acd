package link

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxAliasLength = 64
	MaxTitleLength = 200
	MaxURLLength   = 2048
)

// Status constants
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusBlocked  = "blocked"
	StatusExpired  = "expired"
)

// Bulk action names accepted for links.
const (
	ActionActivate = "activate"
	ActionDisable  = "disable"
	ActionBlock    = "block"
	ActionDelete   = "delete"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusActive, StatusDisabled, StatusBlocked, StatusExpired}

// Actions lists the bulk actions available for links.
var Actions = []string{ActionActivate, ActionDisable, ActionBlock, ActionDelete}

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Domain errors
var (
	ErrEmptyAlias      = errors.New("link alias cannot be empty")
	ErrInvalidAlias    = errors.New("link alias may only contain letters, digits, '-' and '_'")
	ErrInvalidURL      = errors.New("link target must be an absolute http(s) URL")
	ErrInvalidStatus   = errors.New("status must be one of: active, disabled, blocked, expired")
	ErrAlreadyActive   = errors.New("link is already active")
	ErrAlreadyDisabled = errors.New("link is already disabled")
	ErrAlreadyBlocked  = errors.New("link is already blocked")
	ErrBlocked         = errors.New("blocked links can only be re-activated")
	ErrUnknownAction   = errors.New("unknown link action")
)

// Link is a shortened URL owned by a member.
type Link struct {
	ID        string
	OwnerID   string
	Alias     string
	TargetURL string
	Title     string
	Status    string
	Clicks    int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Validate checks if the Link has valid data.
// PRE: Link struct is populated
// POST: Returns nil if valid, error otherwise
func (l *Link) Validate() error {
	if strings.TrimSpace(l.Alias) == "" {
		return ErrEmptyAlias
	}
	if len(l.Alias) > MaxAliasLength || !aliasPattern.MatchString(l.Alias) {
		return ErrInvalidAlias
	}
	if len(l.TargetURL) > MaxURLLength {
		return ErrInvalidURL
	}
	u, err := url.Parse(l.TargetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	if len(l.Title) > MaxTitleLength {
		return errors.New("link title cannot exceed 200 characters")
	}
	if !IsValidStatus(l.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsValidStatus reports whether s is a known link status.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsExpiredAt reports whether the link has passed its expiry at now.
// INVARIANT: Link fields are not mutated
func (l *Link) IsExpiredAt(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}

// Activate sets the link status to active.
// PRE: Link is not already active
// POST: Status is active
func (l *Link) Activate() error {
	if l.Status == StatusActive {
		return ErrAlreadyActive
	}
	l.Status = StatusActive
	return nil
}

// Disable sets the link status to disabled.
// PRE: Link is not disabled or blocked
// POST: Status is disabled
func (l *Link) Disable() error {
	switch l.Status {
	case StatusDisabled:
		return ErrAlreadyDisabled
	case StatusBlocked:
		return ErrBlocked
	}
	l.Status = StatusDisabled
	return nil
}

// Block sets the link status to blocked.
// PRE: Link is not already blocked
// POST: Status is blocked
func (l *Link) Block() error {
	if l.Status == StatusBlocked {
		return ErrAlreadyBlocked
	}
	l.Status = StatusBlocked
	return nil
}

// Apply performs the named bulk action on the link.
// ActionDelete is not a status transition and is handled by the caller.
// PRE: action is one of Actions
// POST: Status transitioned or a domain error returned
func (l *Link) Apply(action string) error {
	switch action {
	case ActionActivate:
		return l.Activate()
	case ActionDisable:
		return l.Disable()
	case ActionBlock:
		return l.Block()
	}
	return ErrUnknownAction
}

// IsValidAction reports whether action is a known link bulk action.
func IsValidAction(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}

// StatusAfter returns the status a link would have after action, for optimistic display.
// The second result is false when the action does not map to a status.
func StatusAfter(action string) (string, bool) {
	switch action {
	case ActionActivate:
		return StatusActive, true
	case ActionDisable:
		return StatusDisabled, true
	case ActionBlock:
		return StatusBlocked, true
	}
	return "", false
}
