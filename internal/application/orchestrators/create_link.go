package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkdash/internal/domain/link"
)

// ErrAliasTaken is returned when the requested alias already exists.
var ErrAliasTaken = errors.New("alias is already taken")

// CreateLinkStore defines the store interface needed by CreateLink.
type CreateLinkStore interface {
	GetByAlias(ctx context.Context, alias string) (link.Link, error)
	Save(ctx context.Context, l link.Link) error
}

// CreateLinkInput carries input for the create link orchestrator.
type CreateLinkInput struct {
	OwnerID   string
	TargetURL string
	Alias     string // optional: generated when blank
	Title     string
	ExpiresAt time.Time // optional
}

// CreateLinkDeps holds dependencies for CreateLink.
type CreateLinkDeps struct {
	LinkStore CreateLinkStore
	Now       func() time.Time
}

// ExecuteCreateLink shortens a URL for a member.
// PRE: OwnerID identifies an existing account
// POST: A new active link is persisted with a unique alias
func ExecuteCreateLink(ctx context.Context, input CreateLinkInput, deps CreateLinkDeps) (link.Link, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	alias := strings.TrimSpace(input.Alias)
	if alias == "" {
		alias = generateAlias()
	}
	l := link.Link{
		ID:        uuid.New().String(),
		OwnerID:   input.OwnerID,
		Alias:     alias,
		TargetURL: strings.TrimSpace(input.TargetURL),
		Title:     strings.TrimSpace(input.Title),
		Status:    link.StatusActive,
		CreatedAt: now().UTC(),
		ExpiresAt: input.ExpiresAt,
	}
	if err := l.Validate(); err != nil {
		return link.Link{}, err
	}
	if _, err := deps.LinkStore.GetByAlias(ctx, alias); err == nil {
		return link.Link{}, fmt.Errorf("%w: %s", ErrAliasTaken, alias)
	}
	if err := deps.LinkStore.Save(ctx, l); err != nil {
		return link.Link{}, fmt.Errorf("save link: %w", err)
	}

	slog.Info("link_event", "event", "link_created", "link_id", l.ID, "owner_id", l.OwnerID, "alias", l.Alias)
	return l, nil
}

// generateAlias returns an 8-character alias taken from a random UUID.
func generateAlias() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
