package selection

import (
	"errors"
	"strings"
)

// Request is the payload sent to a bulk-action endpoint.
// Exactly one of IDs or SelectAll targets the items.
type Request struct {
	Action    string   `json:"action"`
	IDs       []string `json:"ids,omitempty"`
	SelectAll bool     `json:"selectAll"`
	Filter    Filter   `json:"filter,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// Request validation errors.
var (
	ErrMissingAction   = errors.New("bulk action is required")
	ErrAmbiguousTarget = errors.New("bulk request cannot carry both ids and selectAll")
)

// Validate checks the request is well formed before it reaches an executor.
// PRE: none
// POST: returns nil if the request names an action and exactly one target mode
func (r Request) Validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return ErrMissingAction
	}
	if r.SelectAll && len(r.IDs) > 0 {
		return ErrAmbiguousTarget
	}
	if !r.SelectAll && len(r.IDs) == 0 {
		return ErrEmptySelection
	}
	for _, id := range r.IDs {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidTarget
		}
	}
	return nil
}

// Option adjusts a bulk request built by the controller.
type Option func(*requestOptions)

type requestOptions struct {
	override    bool
	overrideIDs []string
	reason      string
}

// WithIDs targets exactly ids, bypassing the current selection.
// Selection state is left untouched when such a request succeeds.
func WithIDs(ids ...string) Option {
	return func(o *requestOptions) {
		o.override = true
		o.overrideIDs = append([]string(nil), ids...)
	}
}

// WithReason attaches a free-text reason (e.g. a withdrawal rejection note).
func WithReason(reason string) Option {
	return func(o *requestOptions) {
		o.reason = reason
	}
}
