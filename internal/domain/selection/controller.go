package selection

import (
	"context"
	"errors"
	"fmt"
)

// Controller errors.
var (
	ErrInvalidTarget    = errors.New("item is not among the loaded rows")
	ErrEmptySelection   = errors.New("nothing is selected")
	ErrBulkInFlight     = errors.New("a bulk action is already in progress")
	ErrBulkActionFailed = errors.New("bulk action failed")
	ErrNotInFlight      = errors.New("no bulk action is in progress")
)

// Level classifies a notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Message is a user-facing notification.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Notifier is a fire-and-forget sink for user-facing messages.
type Notifier interface {
	Notify(msg Message)
}

// Executor sends a bulk request to the bulk-action endpoint.
type Executor interface {
	Execute(ctx context.Context, req Request) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req Request) error

// Execute calls f(ctx, req).
func (f ExecutorFunc) Execute(ctx context.Context, req Request) error {
	return f(ctx, req)
}

type inFlight struct {
	req      Request
	override bool
	count    int
}

// Controller owns the selection of a single list view.
//
// It is not safe for concurrent use. The owning view serializes calls and must
// not issue a second bulk request before the first one settles; Begin refuses
// with ErrBulkInFlight if it does.
type Controller struct {
	state    State
	filter   Filter
	total    int // server-reported total for filter
	allTotal int // server-reported total for state.snapshot
	loaded   map[string]struct{}
	pending  *inFlight
	// reset requested by a filter change while a request was in flight
	resetQueued bool
	notifier    Notifier
}

// NewController creates an empty controller for a list showing filter.
// notifier may be nil.
func NewController(filter Filter, notifier Notifier) *Controller {
	return &Controller{
		state:    emptyState(),
		filter:   filter.Clone(),
		notifier: notifier,
	}
}

// State returns a copy of the current selection.
func (c *Controller) State() State {
	return c.state.clone()
}

// Filter returns the filter currently applied to the list.
func (c *Controller) Filter() Filter {
	return c.filter.Clone()
}

// InFlight reports whether a bulk request has begun but not settled.
func (c *Controller) InFlight() bool {
	return c.pending != nil
}

// ResetQueued reports whether a filter change is waiting for the in-flight request to settle.
func (c *Controller) ResetQueued() bool {
	return c.resetQueued
}

// SetFilter records a filter or search-term change from the list.
// A changed filter resets the selection, since the matching set changed. While a
// bulk request is in flight the reset is queued and applied when the request settles.
// Re-applying an equal filter keeps the selection.
// PRE: none
// POST: Filter() == f; selection empty after a change unless a request is in flight
func (c *Controller) SetFilter(f Filter) {
	if c.filter.Equal(f) {
		return
	}
	c.filter = f.Clone()
	c.total = 0
	c.loaded = nil
	if c.pending != nil {
		c.resetQueued = true
		return
	}
	c.state = emptyState()
	c.allTotal = 0
}

// SetPage reports the outcome of a page fetch for the current filter: the
// server-reported total and the ids of the rows now rendered.
// PRE: total >= 0
// POST: Count() in all-matching mode reflects total when the snapshot equals the filter
func (c *Controller) SetPage(total int, ids []string) {
	c.total = total
	c.loaded = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		c.loaded[id] = struct{}{}
	}
	if c.state.mode == ModeAllMatching && c.state.snapshot.Equal(c.filter) {
		c.allTotal = total
	}
}

// Toggle selects or deselects one row.
// In all-matching mode, touching a row collapses the selection to that row alone.
// PRE: id is one of the loaded rows (when rows have been reported via SetPage)
// POST: returns ErrInvalidTarget and leaves state unchanged for unknown ids
func (c *Controller) Toggle(id, status string) error {
	if id == "" {
		return ErrInvalidTarget
	}
	if c.loaded != nil {
		if _, ok := c.loaded[id]; !ok {
			return ErrInvalidTarget
		}
	}
	if c.state.mode == ModeAllMatching {
		c.state = State{mode: ModeExplicit, explicit: map[string]string{id: status}}
		c.allTotal = 0
		return nil
	}
	if _, ok := c.state.explicit[id]; ok {
		delete(c.state.explicit, id)
		return nil
	}
	c.state.explicit[id] = status
	return nil
}

// SelectAllMatching selects every item matching the current filter, or undoes
// that selection if it is already active.
// POST: all-matching mode with snapshot == Filter(), or empty explicit selection
func (c *Controller) SelectAllMatching() {
	if c.state.mode == ModeAllMatching {
		c.state = emptyState()
		c.allTotal = 0
		return
	}
	c.state = State{mode: ModeAllMatching, explicit: map[string]string{}, snapshot: c.filter.Clone()}
	c.allTotal = c.total
	c.notify(LevelInfo, fmt.Sprintf("All %d items matching the current filter are selected.", c.allTotal))
}

// Clear empties the selection.
func (c *Controller) Clear() {
	c.state = emptyState()
	c.allTotal = 0
}

// Count returns how many items the selection covers.
// In all-matching mode this is the server-reported total for the snapshot filter.
func (c *Controller) Count() int {
	if c.state.mode == ModeAllMatching {
		return c.allTotal
	}
	return len(c.state.explicit)
}

// Begin builds the bulk request for action and marks it in flight.
// PRE: no request is in flight
// POST: returns the request to send; Settle must be called with its outcome
func (c *Controller) Begin(action string, opts ...Option) (Request, error) {
	if c.pending != nil {
		return Request{}, ErrBulkInFlight
	}
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	req := Request{Action: action, Reason: o.reason}
	count := 0
	switch {
	case o.override:
		req.IDs = o.overrideIDs
		count = len(o.overrideIDs)
	case c.state.mode == ModeAllMatching:
		req.SelectAll = true
		if !c.state.snapshot.IsZero() {
			req.Filter = c.state.snapshot.Clone()
		}
		count = c.allTotal
	default:
		req.IDs = c.state.IDs()
		count = len(req.IDs)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}

	c.pending = &inFlight{req: req, override: o.override, count: count}
	return req, nil
}

// Settle records the outcome of the in-flight request.
// On success the selection is consumed unless the request used override ids.
// On failure the selection is kept for retry and the error is reported.
// A reset queued by SetFilter is applied either way.
// PRE: a request is in flight
// POST: no request is in flight
func (c *Controller) Settle(execErr error) error {
	p := c.pending
	if p == nil {
		return ErrNotInFlight
	}
	c.pending = nil

	if c.resetQueued {
		c.resetQueued = false
		c.state = emptyState()
		c.allTotal = 0
	}

	if execErr != nil {
		c.notify(LevelError, fmt.Sprintf("Could not %s the selected items: %v", p.req.Action, execErr))
		return fmt.Errorf("%w: %w", ErrBulkActionFailed, execErr)
	}

	if !p.override {
		c.state = emptyState()
		c.allTotal = 0
	}
	c.notify(LevelInfo, fmt.Sprintf("Applied %s to %d items.", p.req.Action, p.count))
	return nil
}

// ResolveBulkRequest builds the request for action, sends it through exec and
// settles the outcome.
// PRE: no request is in flight
// POST: see Begin and Settle
func (c *Controller) ResolveBulkRequest(ctx context.Context, exec Executor, action string, opts ...Option) (Request, error) {
	req, err := c.Begin(action, opts...)
	if err != nil {
		return Request{}, err
	}
	return req, c.Settle(exec.Execute(ctx, req))
}

func (c *Controller) notify(level Level, text string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(Message{Level: level, Text: text})
}
