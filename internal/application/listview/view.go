// Package listview owns the lifecycle of one admin list view: mount, filter
// and search changes, page fetches, optimistic row updates, bulk actions and
// unmount. Each view owns one selection controller and one alert center.
package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"linkdash/internal/application/debounce"
	"linkdash/internal/application/listutil"
	"linkdash/internal/application/notify"
	"linkdash/internal/application/optimistic"
	"linkdash/internal/domain/selection"
)

// Defaults applied by Mount when Options leaves a field zero.
const (
	DefaultSearchDelay  = 300 * time.Millisecond
	DefaultFetchTimeout = 10 * time.Second
)

// ErrClosed is returned by operations on an unmounted view.
var ErrClosed = errors.New("list view is closed")

// Options tunes a view.
type Options struct {
	PerPage      int           // must be one of listutil.PerPageOptions; defaults to listutil.DefaultPerPage
	SearchDelay  time.Duration // quiet period before a search term is committed
	FetchTimeout time.Duration // bounds fetches started by the debounce timer
	AlertLimit   int           // undrained alerts kept; see notify.NewCenter
}

// View is the server-held state of one mounted list.
// All methods are safe for concurrent use.
type View struct {
	mu     sync.Mutex
	res    Resource
	opts   Options
	ctrl   *selection.Controller
	alerts *notify.Center
	search debounce.Timer

	page   int
	rows   []Row
	info   listutil.PageInfo
	gen    uint64 // bumped every time rows are replaced by a fetch
	closed bool
}

// Mount creates a view over res showing filter and fetches page 1.
// PRE: res.Fetch is non-nil
// POST: the view holds page 1 and an empty selection
func Mount(ctx context.Context, res Resource, filter selection.Filter, opts Options) (*View, error) {
	if !slices.Contains(listutil.PerPageOptions, opts.PerPage) {
		opts.PerPage = listutil.DefaultPerPage
	}
	if opts.SearchDelay <= 0 {
		opts.SearchDelay = DefaultSearchDelay
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if res.StatusAfter == nil {
		res.StatusAfter = func(string) (string, bool) { return "", false }
	}

	alerts := notify.NewCenter(opts.AlertLimit)
	v := &View{
		res:    res,
		opts:   opts,
		ctrl:   selection.NewController(res.sanitize(filter), alerts),
		alerts: alerts,
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.fetch(ctx, 1); err != nil {
		return nil, err
	}
	slog.Debug("view_event", "event", "mounted", "resource", res.Name, "filter", v.ctrl.Filter().Key())
	return v, nil
}

// Resource returns the name of the listed resource.
func (v *View) Resource() string {
	return v.res.Name
}

// fetch loads page n of the current filter and reports it to the controller.
// PRE: v.mu is held
func (v *View) fetch(ctx context.Context, n int) error {
	if v.closed {
		return ErrClosed
	}
	p, err := v.res.Fetch(ctx, v.ctrl.Filter(), n, v.opts.PerPage)
	if err != nil {
		return fmt.Errorf("fetch %s page %d: %w", v.res.Name, n, err)
	}
	v.rows = p.Rows
	v.info = p.Info
	v.page = p.Info.Page
	v.gen++

	ids := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		ids[i] = r.ID
	}
	v.ctrl.SetPage(p.Info.Total, ids)
	return nil
}

// SetFilter replaces the exact-match, sort and dir criteria and fetches page 1.
// The current search term is kept. The selection and alerts reset; a bulk
// request in flight defers the selection reset until it settles.
// POST: Filter() is the sanitized f with the current search term
func (v *View) SetFilter(ctx context.Context, f selection.Filter) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	next := v.res.sanitize(f).With(selection.KeySearch, v.ctrl.Filter().Search())
	v.applyFilter(next)
	return v.fetch(ctx, 1)
}

// applyFilter records a filter change with the controller.
// PRE: v.mu is held
func (v *View) applyFilter(f selection.Filter) {
	v.ctrl.SetFilter(f)
	v.alerts.Reset()
}

// Search records a search keystroke. The term is committed, resetting the
// selection and refetching page 1, once no further keystroke arrives for the
// configured delay.
func (v *View) Search(term string) {
	v.search.Reset(v.opts.SearchDelay, func() { v.commitSearch(term) })
}

// FlushSearch commits a pending search term immediately.
// It reports whether one was pending.
func (v *View) FlushSearch() bool {
	return v.search.Flush()
}

// SearchPending reports whether a search term is waiting to be committed.
func (v *View) SearchPending() bool {
	return v.search.Pending()
}

func (v *View) commitSearch(term string) {
	ctx, cancel := context.WithTimeout(context.Background(), v.opts.FetchTimeout)
	defer cancel()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	current := v.ctrl.Filter()
	next := current.With(selection.KeySearch, term)
	if next.Equal(current) {
		return
	}
	v.applyFilter(next)
	if err := v.fetch(ctx, 1); err != nil {
		slog.Warn("view_event", "event", "search_fetch_failed", "resource", v.res.Name, "error", err)
		v.alerts.Notify(selection.Message{Level: selection.LevelError, Text: "Could not load results for the new search."})
	}
}

// FetchPage loads page n of the current filter. The selection is kept.
// Out-of-range pages are clamped by the list query service.
func (v *View) FetchPage(ctx context.Context, n int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fetch(ctx, n)
}

// Toggle selects or deselects a loaded row, recording its current status.
// PRE: id is one of the rows on the current page
// POST: returns selection.ErrInvalidTarget for unknown ids, state unchanged
func (v *View) Toggle(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	status := ""
	for _, r := range v.rows {
		if r.ID == id {
			status = r.Status
			break
		}
	}
	return v.ctrl.Toggle(id, status)
}

// SelectAllMatching selects every row matching the current filter, or undoes that selection.
func (v *View) SelectAllMatching() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrl.SelectAllMatching()
}

// Clear empties the selection.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrl.Clear()
}

// Count returns how many items the selection covers.
func (v *View) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctrl.Count()
}

// Alerts drains the alerts raised since the last call.
func (v *View) Alerts() []selection.Message {
	return v.alerts.Drain()
}

// Bulk builds the bulk request for action from the selection and sends it
// through exec. Affected rows show their post-action status while the request
// runs and are restored if it fails. On success the current page is refetched.
//
// The view lock is released while exec runs, so filter changes and page
// fetches proceed; see selection.Controller.SetFilter for how a filter change
// during the request is reconciled.
// POST: the request has settled; errors wrap selection.ErrBulkActionFailed when exec failed
func (v *View) Bulk(ctx context.Context, exec selection.Executor, action string, opts ...selection.Option) (selection.Request, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return selection.Request{}, ErrClosed
	}
	req, err := v.ctrl.Begin(action, opts...)
	if err != nil {
		v.mu.Unlock()
		return selection.Request{}, err
	}
	cell := &rowsCell{v: v, gen: v.gen}
	v.mu.Unlock()

	execErr := optimistic.Run(ctx, optimistic.Cell[[]Row](cell),
		func(rows []Row) []Row { return v.markRows(rows, req) },
		func(ctx context.Context) error { return exec.Execute(ctx, req) },
	)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ctrl.Settle(execErr); err != nil {
		return req, err
	}
	if err := v.fetch(ctx, v.page); err != nil && !errors.Is(err, ErrClosed) {
		slog.Warn("view_event", "event", "refetch_failed", "resource", v.res.Name, "error", err)
		v.alerts.Notify(selection.Message{Level: selection.LevelError, Text: "The action succeeded but the list could not be refreshed."})
	}
	return req, nil
}

// markRows returns a copy of rows with the targets of req shown in their
// post-action state. Actions without a resulting status drop their targets.
func (v *View) markRows(rows []Row, req selection.Request) []Row {
	targeted := func(id string) bool { return req.SelectAll || slices.Contains(req.IDs, id) }
	status, ok := v.res.StatusAfter(req.Action)

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !targeted(r.ID) {
			out = append(out, r)
			continue
		}
		if !ok {
			continue
		}
		r.Status = status
		out = append(out, r)
	}
	return out
}

// rowsCell exposes the view's rows to an optimistic update.
// Stores are dropped once a fetch has replaced the rows it was read from.
type rowsCell struct {
	v   *View
	gen uint64
}

func (c *rowsCell) Load() []Row {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	return slices.Clone(c.v.rows)
}

func (c *rowsCell) Store(rows []Row) {
	c.v.mu.Lock()
	defer c.v.mu.Unlock()
	if c.v.gen != c.gen {
		return
	}
	c.v.rows = rows
}

// Snapshot is the JSON view state returned to the client.
type Snapshot struct {
	Resource      string            `json:"resource"`
	Filter        selection.Filter  `json:"filter"`
	Mode          selection.Mode    `json:"mode"`
	Selected      []string          `json:"selected"`
	SelectedCount int               `json:"selected_count"`
	InFlight      bool              `json:"in_flight"`
	ResetQueued   bool              `json:"reset_queued"`
	SearchPending bool              `json:"search_pending"`
	Rows          []Row             `json:"rows"`
	Page          listutil.PageInfo `json:"page"`
	StatusCounts  map[string]int    `json:"status_counts,omitempty"`
}

// Snapshot returns the current view state.
func (v *View) Snapshot() Snapshot {
	pending := v.search.Pending()
	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.ctrl.State()
	return Snapshot{
		Resource:      v.res.Name,
		Filter:        v.ctrl.Filter(),
		Mode:          state.Mode(),
		Selected:      state.IDs(),
		SelectedCount: v.ctrl.Count(),
		InFlight:      v.ctrl.InFlight(),
		ResetQueued:   v.ctrl.ResetQueued(),
		SearchPending: pending,
		Rows:          slices.Clone(v.rows),
		Page:          v.info,
		StatusCounts:  state.StatusCounts(),
	}
}

// Close unmounts the view: the pending search is cancelled and alerts are dropped.
func (v *View) Close() {
	v.search.Stop()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.alerts.Reset()
}
