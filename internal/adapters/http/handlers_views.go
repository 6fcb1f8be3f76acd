package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"linkdash/internal/adapters/http/middleware"
	"linkdash/internal/application/listview"
	"linkdash/internal/application/orchestrators"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/selection"
)

// resource builds the list description for name over the server's stores.
func (s *Server) resource(name string) (listview.Resource, bool) {
	switch name {
	case listview.ResourceLinks:
		return listview.LinkResource(s.stores.LinkStore), true
	case listview.ResourceWithdrawals:
		return listview.WithdrawalResource(s.stores.WithdrawalStore, s.stores.AccountStore), true
	case listview.ResourceUsers:
		return listview.UserResource(s.stores.AccountStore, s.now), true
	}
	return listview.Resource{}, false
}

// viewRequest resolves the session and resource of a view route.
// Account views are reserved to super admins.
func viewRequest(w http.ResponseWriter, r *http.Request) (middleware.Session, string, bool) {
	sess := sessionFrom(r)
	name := mux.Vars(r)["resource"]
	if name == listview.ResourceUsers && sess.Role != account.RoleSuperAdmin {
		writeErrorJSON(w, http.StatusForbidden, "forbidden")
		return sess, name, false
	}
	return sess, name, true
}

// mountedView returns the caller's view for the route's resource, writing 404 when none is mounted.
func (s *Server) mountedView(w http.ResponseWriter, r *http.Request) (*listview.View, middleware.Session, bool) {
	sess, name, ok := viewRequest(w, r)
	if !ok {
		return nil, sess, false
	}
	v, ok := s.views.Get(sess.Token, name)
	if !ok {
		writeError(w, errViewNotMounted)
		return nil, sess, false
	}
	return v, sess, true
}

// decodeOptional decodes a JSON body that may be empty.
func decodeOptional(r *http.Request, v any) error {
	if err := strictDecode(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// handleMountView handles POST /api/admin/views/{resource} with an optional
// {"filter": {...}, "per_page": n} body. A view already mounted for the
// resource is replaced.
// POST: 201 with the snapshot of page 1 and an empty selection
func (s *Server) handleMountView(w http.ResponseWriter, r *http.Request) {
	sess, name, ok := viewRequest(w, r)
	if !ok {
		return
	}
	var body struct {
		Filter  selection.Filter `json:"filter"`
		PerPage int              `json:"per_page"`
	}
	if err := decodeOptional(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, _ := s.resource(name)
	opts := s.cfg.View
	if body.PerPage > 0 {
		opts.PerPage = body.PerPage
	}
	v, err := listview.Mount(r.Context(), res, body.Filter, opts)
	if err != nil {
		internalError(w, err)
		return
	}
	s.views.Put(sess.Token, v)
	slog.Info("view_event", "event", "mounted", "resource", name, "email", sess.Email)
	writeJSON(w, http.StatusCreated, v.Snapshot())
}

// handleViewState handles GET /api/admin/views/{resource}
func (s *Server) handleViewState(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}

// handleUnmountView handles DELETE /api/admin/views/{resource}
func (s *Server) handleUnmountView(w http.ResponseWriter, r *http.Request) {
	sess, name, ok := viewRequest(w, r)
	if !ok {
		return
	}
	if !s.views.Remove(sess.Token, name) {
		writeError(w, errViewNotMounted)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleViewFilter handles PUT /api/admin/views/{resource}/filter with a
// {"filter": {...}} body.
func (s *Server) handleViewFilter(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	var body struct {
		Filter selection.Filter `json:"filter"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.respondView(w, v, v.SetFilter(r.Context(), body.Filter))
}

// handleViewSearch handles PUT /api/admin/views/{resource}/search with a
// {"q": "..."} body. The term is committed after the debounce delay.
// POST: 202 with the snapshot; search_pending is true
func (s *Server) handleViewSearch(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	var body struct {
		Q string `json:"q"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	v.Search(body.Q)
	writeJSON(w, http.StatusAccepted, v.Snapshot())
}

// handleViewPage handles GET /api/admin/views/{resource}/page/{n}
func (s *Server) handleViewPage(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(mux.Vars(r)["n"])
	if err != nil || n < 1 {
		writeErrorJSON(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	s.respondView(w, v, v.FetchPage(r.Context(), n))
}

// handleViewToggle handles POST /api/admin/views/{resource}/toggle with an {"id": "..."} body.
func (s *Server) handleViewToggle(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.respondView(w, v, v.Toggle(body.ID))
}

// handleViewSelectAll handles POST /api/admin/views/{resource}/select-all
func (s *Server) handleViewSelectAll(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	v.SelectAllMatching()
	writeJSON(w, http.StatusOK, v.Snapshot())
}

// handleViewClear handles POST /api/admin/views/{resource}/clear
func (s *Server) handleViewClear(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	v.Clear()
	writeJSON(w, http.StatusOK, v.Snapshot())
}

// handleViewBulk handles POST /api/admin/views/{resource}/bulk with an
// {"action": "...", "reason": "...", "ids": [...]} body. Without ids the
// current selection is sent; with ids exactly those items are targeted and
// the selection is kept.
// POST: 200 with the request sent, its outcome counts and the new snapshot
func (s *Server) handleViewBulk(w http.ResponseWriter, r *http.Request) {
	v, sess, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	var body struct {
		Action string   `json:"action"`
		Reason string   `json:"reason"`
		IDs    []string `json:"ids"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var opts []selection.Option
	if body.Reason != "" {
		opts = append(opts, selection.WithReason(body.Reason))
	}
	if len(body.IDs) > 0 {
		opts = append(opts, selection.WithIDs(body.IDs...))
	}

	var result orchestrators.BulkResult
	exec := selection.ExecutorFunc(func(ctx context.Context, req selection.Request) error {
		var err error
		result, err = s.executeBulk(ctx, v.Resource(), sess, req)
		return err
	})
	req, err := v.Bulk(r.Context(), exec, body.Action, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request": req,
		"result":  result,
		"state":   v.Snapshot(),
	})
}

// handleViewAlerts handles GET /api/admin/views/{resource}/alerts and drains
// the alerts raised since the last call.
func (s *Server) handleViewAlerts(w http.ResponseWriter, r *http.Request) {
	v, _, ok := s.mountedView(w, r)
	if !ok {
		return
	}
	alerts := v.Alerts()
	if alerts == nil {
		alerts = []selection.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// respondView writes the snapshot of v, or the error of the operation that preceded it.
func (s *Server) respondView(w http.ResponseWriter, v *listview.View, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.Snapshot())
}
