package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"linkdash/internal/adapters/http/middleware"
	"linkdash/internal/adapters/http/perf"
	auditstore "linkdash/internal/adapters/storage/audit"
	"linkdash/internal/application/listutil"
	"linkdash/internal/application/listview"
	"linkdash/internal/application/orchestrators"
	"linkdash/internal/application/projections"
	"linkdash/internal/domain/audit"
	"linkdash/internal/domain/selection"
)

// Audit listing bounds.
const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// handleDashboard handles GET /api/admin/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryGetDashboard(r.Context(), projections.GetDashboardQuery{
		IncludeUsers: middleware.IsSuperAdmin(r.Context()),
	}, projections.GetDashboardDeps{
		LinkStore:       s.stores.LinkStore,
		WithdrawalStore: s.stores.WithdrawalStore,
		AccountStore:    s.stores.AccountStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAudit handles GET /api/admin/audit?category=&action=&actor=&resource=&limit=
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultAuditLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErrorJSON(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}
	events, err := s.stores.AuditStore.List(r.Context(), auditstore.Filter{
		Category:   audit.Category(q.Get("category")),
		Action:     audit.Action(q.Get("action")),
		ActorID:    q.Get("actor"),
		ResourceID: q.Get("resource"),
	}, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handlePerf handles GET /api/admin/perf?minutes=&top=
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeErrorJSON(w, http.StatusNotFound, "performance collection is disabled")
		return
	}
	minutes, top := 60, 10
	if v, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && v > 0 {
		minutes = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && v > 0 {
		top = v
	}
	since := s.now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, s.collector.Snapshot(since, top))
}

// handleAdminList handles GET /api/admin/{resource} with list query parameters.
func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		result any
		err    error
	)
	switch name := mux.Vars(r)["resource"]; name {
	case listview.ResourceLinks:
		result, err = projections.QueryGetLinkList(r.Context(), projections.GetLinkListQuery{
			Params: listutil.ParseListParams(q, projections.LinkSortColumns, projections.LinkFilterKeys),
		}, projections.GetLinkListDeps{LinkStore: s.stores.LinkStore})
	case listview.ResourceWithdrawals:
		result, err = projections.QueryGetWithdrawalList(r.Context(), projections.GetWithdrawalListQuery{
			Params: listutil.ParseListParams(q, projections.WithdrawalSortColumns, projections.WithdrawalFilterKeys),
		}, projections.GetWithdrawalListDeps{
			WithdrawalStore: s.stores.WithdrawalStore,
			AccountStore:    s.stores.AccountStore,
		})
	case listview.ResourceUsers:
		result, err = projections.QueryGetUserList(r.Context(), projections.GetUserListQuery{
			Params: listutil.ParseListParams(q, projections.UserSortColumns, projections.UserFilterKeys),
		}, projections.GetUserListDeps{AccountStore: s.stores.AccountStore, Now: s.now})
	default:
		writeErrorJSON(w, http.StatusNotFound, "unknown list")
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAdminBulk handles POST /api/admin/{resource}/bulk with a selection.Request body.
// PRE: body carries an action and exactly one of ids or selectAll
// POST: returns the per-item outcome counts
func (s *Server) handleAdminBulk(w http.ResponseWriter, r *http.Request) {
	var req selection.Request
	if err := strictDecode(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result, err := s.executeBulk(r.Context(), mux.Vars(r)["resource"], sessionFrom(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// revokeAccount signs accountID out everywhere and drops its mounted views.
func (s *Server) revokeAccount(accountID string) {
	tokens := s.sessions.DeleteAccount(accountID)
	views := 0
	for _, token := range tokens {
		views += s.views.DropSession(token)
	}
	slog.Info("auth_event", "event", "sessions_revoked", "account_id", accountID, "sessions", len(tokens), "views_dropped", views)
}

// executeBulk dispatches req to the bulk orchestrator for resource and
// records its timing.
func (s *Server) executeBulk(ctx context.Context, resource string, sess middleware.Session, req selection.Request) (orchestrators.BulkResult, error) {
	in := orchestrators.BulkInput{Actor: actorOf(sess), Request: req}
	start := time.Now()

	var (
		result orchestrators.BulkResult
		err    error
	)
	switch resource {
	case listview.ResourceLinks:
		result, err = orchestrators.ExecuteBulkLinkAction(ctx, in, orchestrators.BulkLinkActionDeps{
			LinkStore:  s.stores.LinkStore,
			AuditStore: s.stores.AuditStore,
		})
	case listview.ResourceWithdrawals:
		result, err = orchestrators.ExecuteBulkWithdrawalAction(ctx, in, orchestrators.BulkWithdrawalActionDeps{
			WithdrawalStore: s.stores.WithdrawalStore,
			AccountStore:    s.stores.AccountStore,
			AuditStore:      s.stores.AuditStore,
			Sender:          s.sender,
			From:            s.cfg.EmailFrom,
			Now:             s.now,
		})
	case listview.ResourceUsers:
		result, err = orchestrators.ExecuteBulkUserAction(ctx, in, orchestrators.BulkUserActionDeps{
			AccountStore: s.stores.AccountStore,
			AuditStore:   s.stores.AuditStore,
			Revoke:       s.revokeAccount,
		})
	default:
		return orchestrators.BulkResult{}, fmt.Errorf("bulk: unknown resource %q", resource)
	}
	if err != nil {
		return result, err
	}

	if s.collector != nil {
		s.collector.Record(perf.Entry{
			Kind:       perf.KindBulk,
			Path:       resource + "." + req.Action,
			Items:      result.Updated,
			DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
			Timestamp:  start,
		})
	}
	return result, nil
}
