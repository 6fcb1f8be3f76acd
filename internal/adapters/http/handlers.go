package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"linkdash/internal/adapters/http/middleware"
	"linkdash/internal/application/listutil"
	"linkdash/internal/application/listview"
	"linkdash/internal/application/orchestrators"
	"linkdash/internal/application/projections"
	"linkdash/internal/domain/account"
	"linkdash/internal/domain/audit"
	"linkdash/internal/domain/link"
	"linkdash/internal/domain/selection"
	"linkdash/internal/domain/withdrawal"
)

// errViewNotMounted is returned when a view route is used before mounting.
var errViewNotMounted = errors.New("list view is not mounted")

// badRequestErrors are validation failures reported as 400.
var badRequestErrors = []error{
	orchestrators.ErrInvalidBulkRequest,
	selection.ErrMissingAction,
	selection.ErrAmbiguousTarget,
	link.ErrEmptyAlias,
	link.ErrInvalidAlias,
	link.ErrInvalidURL,
	withdrawal.ErrAmountTooSmall,
	withdrawal.ErrInvalidMethod,
	withdrawal.ErrReasonRequired,
	withdrawal.ErrReasonTooLong,
	account.ErrPasswordTooShort,
	orchestrators.ErrPasswordFieldsRequired,
	orchestrators.ErrCurrentPasswordWrong,
	orchestrators.ErrNewPasswordSame,
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode_failed", "error", err)
	}
}

// writeErrorJSON writes {"error": msg} with the given status.
func writeErrorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeErrorJSON(w, http.StatusInternalServerError, "internal server error")
}

// writeError maps a domain or selection error to its status.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, selection.ErrBulkInFlight):
		writeErrorJSON(w, http.StatusConflict, err.Error())
	case errors.Is(err, selection.ErrInvalidTarget), errors.Is(err, selection.ErrEmptySelection):
		writeErrorJSON(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errViewNotMounted), errors.Is(err, listview.ErrClosed):
		writeErrorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orchestrators.ErrAliasTaken):
		writeErrorJSON(w, http.StatusConflict, err.Error())
	case isBadRequest(err):
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
	default:
		internalError(w, err)
	}
}

func isBadRequest(err error) bool {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// sessionFrom returns the session placed in context by middleware.Auth.
// Routes reaching it are already guarded by RequireAuth or RequireRole.
func sessionFrom(r *http.Request) middleware.Session {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return sess
}

func actorOf(sess middleware.Session) audit.Actor {
	return audit.Actor{ID: sess.AccountID, Email: sess.Email, Role: sess.Role}
}

// handleHealthz handles GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLoginForm handles GET /login and hands form clients their CSRF token.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}

// handleLogin handles POST /login with a JSON or form body.
// PRE: none
// POST: sets the session cookie on success
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.LoginInput
	if r.Header.Get("Content-Type") == "application/json" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		input = orchestrators.LoginInput{Email: body.Email, Password: body.Password}
	} else {
		if err := r.ParseForm(); err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid form submission")
			return
		}
		input = orchestrators.LoginInput{Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
		AccountStore: s.stores.AccountStore,
		AuditStore:   s.stores.AuditStore,
		Now:          s.now,
	})
	switch {
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		writeErrorJSON(w, http.StatusUnauthorized, err.Error())
		return
	case errors.Is(err, orchestrators.ErrAccountLocked), errors.Is(err, account.ErrAccountNotAllowed):
		writeErrorJSON(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		internalError(w, err)
		return
	}

	token, err := s.sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token, s.cfg.Production, s.cfg.SessionTTL)
	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": result.AccountID,
		"email":      result.Email,
		"role":       result.Role,
	})
}

// handleLogout handles POST /logout. Every list view of the session is unmounted.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.sessions.Delete(sess.Token)
	dropped := s.views.DropSession(sess.Token)

	event := audit.NewEvent(actorOf(sess), audit.CategorySecurity, audit.ActionLogout)
	if err := s.stores.AuditStore.Save(r.Context(), event); err != nil {
		slog.Error("audit_event", "event", "save_failed", "error", err, "action", audit.ActionLogout)
	}
	slog.Info("auth_event", "event", "logout", "email", sess.Email, "views_dropped", dropped)

	middleware.ClearSessionCookie(w, s.cfg.Production)
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword handles POST /api/me/password
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       sessionFrom(r).AccountID,
		CurrentPassword: body.Current,
		NewPassword:     body.New,
	}, orchestrators.ChangePasswordDeps{AccountStore: s.stores.AccountStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMyLinks handles GET /api/me/links: one page of the caller's links.
func (s *Server) handleMyLinks(w http.ResponseWriter, r *http.Request) {
	params := listutil.ParseListParams(r.URL.Query(), projections.LinkSortColumns, projections.LinkFilterKeys)
	result, err := projections.QueryGetLinkList(r.Context(), projections.GetLinkListQuery{
		Params:  params,
		OwnerID: sessionFrom(r).AccountID,
	}, projections.GetLinkListDeps{LinkStore: s.stores.LinkStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateLink handles POST /api/me/links
func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetURL string    `json:"target_url"`
		Alias     string    `json:"alias"`
		Title     string    `json:"title"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	l, err := orchestrators.ExecuteCreateLink(r.Context(), orchestrators.CreateLinkInput{
		OwnerID:   sessionFrom(r).AccountID,
		TargetURL: body.TargetURL,
		Alias:     body.Alias,
		Title:     body.Title,
		ExpiresAt: body.ExpiresAt,
	}, orchestrators.CreateLinkDeps{LinkStore: s.stores.LinkStore, Now: s.now})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projections.NewLinkRow(l))
}

// handleRequestWithdrawal handles POST /api/me/withdrawals
func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AmountCents int    `json:"amount_cents"`
		Method      string `json:"method"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	wd, err := orchestrators.ExecuteRequestWithdrawal(r.Context(), orchestrators.RequestWithdrawalInput{
		UserID:      sessionFrom(r).AccountID,
		AmountCents: body.AmountCents,
		Method:      body.Method,
	}, orchestrators.RequestWithdrawalDeps{WithdrawalStore: s.stores.WithdrawalStore, Now: s.now})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           wd.ID,
		"amount_cents": wd.AmountCents,
		"method":       wd.Method,
		"status":       wd.Status,
		"requested_at": wd.RequestedAt,
	})
}
