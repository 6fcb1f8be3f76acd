// Package web serves the linkdash JSON API: sign-in, member link and
// withdrawal endpoints, admin lists with bulk actions, and server-held list
// views that own a selection per admin session.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"linkdash/internal/adapters/email"
	"linkdash/internal/adapters/http/middleware"
	"linkdash/internal/adapters/http/perf"
	accountstore "linkdash/internal/adapters/storage/account"
	auditstore "linkdash/internal/adapters/storage/audit"
	linkstore "linkdash/internal/adapters/storage/link"
	withdrawalstore "linkdash/internal/adapters/storage/withdrawal"
	"linkdash/internal/application/listview"
	"linkdash/internal/domain/account"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountstore.Store
	LinkStore       linkstore.Store
	WithdrawalStore withdrawalstore.Store
	AuditStore      auditstore.Store
}

// Config carries the HTTP-facing settings.
type Config struct {
	Production         bool // secure cookies
	CSRFKey            []byte
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequestMs      int
	SessionTTL         time.Duration
	EmailFrom          string
	View               listview.Options
}

// Server holds the dependencies shared by every handler.
type Server struct {
	stores    Stores
	cfg       Config
	sender    email.Sender
	collector *perf.Collector
	sessions  *middleware.SessionStore
	views     *listview.Registry
	limiter   *middleware.RateLimiter
	now       func() time.Time
}

// NewServer wires a server. sender and collector may be nil.
// PRE: cfg.CSRFKey is 32 bytes
func NewServer(stores Stores, sender email.Sender, collector *perf.Collector, cfg Config) *Server {
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 10
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = middleware.DefaultSessionTTL
	}
	return &Server{
		stores:    stores,
		cfg:       cfg,
		sender:    sender,
		collector: collector,
		sessions:  middleware.NewSessionStore(cfg.SessionTTL),
		views:     listview.NewRegistry(),
		limiter:   middleware.NewRateLimiter(cfg.RateLimitPerSecond, time.Second),
		now:       time.Now,
	}
}

// Run performs background upkeep until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.limiter.Run(ctx)
}

// Close unmounts every list view.
func (s *Server) Close() {
	s.views.Close()
}

// Handler returns the routed handler wrapped in the middleware chain:
// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> router.
func (s *Server) Handler() http.Handler {
	return middleware.Chain(s.routes(),
		middleware.Timing(s.collector, s.cfg.SlowRequestMs),
		middleware.RateLimit(s.limiter),
		middleware.Auth(s.sessions),
		middleware.CSRF(s.cfg.CSRFKey, s.cfg.Production, s.cfg.TrustedOrigins),
		middleware.SecurityHeaders,
	)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.Handle("/logout", middleware.RequireAuth(http.HandlerFunc(s.handleLogout))).Methods(http.MethodPost)

	me := r.PathPrefix("/api/me").Subrouter()
	me.Use(middleware.RequireAuth)
	me.HandleFunc("/links", s.handleMyLinks).Methods(http.MethodGet)
	me.HandleFunc("/links", s.handleCreateLink).Methods(http.MethodPost)
	me.HandleFunc("/withdrawals", s.handleRequestWithdrawal).Methods(http.MethodPost)
	me.HandleFunc("/password", s.handleChangePassword).Methods(http.MethodPost)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(middleware.RequireRole(account.RoleAdmin, account.RoleSuperAdmin))
	admin.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/audit", s.handleAudit).Methods(http.MethodGet)
	admin.HandleFunc("/{resource:links|withdrawals}", s.handleAdminList).Methods(http.MethodGet)
	admin.HandleFunc("/{resource:links|withdrawals}/bulk", s.handleAdminBulk).Methods(http.MethodPost)

	super := admin.NewRoute().Subrouter()
	super.Use(middleware.RequireRole(account.RoleSuperAdmin))
	super.HandleFunc("/{resource:users}", s.handleAdminList).Methods(http.MethodGet)
	super.HandleFunc("/{resource:users}/bulk", s.handleAdminBulk).Methods(http.MethodPost)
	super.HandleFunc("/perf", s.handlePerf).Methods(http.MethodGet)

	views := admin.PathPrefix("/views/{resource:links|withdrawals|users}").Subrouter()
	views.HandleFunc("", s.handleMountView).Methods(http.MethodPost)
	views.HandleFunc("", s.handleViewState).Methods(http.MethodGet)
	views.HandleFunc("", s.handleUnmountView).Methods(http.MethodDelete)
	views.HandleFunc("/filter", s.handleViewFilter).Methods(http.MethodPut)
	views.HandleFunc("/search", s.handleViewSearch).Methods(http.MethodPut)
	views.HandleFunc("/page/{n:[0-9]+}", s.handleViewPage).Methods(http.MethodGet)
	views.HandleFunc("/toggle", s.handleViewToggle).Methods(http.MethodPost)
	views.HandleFunc("/select-all", s.handleViewSelectAll).Methods(http.MethodPost)
	views.HandleFunc("/clear", s.handleViewClear).Methods(http.MethodPost)
	views.HandleFunc("/bulk", s.handleViewBulk).Methods(http.MethodPost)
	views.HandleFunc("/alerts", s.handleViewAlerts).Methods(http.MethodGet)
	return r
}
