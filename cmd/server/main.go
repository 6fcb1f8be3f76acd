package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	emailPkg "linkdash/internal/adapters/email"
	web "linkdash/internal/adapters/http"
	"linkdash/internal/adapters/http/perf"
	"linkdash/internal/adapters/storage"
	accountStore "linkdash/internal/adapters/storage/account"
	auditStore "linkdash/internal/adapters/storage/audit"
	linkStore "linkdash/internal/adapters/storage/link"
	withdrawalStore "linkdash/internal/adapters/storage/withdrawal"
	"linkdash/internal/application/listview"
	"linkdash/internal/application/orchestrators"
	"linkdash/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "linkdash",
		Short:         "Linkdash admin back office server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("db", "", "SQLite database path (db.path); in-memory when unset")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error (log_level)")
	root.PersistentFlags().String("env", "", "development or production (env)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the HTTP API",
		RunE:  runServe,
	}
	serve.Flags().String("addr", "", "listen address (addr)")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the super admin and, with --demo, demo data",
		RunE:  runSeed,
	}
	seedCmd.Flags().Bool("demo", false, "also create demo accounts, links and withdrawals")
	seedCmd.Flags().Int("links-per-user", 0, "demo links per member (default 30)")

	root.AddCommand(serve, migrate, seedCmd)
	root.RunE = runServe
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

// setup loads config, installs the JSON logger and opens the migrated database.
func setup(cmd *cobra.Command) (config.Config, *storage.TimedDB, *perf.Collector, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, nil, err
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if cfg.DB.InMemory() {
		slog.Warn("db_event", "event", "in_memory", "detail", "data is discarded on exit; set db.path to persist")
	}
	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	if err := storage.Migrate(db); err != nil {
		db.Close()
		return config.Config{}, nil, nil, err
	}
	collector := perf.NewCollector(cfg.Perf.RingSize)
	return cfg, storage.NewTimedDB(db, collector, cfg.Perf.SlowQueryMs), collector, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, db, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("db_event", "event", "migrated", "path", cfg.DB.Path, "schema", storage.LatestSchemaVersion())
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, db, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := cfg.ValidateAdmin(); err != nil {
		return err
	}
	demo, _ := cmd.Flags().GetBool("demo")
	perUser, _ := cmd.Flags().GetInt("links-per-user")
	if demo && cfg.IsProduction() {
		return errors.New("refusing to seed demo data in production")
	}
	return seed(cmd.Context(), cfg, db, demo, perUser)
}

func seed(ctx context.Context, cfg config.Config, db storage.SQLDB, demo bool, perUser int) error {
	result, err := orchestrators.ExecuteSeed(ctx, orchestrators.SeedInput{
		AdminEmail:    cfg.Admin.Email,
		AdminPassword: cfg.Admin.Password,
		Demo:          demo,
		LinksPerUser:  perUser,
	}, orchestrators.SeedDeps{
		AccountStore:    accountStore.NewSQLiteStore(db),
		LinkStore:       linkStore.NewSQLiteStore(db),
		WithdrawalStore: withdrawalStore.NewSQLiteStore(db),
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	slog.Info("seed_event", "event", "done", "accounts", result.Accounts, "links", result.Links, "withdrawals", result.Withdrawals)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, collector, err := setup(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		return err
	}

	// An in-memory database starts empty on every run.
	if cfg.DB.InMemory() && cfg.ValidateAdmin() == nil {
		if err := seed(cmd.Context(), cfg, db, true, 0); err != nil {
			return err
		}
	}

	var sender emailPkg.Sender
	if cfg.Email.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From, cfg.Email.ReplyTo)
		slog.Info("email_event", "event", "sender_configured", "sender", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_event", "event", "delivery_disabled", "reason", "email.resend_key is not set")
		}
	}

	stores := web.Stores{
		AccountStore:    accountStore.NewSQLiteStore(db),
		LinkStore:       linkStore.NewSQLiteStore(db),
		WithdrawalStore: withdrawalStore.NewSQLiteStore(db),
		AuditStore:      auditStore.NewSQLiteStore(db),
	}
	srv := web.NewServer(stores, sender, collector, web.Config{
		Production:         cfg.IsProduction(),
		CSRFKey:            csrfKey,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequestMs:      cfg.Perf.SlowRequestMs,
		SessionTTL:         cfg.SessionTTL,
		EmailFrom:          cfg.Email.From,
		View: listview.Options{
			PerPage:     cfg.List.PerPage,
			SearchDelay: cfg.SearchDelay(),
		},
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		srv.Run(ctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("server_event", "event", "starting", "addr", cfg.Addr, "version", version,
			"env", cfg.Env, "schema", storage.LatestSchemaVersion())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("server_event", "event", "shutting_down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
