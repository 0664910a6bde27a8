package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zenora/internal/domain/audit"
	"zenora/internal/domain/auth"
	"zenora/internal/domain/core"
	"zenora/internal/domain/leave"
	"zenora/internal/domain/notifications"
	"zenora/internal/domain/tenant"
	"zenora/internal/platform/config"
	"zenora/internal/platform/crypto"
	"zenora/internal/platform/db"
	"zenora/internal/platform/email"
	"zenora/internal/platform/jobs"
	"zenora/internal/platform/metrics"
	transport "zenora/internal/transport/http"
	"zenora/internal/transport/http/handlers/audithandler"
	"zenora/internal/transport/http/handlers/authhandler"
	"zenora/internal/transport/http/handlers/corehandler"
	"zenora/internal/transport/http/handlers/leavehandler"
	"zenora/internal/transport/http/handlers/notificationhandler"
	"zenora/internal/transport/http/handlers/reporthandler"
	"zenora/internal/transport/http/handlers/tenanthandler"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			return err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, db.SeedInput{
			TenantName:          cfg.SeedTenantName,
			AdminEmail:          cfg.SeedAdminEmail,
			AdminPassword:       cfg.SeedAdminPassword,
			SystemAdminEmail:    cfg.SeedSystemAdminEmail,
			SystemAdminPassword: cfg.SeedSystemAdminPassword,
		}); err != nil {
			return err
		}
	}

	cryptoSvc, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return err
	}

	var mailer email.Sender = email.Noop{}
	if cfg.EmailEnabled {
		mailer = email.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPUseTLS)
	}

	authStore := auth.NewStore(pool)
	coreStore := core.NewStore(pool)
	auditSvc := audit.New(pool)
	tenantSvc := tenant.NewService(tenant.NewStore(pool))
	notifySvc := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom)
	leaveSvc := leave.NewService(leave.NewStore(pool), coreStore, tenantSvc)

	scheduler := jobs.NewScheduler(pool, tenantSvc.Store, leaveSvc, cfg.AllocationCheckInterval)
	go scheduler.Start(ctx)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector()
	}

	router := transport.NewRouter(transport.Deps{
		JWTSecret:          cfg.JWTSecret,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		FrontendDir:        cfg.FrontendDir,

		AuthStore:     authStore,
		AuthHandler:   authhandler.New(authStore, cryptoSvc, mailer, cfg.JWTSecret, cfg.EmailFrom),
		LeaveHandler:  leavehandler.New(leaveSvc, coreStore, notifySvc, auditSvc),
		TenantHandler: tenanthandler.New(tenantSvc, auditSvc),
		CoreHandler:   corehandler.New(coreStore, auditSvc),
		NotifyHandler: notificationhandler.New(notifySvc),
		ReportHandler: reporthandler.New(leaveSvc, coreStore),
		AuditHandler:  audithandler.New(auditSvc),

		Scheduler: scheduler,
		Metrics:   collector,
		Readiness: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
