// Command server runs the policy administration API.
//
//	@title						Policy Admin API
//	@version					1.0
//	@description				Insurance policy and claims administration: policy lifecycle, claims, documents, payments and underwriting lookups.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-policy-admin/internal/config"
	"github.com/tbourn/go-policy-admin/internal/events"
	httpapi "github.com/tbourn/go-policy-admin/internal/http"
	"github.com/tbourn/go-policy-admin/internal/http/handlers"
	"github.com/tbourn/go-policy-admin/internal/integration"
	"github.com/tbourn/go-policy-admin/internal/jobs"
	"github.com/tbourn/go-policy-admin/internal/observability"
	"github.com/tbourn/go-policy-admin/internal/repo"
	"github.com/tbourn/go-policy-admin/internal/services"
	"github.com/tbourn/go-policy-admin/internal/storage"
	"github.com/tbourn/go-policy-admin/internal/sysutil"
	"github.com/tbourn/go-policy-admin/internal/validation"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "policy-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ver := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	log := sysutil.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	zerolog.DefaultContextLogger = &log
	ctx = log.WithContext(ctx)
	gin.SetMode(cfg.GinMode)

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return fmt.Errorf("database tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("document storage: %w", err)
	}
	pub, closeEvents, err := events.NewPublisher(cfg.Events)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	defer closeEvents()

	clients := integration.NewClients(cfg.Integrations, nil)
	exec := integration.NewExecutor(cfg.Integrations.MaxConcurrency)
	v := validation.New(nil)

	policies := &services.PolicyService{
		DB: db, Validator: v, Exporter: clients.PolicyStar, Executor: exec, Events: pub,
		UnderwritingRequired: cfg.Features.UnderwritingRequired,
		ExportDisabled:       !cfg.Features.ExportEnabled,
	}
	claims := &services.ClaimService{DB: db, Validator: v, Store: store, Payer: clients.SpeedPay, Executor: exec, Events: pub}
	users := &services.UserService{DB: db, Validator: v, Events: pub}
	lookups := &services.LookupService{RMV: clients.RMV, CLUE: clients.CLUE, Executor: exec}

	sched := jobs.NewScheduler(log)
	if cfg.ExpirySweepSchedule != "" {
		if err := sched.Schedule(cfg.ExpirySweepSchedule, &jobs.Sweeper{
			DB:                db,
			Policies:          policies,
			Timeout:           cfg.ShutdownTimeout,
			PaymentStaleAfter: cfg.PaymentStaleAfter,
		}); err != nil {
			return fmt.Errorf("schedule sweeper: %w", err)
		}
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, cfg, handlers.Deps{
		Policies:       policies,
		Claims:         claims,
		Users:          users,
		Lookups:        lookups,
		DB:             db,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Integrations:   clients.Ping,
	})

	// Requests keep the logger but not the signal cancellation, so Shutdown
	// can drain them.
	base := context.WithoutCancel(ctx)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()

		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		// Stop taking requests first, then drain in-flight integration calls.
		errs := []error{srv.Shutdown(sctx)}
		errs = append(errs, sched.Stop(sctx), exec.Shutdown(sctx), shutdownTracing(sctx))
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped with error")
		return err
	}
	log.Info().Msg("stopped")
	return nil
}
