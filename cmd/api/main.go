package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trainhub_backend/internal/adapters"
	"trainhub_backend/internal/adapters/storage"
	"trainhub_backend/internal/email"
	"trainhub_backend/internal/events"
	"trainhub_backend/internal/funding"
	apphttp "trainhub_backend/internal/http"
	"trainhub_backend/internal/leads"
	"trainhub_backend/internal/notification"
	"trainhub_backend/platform/config"
	"trainhub_backend/platform/db"
	"trainhub_backend/platform/logger"
	"trainhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	dossierStore, err := storage.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize dossier storage", "error", err)
		panic("failed to initialize dossier storage: " + err.Error())
	}
	log.Info("dossier storage initialized", "bucket", cfg.GetMinioBucketFundingDossiers())

	sender := newEmailSender(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	fundingModule := funding.NewModule(pool, eventBus, val, log)

	complianceAdapter := adapters.NewFundingComplianceAdapter(fundingModule.Service)
	leadsModule := leads.NewModule(pool, complianceAdapter, dossierStore, eventBus, val, log, cfg)

	// Notification module has no HTTP surface; it feeds the outbox from domain
	// events and is drained by the scheduler process.
	leadDirectory := adapters.NewLeadDirectoryAdapter(leadsModule.Service)
	notification.NewModule(pool, eventBus, leadDirectory, sender, log, cfg)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			fundingModule,
		},
	}

	engine := apphttp.NewRouter(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newEmailSender(cfg *config.Config, log *logger.Logger) email.Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		log.Warn("email delivery disabled; notifications will be marked sent without delivery")
		return email.NoopSender{}
	}
	return email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
