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
	"trainhub_backend/internal/fundingsync"
	"trainhub_backend/internal/leads"
	"trainhub_backend/internal/notification"
	"trainhub_backend/internal/scheduler"
	"trainhub_backend/platform/config"
	"trainhub_backend/platform/db"
	"trainhub_backend/platform/logger"
	"trainhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	dossierStore, err := storage.New(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize dossier storage", "error", err)
		panic("failed to initialize dossier storage: " + err.Error())
	}

	sender := newEmailSender(cfg, log)

	// The scheduler composes the same domain wiring as the API so sweep
	// transitions run the exact same rules and feed the same outbox.
	fundingModule := funding.NewModule(pool, eventBus, val, log)
	complianceAdapter := adapters.NewFundingComplianceAdapter(fundingModule.Service)
	leadsModule := leads.NewModule(pool, complianceAdapter, dossierStore, eventBus, val, log, cfg)
	leadDirectory := adapters.NewLeadDirectoryAdapter(leadsModule.Service)
	notificationModule := notification.NewModule(pool, eventBus, leadDirectory, sender, log, cfg)

	var poller scheduler.FundingPoller
	if cfg.IsFundingSyncEnabled() {
		poller = fundingsync.NewPoller(fundingsync.NewClient(cfg), fundingModule.Service, log)
		log.Info("funding sync enabled", "interval", cfg.GetFundingSyncInterval())
	} else {
		log.Warn("FUNDING_SYNC_BASE_URL not configured; funding sync disabled")
	}

	worker, err := scheduler.NewWorker(cfg, cfg, leadsModule.Service, notificationModule.Service, poller, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer client.Close()

	periodic := scheduler.NewPeriodic(client, cfg, cfg, log)

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(runCtx)
		return nil
	})
	g.Go(func() error {
		periodic.Run(runCtx)
		return nil
	})

	<-ctx.Done()
	log.Info("shutdown signal received, stopping scheduler")
	_ = g.Wait()
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
