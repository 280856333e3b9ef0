package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/health"
	crmrepo "coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/internal/db"
	"coachdesk_backend/internal/email"
	"coachdesk_backend/internal/events"
	"coachdesk_backend/internal/inquiries"
	"coachdesk_backend/internal/scheduler"
	"coachdesk_backend/platform/docstore"
	"coachdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

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

	store := docstore.NewPostgresStore(pool)
	eventBus := events.NewInMemoryBus(log)

	sender := newSender(cfg, log)
	if cfg.AlertEmailTo != "" {
		email.NewNotifier(sender, cfg.AlertEmailTo, log).Subscribe(eventBus)
	}

	crmRepo := crmrepo.New(store)
	inqRepo := inquiries.NewRepository(store)
	healthSvc := health.New(cfg.CRM.Health, crmRepo, health.NewDocstoreProvider(store), eventBus, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	go runSweepTicker(ctx, log, "health sweep", cfg.HealthSweepInterval, func() error {
		return client.EnqueueHealthSweep(ctx, scheduler.HealthSweepPayload{})
	})
	go runSweepTicker(ctx, log, "stale sweep", cfg.StaleSweepInterval, func() error {
		return client.EnqueueStaleSweep(ctx, scheduler.StaleSweepPayload{})
	})

	worker, err := scheduler.NewWorker(cfg, healthSvc, crmRepo, inqRepo, eventBus, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("worker stopped")
}

// runSweepTicker enqueues the sweep task on a fixed interval until shutdown.
func runSweepTicker(ctx context.Context, log *logger.Logger, name string, interval time.Duration, enqueue func() error) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := enqueue(); err != nil {
				log.Error("failed to enqueue sweep", "sweep", name, "error", err)
			} else {
				log.Info("sweep enqueued", "sweep", name)
			}
		}
	}
}

func newSender(cfg *config.Config, log *logger.Logger) email.Sender {
	if !cfg.EmailEnabled {
		log.Warn("email delivery disabled; notifications will be dropped")
		return email.NoopSender{}
	}
	return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername,
		cfg.SMTPPassword, cfg.EmailFromAddress, cfg.EmailFromName)
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
