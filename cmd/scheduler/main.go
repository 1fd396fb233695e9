package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advisorhub_backend/internal/appointments"
	"advisorhub_backend/internal/automation"
	"advisorhub_backend/internal/email"
	"advisorhub_backend/internal/events"
	"advisorhub_backend/internal/leads"
	"advisorhub_backend/internal/notification"
	"advisorhub_backend/internal/scheduler"
	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/db"
	"advisorhub_backend/platform/logger"
	"advisorhub_backend/platform/validator"

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

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the scheduler binary")
	}

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

	sender := email.NewSender(cfg)

	val := validator.New()

	// Worker-side automation wiring (no HTTP handlers required).
	appointmentsModule := appointments.NewModule(pool, eventBus, val, cfg, log)
	leadsModule := leads.NewModule(pool, eventBus, val, log)
	notificationModule := notification.NewModule(pool, eventBus, sender, cfg.GetAdminEmail(), log)
	automationModule := automation.NewModule(
		appointmentsModule.Store(),
		leadsModule.Service(),
		notificationModule.Service(),
		sender,
		cfg,
		log,
	)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	worker, err := scheduler.NewWorker(cfg, automationModule.Runner(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	enqueuer := scheduler.NewEnqueuer(client, cfg, log)

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		enqueuer.Run(grpCtx)
		return nil
	})
	grp.Go(func() error {
		worker.Run(grpCtx)
		return nil
	})
	_ = grp.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
