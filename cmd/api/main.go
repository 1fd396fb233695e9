package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advisorhub_backend/internal/appointments"
	"advisorhub_backend/internal/automation"
	"advisorhub_backend/internal/email"
	"advisorhub_backend/internal/events"
	apphttp "advisorhub_backend/internal/http"
	"advisorhub_backend/internal/http/router"
	"advisorhub_backend/internal/leads"
	"advisorhub_backend/internal/notification"
	"advisorhub_backend/migrations"
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

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
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

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sender := email.NewSender(cfg)
	if !cfg.GetEmailEnabled() {
		log.Warn("outbound email disabled; confirmations, reminders and follow-ups will be dropped")
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

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

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			appointmentsModule,
			leadsModule,
			notificationModule,
			automationModule,
		},
	}

	engine := router.New(app)

	// Without Redis the scans run in-process; with Redis the dedicated
	// scheduler binary owns them and this process only serves HTTP.
	grp, grpCtx := errgroup.WithContext(ctx)
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; running automation scans in-process")
		runner := automationModule.Runner()
		grp.Go(func() error {
			runner.RunReminderLoop(grpCtx)
			return nil
		})
		grp.Go(func() error {
			runner.RunFollowUpLoop(grpCtx)
			return nil
		})
	}

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

	stop()
	_ = grp.Wait()
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
