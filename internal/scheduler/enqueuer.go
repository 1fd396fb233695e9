package scheduler

import (
	"context"
	"time"

	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/logger"
)

// Enqueuer puts scan tasks on the queue on the configured cadence. It is
// the distributed counterpart of the in-process ticker loops: exactly one
// process runs it, the worker pool consumes the tasks.
type Enqueuer struct {
	client           *Client
	reminderInterval time.Duration
	followUpInterval time.Duration
	log              *logger.Logger
}

func NewEnqueuer(client *Client, cfg config.AutomationConfig, log *logger.Logger) *Enqueuer {
	reminderInterval := cfg.GetReminderScanInterval()
	if reminderInterval <= 0 {
		reminderInterval = time.Hour
	}
	followUpInterval := cfg.GetFollowUpScanInterval()
	if followUpInterval <= 0 {
		followUpInterval = 24 * time.Hour
	}

	return &Enqueuer{
		client:           client,
		reminderInterval: reminderInterval,
		followUpInterval: followUpInterval,
		log:              log.WithComponent("scheduler.enqueuer"),
	}
}

func (e *Enqueuer) Run(ctx context.Context) {
	if e == nil || e.client == nil {
		return
	}

	e.enqueueReminder(ctx)
	e.enqueueFollowUp(ctx)

	reminderTicker := time.NewTicker(e.reminderInterval)
	defer reminderTicker.Stop()
	followUpTicker := time.NewTicker(e.followUpInterval)
	defer followUpTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reminderTicker.C:
			e.enqueueReminder(ctx)
		case <-followUpTicker.C:
			e.enqueueFollowUp(ctx)
		}
	}
}

func (e *Enqueuer) enqueueReminder(ctx context.Context) {
	if err := e.client.EnqueueReminderScan(ctx, "schedule"); err != nil {
		e.log.Error("failed to enqueue reminder scan", "error", err)
	}
}

func (e *Enqueuer) enqueueFollowUp(ctx context.Context) {
	if err := e.client.EnqueueFollowUpScan(ctx, "schedule"); err != nil {
		e.log.Error("failed to enqueue follow-up scan", "error", err)
	}
}
