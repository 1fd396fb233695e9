package scheduler

import (
	"context"
	"fmt"

	"advisorhub_backend/internal/automation"
	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes automation scan tasks and runs the shared scan bodies.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner *automation.Runner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner *automation.Runner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log.WithComponent("scheduler.worker"),
	}

	mux.HandleFunc(TaskReminderScan, w.handleReminderScan)
	mux.HandleFunc(TaskFollowUpScan, w.handleFollowUpScan)

	return w, nil
}

func (w *Worker) handleReminderScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseScanPayload(task)
	if err != nil {
		return err
	}

	result, err := w.runner.ReminderScan(ctx)
	if err != nil {
		return err
	}
	w.log.Info("reminder scan task done",
		"triggeredBy", payload.TriggeredBy,
		"candidates", result.Candidates,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return nil
}

func (w *Worker) handleFollowUpScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseScanPayload(task)
	if err != nil {
		return err
	}

	result, err := w.runner.FollowUpScan(ctx)
	if err != nil {
		return err
	}
	w.log.Info("follow-up scan task done",
		"triggeredBy", payload.TriggeredBy,
		"candidates", result.Candidates,
		"sent", result.Sent,
		"failed", result.Failed,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
