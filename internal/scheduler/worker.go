package scheduler

import (
	"context"
	"errors"
	"fmt"

	syncsvc "dim_dashboard_backend/internal/crmsync/service"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SyncRunner executes sync work. Implemented by crmsync/service.Sweeper.
type SyncRunner interface {
	RunSweep(ctx context.Context) (syncsvc.SweepResult, error)
	SyncOne(ctx context.Context, clinicID uuid.UUID) (syncsvc.SyncOutcome, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner SyncRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner SyncRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskCRMSyncSweep, w.handleSweep)
	mux.HandleFunc(TaskCRMSyncClinic, w.handleClinicSync)

	return w, nil
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

func (w *Worker) handleSweep(ctx context.Context, _ *asynq.Task) error {
	_, err := w.runner.RunSweep(ctx)
	if errors.Is(err, syncsvc.ErrSweepInProgress) {
		w.log.Info("sweep skipped, another sweep is running")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	return nil
}

func (w *Worker) handleClinicSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseClinicSyncPayload(task)
	if err != nil {
		return fmt.Errorf("parse clinic sync payload: %v: %w", err, asynq.SkipRetry)
	}

	clinicID, err := uuid.Parse(payload.ClinicID)
	if err != nil {
		return fmt.Errorf("invalid clinic id %q: %w", payload.ClinicID, asynq.SkipRetry)
	}

	if _, err := w.runner.SyncOne(ctx, clinicID); err != nil {
		return fmt.Errorf("sync clinic %s: %w", clinicID, err)
	}
	return nil
}
