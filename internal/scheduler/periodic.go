package scheduler

import (
	"context"
	"fmt"

	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the recurring sweep with asynq's scheduler. Every
// replica may run one; the unique option keeps a single sweep queued.
type Periodic struct {
	scheduler *asynq.Scheduler
	entryID   string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, syncCfg config.SyncConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		EnqueueErrorHandler: func(task *asynq.Task, _ []asynq.Option, err error) {
			log.Warn("periodic enqueue failed", "task", task.Type(), "error", err)
		},
	})

	entryID, err := scheduler.Register(syncCfg.GetSyncCron(), NewCRMSyncSweepTask(),
		asynq.Queue(queueName(cfg)),
		asynq.Unique(sweepUniqueTTL),
		asynq.MaxRetry(0),
		asynq.Timeout(sweepTaskTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("register sweep cron %q: %w", syncCfg.GetSyncCron(), err)
	}

	return &Periodic{scheduler: scheduler, entryID: entryID, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler failed to start", "error", err)
		return
	}
	p.log.Info("periodic sweep registered", "entry", p.entryID)

	<-ctx.Done()
	p.scheduler.Shutdown()
}
