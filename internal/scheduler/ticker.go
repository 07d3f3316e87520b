package scheduler

import (
	"context"
	"errors"
	"time"

	syncsvc "dim_dashboard_backend/internal/crmsync/service"
	"dim_dashboard_backend/platform/logger"
)

const defaultSweepInterval = 3 * time.Hour

// SweepRunner runs a full sweep.
type SweepRunner interface {
	RunSweep(ctx context.Context) (syncsvc.SweepResult, error)
}

// SweepTicker runs the sweep in-process on a fixed interval. It is the
// fallback when no Redis is configured.
type SweepTicker struct {
	runner   SweepRunner
	log      *logger.Logger
	interval time.Duration
}

func NewSweepTicker(runner SweepRunner, interval time.Duration, log *logger.Logger) *SweepTicker {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &SweepTicker{runner: runner, log: log, interval: interval}
}

// Run blocks until ctx is done. The first sweep happens after one interval.
func (t *SweepTicker) Run(ctx context.Context) {
	if t == nil || t.runner == nil {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

func (t *SweepTicker) sweep(ctx context.Context) {
	_, err := t.runner.RunSweep(ctx)
	switch {
	case errors.Is(err, syncsvc.ErrSweepInProgress):
		t.log.Info("scheduled sweep skipped, another sweep is running")
	case err != nil:
		t.log.Warn("scheduled sweep failed", "error", err)
	}
}
