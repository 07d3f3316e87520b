package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/metrics"
	"dim_dashboard_backend/platform/redislock"
)

const (
	// DefaultConcurrency is the number of clinics synced at once.
	DefaultConcurrency = 3
	// MaxConcurrency caps the fan-out regardless of configuration.
	MaxConcurrency = 5
	// DefaultClinicTimeout bounds one clinic's fetch and reconcile.
	DefaultClinicTimeout = 10 * time.Minute

	sweepLockKey = "crmsync:sweep"
	// sweepLockInitialTTL covers loading the clinic list; the lock is then
	// extended to the sweep's budget.
	sweepLockInitialTTL = 5 * time.Minute
	sweepLockSlack      = 2 * time.Minute
)

// ErrSweepInProgress is returned when another sweep holds the lock.
var ErrSweepInProgress = errors.New("sweep already in progress")

// ClinicSource loads the clinics a sweep operates on.
type ClinicSource interface {
	ListSyncable(ctx context.Context, selectedOnly bool) ([]Clinic, error)
	GetForSync(ctx context.Context, id uuid.UUID) (Clinic, error)
}

// ClinicSyncer syncs a single clinic. Implemented by Reconciler.
type ClinicSyncer interface {
	SyncClinic(ctx context.Context, clinic Clinic) (SyncOutcome, error)
}

// Locker guards a sweep across replicas. Implemented by redislock.Locker.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(extend redislock.ExtendFunc) error) error
}

// SweepConfig tunes a Sweeper.
type SweepConfig struct {
	SelectedOnly  bool
	Concurrency   int
	ClinicTimeout time.Duration
}

// SweepConfigFrom reads the sweep settings from configuration.
func SweepConfigFrom(cfg config.SyncConfig) SweepConfig {
	return SweepConfig{
		SelectedOnly:  cfg.GetSyncSelectedOnly(),
		Concurrency:   cfg.GetSyncConcurrency(),
		ClinicTimeout: cfg.GetSyncClinicTimeout(),
	}
}

// ClinicFailure records a clinic that failed during a sweep.
type ClinicFailure struct {
	ClinicID uuid.UUID `json:"clinicId"`
	Name     string    `json:"name"`
	Error    string    `json:"error"`
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    time.Time       `json:"finishedAt"`
	Clinics       int             `json:"clinics"`
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
	Opportunities int             `json:"opportunities"`
	Messages      int             `json:"messages"`
	Skipped       int             `json:"skipped"`
	Failures      []ClinicFailure `json:"failures"`
}

// SweepStatus is the observable state of the sweeper in this process.
type SweepStatus struct {
	Running bool         `json:"running"`
	Last    *SweepResult `json:"last,omitempty"`
}

// Sweeper runs the sync across every eligible clinic with bounded fan-out.
type Sweeper struct {
	clinics ClinicSource
	syncer  ClinicSyncer
	locker  Locker
	cfg     SweepConfig
	log     *logger.Logger

	mu      sync.Mutex
	running bool
	last    *SweepResult
}

// NewSweeper creates a Sweeper. locker may be nil for single-replica deployments.
func NewSweeper(clinics ClinicSource, syncer ClinicSyncer, locker Locker, cfg SweepConfig, log *logger.Logger) *Sweeper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Concurrency > MaxConcurrency {
		cfg.Concurrency = MaxConcurrency
	}
	if cfg.ClinicTimeout <= 0 {
		cfg.ClinicTimeout = DefaultClinicTimeout
	}
	return &Sweeper{
		clinics: clinics,
		syncer:  syncer,
		locker:  locker,
		cfg:     cfg,
		log:     log,
	}
}

// RunSweep syncs every eligible clinic. A failing clinic is logged and counted;
// the returned error only reports that the sweep could not start.
func (s *Sweeper) RunSweep(ctx context.Context) (SweepResult, error) {
	if !s.begin() {
		metrics.SweepsTotal.WithLabelValues("skipped").Inc()
		return SweepResult{}, ErrSweepInProgress
	}
	defer s.end()

	if s.locker == nil {
		return s.sweep(ctx, nil)
	}

	var result SweepResult
	err := s.locker.WithLock(ctx, sweepLockKey, sweepLockInitialTTL, func(extend redislock.ExtendFunc) error {
		var sweepErr error
		result, sweepErr = s.sweep(ctx, extend)
		return sweepErr
	})
	if errors.Is(err, redislock.ErrLockNotAcquired) {
		metrics.SweepsTotal.WithLabelValues("skipped").Inc()
		return SweepResult{}, ErrSweepInProgress
	}
	return result, err
}

// sweepBudget is the longest a sweep over n clinics may run: one clinic timeout per
// wave of Concurrency clinics.
func (s *Sweeper) sweepBudget(n int) time.Duration {
	waves := (n + s.cfg.Concurrency - 1) / s.cfg.Concurrency
	if waves < 1 {
		waves = 1
	}
	return time.Duration(waves) * s.cfg.ClinicTimeout
}

// sweep runs one pass. extend is nil when no distributed lock is held.
func (s *Sweeper) sweep(ctx context.Context, extend redislock.ExtendFunc) (SweepResult, error) {
	result := SweepResult{StartedAt: time.Now().UTC(), Failures: []ClinicFailure{}}

	clinics, err := s.clinics.ListSyncable(ctx, s.cfg.SelectedOnly)
	if err != nil {
		metrics.SweepsTotal.WithLabelValues("error").Inc()
		s.log.Error("sweep could not load clinics", "error", err)
		return result, err
	}
	result.Clinics = len(clinics)

	// The lock must outlive the sweep, so the sweep is bounded by the same budget.
	budget := s.sweepBudget(len(clinics))
	if extend != nil {
		if err := extend(ctx, budget+sweepLockSlack); err != nil {
			metrics.SweepsTotal.WithLabelValues("error").Inc()
			s.log.Error("sweep could not extend its lock", "error", err)
			return result, err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	s.log.Info("sweep started", "clinics", len(clinics), "selectedOnly", s.cfg.SelectedOnly, "concurrency", s.cfg.Concurrency)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, clinic := range clinics {
		g.Go(func() error {
			outcome, err := s.syncWithTimeout(gctx, clinic)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, ClinicFailure{ClinicID: clinic.ID, Name: clinic.Name, Error: err.Error()})
				return nil
			}
			result.Succeeded++
			result.Opportunities += outcome.Opportunities
			result.Messages += outcome.Messages
			result.Skipped += outcome.Skipped
			return nil
		})
	}
	_ = g.Wait()

	result.FinishedAt = time.Now().UTC()
	metrics.SweepsTotal.WithLabelValues("completed").Inc()
	s.log.Info("sweep finished",
		"clinics", result.Clinics,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"opportunities", result.Opportunities,
		"messages", result.Messages,
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	)

	s.mu.Lock()
	last := result
	s.last = &last
	s.mu.Unlock()

	return result, nil
}

// SyncOne syncs a single clinic on demand, regardless of its selected flag.
func (s *Sweeper) SyncOne(ctx context.Context, clinicID uuid.UUID) (SyncOutcome, error) {
	clinic, err := s.clinics.GetForSync(ctx, clinicID)
	if err != nil {
		return SyncOutcome{}, err
	}

	outcome, err := s.syncWithTimeout(ctx, clinic)
	if err != nil {
		if apperr.GetKind(err) != apperr.KindUnknown {
			return outcome, err
		}
		return outcome, apperr.Upstream("clinic sync failed", err)
	}
	return outcome, nil
}

// Status reports whether a sweep is running here and the last result.
func (s *Sweeper) Status() SweepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SweepStatus{Running: s.running}
	if s.last != nil {
		last := *s.last
		status.Last = &last
	}
	return status
}

func (s *Sweeper) syncWithTimeout(ctx context.Context, clinic Clinic) (SyncOutcome, error) {
	clinicCtx, cancel := context.WithTimeout(ctx, s.cfg.ClinicTimeout)
	defer cancel()

	log := s.log.WithClinic(clinic.ID.String())
	log.Debug("clinic sync started", "name", clinic.Name)

	start := time.Now()
	outcome, err := s.syncer.SyncClinic(clinicCtx, clinic)
	elapsed := time.Since(start)
	if err != nil && errors.Is(clinicCtx.Err(), context.DeadlineExceeded) {
		log.Warn("clinic sync timed out", "timeout", s.cfg.ClinicTimeout.String())
	}

	metrics.ClinicSyncDuration.Observe(elapsed.Seconds())
	if err != nil {
		metrics.ClinicSyncsTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.ClinicSyncsTotal.WithLabelValues("succeeded").Inc()
	}
	s.log.SyncEvent(clinic.ID.String(), outcome.Opportunities, outcome.Messages, outcome.Skipped, elapsed, err)

	return outcome, err
}

func (s *Sweeper) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Sweeper) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
