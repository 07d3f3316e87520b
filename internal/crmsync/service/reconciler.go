// Package service implements clinic CRM synchronization: fetching, reconciling
// and sweeping every eligible clinic.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dim_dashboard_backend/internal/crmsync/client"
	"dim_dashboard_backend/internal/crmsync/repository"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/metrics"
	"dim_dashboard_backend/platform/tz"
)

// Clinic is the sync view of a clinic.
type Clinic struct {
	ID          uuid.UUID
	Name        string
	Timezone    string
	Credentials client.Credentials
}

// SyncOutcome counts what one clinic sync wrote.
type SyncOutcome struct {
	ClinicID      uuid.UUID `json:"clinicId"`
	Opportunities int       `json:"opportunities"`
	Messages      int       `json:"messages"`
	Skipped       int       `json:"skipped"`
	SyncedAt      time.Time `json:"syncedAt"`
}

// Fetcher pulls raw records for one clinic.
type Fetcher interface {
	FetchOpportunities(ctx context.Context, creds client.Credentials) (client.Result[client.RawOpportunity], error)
	FetchMessages(ctx context.Context, creds client.Credentials) (client.Result[client.RawMessage], error)
}

// Reconciler merges fetched records into the store.
type Reconciler struct {
	fetcher Fetcher
	repo    repository.Repository
	log     *logger.Logger
	now     func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(fetcher Fetcher, repo repository.Repository, log *logger.Logger) *Reconciler {
	return &Reconciler{
		fetcher: fetcher,
		repo:    repo,
		log:     log,
		now:     time.Now,
	}
}

// SyncClinic fetches both record kinds concurrently and reconciles them.
func (r *Reconciler) SyncClinic(ctx context.Context, clinic Clinic) (SyncOutcome, error) {
	var (
		opportunities client.Result[client.RawOpportunity]
		messages      client.Result[client.RawMessage]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		opportunities, err = r.fetcher.FetchOpportunities(gctx, clinic.Credentials)
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = r.fetcher.FetchMessages(gctx, clinic.Credentials)
		return err
	})
	if err := g.Wait(); err != nil {
		return SyncOutcome{ClinicID: clinic.ID}, err
	}

	metrics.RecordsSkippedTotal.WithLabelValues("opportunity").Add(float64(opportunities.Skipped))
	metrics.RecordsSkippedTotal.WithLabelValues("message").Add(float64(messages.Skipped))

	outcome, err := r.Reconcile(ctx, clinic, opportunities.Records, messages.Records)
	outcome.Skipped = opportunities.Skipped + messages.Skipped
	return outcome, err
}

// Reconcile upserts the records keyed on (remote id, clinic) and advances
// last_sync_at. Records missing from this fetch are left untouched.
func (r *Reconciler) Reconcile(ctx context.Context, clinic Clinic, opportunities []client.RawOpportunity, messages []client.RawMessage) (SyncOutcome, error) {
	syncedAt := r.now().UTC()
	loc := tz.Load(clinic.Timezone)
	snapshot := loc.String()

	write := repository.SyncWrite{
		ClinicID:      clinic.ID,
		Opportunities: make([]repository.OpportunityUpsert, 0, len(opportunities)),
		Messages:      make([]repository.MessageUpsert, 0, len(messages)),
		SyncedAt:      syncedAt,
	}

	for _, o := range opportunities {
		write.Opportunities = append(write.Opportunities, repository.OpportunityUpsert{
			RemoteID:          o.ID,
			ContactID:         o.ContactID,
			PipelineID:        o.PipelineID,
			PipelineStageID:   o.PipelineStageID,
			Name:              o.Name,
			CreatedAt:         o.CreatedAt,
			LastStageChangeAt: o.LastStageChangeAt,
			Timezone:          snapshot,
		})
	}

	for _, m := range messages {
		dateLocal, dateLocalFull := tz.LocalDay(m.DateAdded, loc)
		write.Messages = append(write.Messages, repository.MessageUpsert{
			RemoteID:      m.ID,
			ContactID:     m.ContactID,
			Direction:     m.Direction,
			MessageType:   m.MessageType,
			Status:        m.Status,
			DateAdded:     m.DateAdded,
			DateLocal:     dateLocal,
			DateLocalFull: dateLocalFull,
			UserID:        m.UserID,
			Timezone:      snapshot,
		})
	}

	if err := r.repo.ApplySync(ctx, write); err != nil {
		return SyncOutcome{ClinicID: clinic.ID}, err
	}

	metrics.RecordsUpsertedTotal.WithLabelValues("opportunity").Add(float64(len(write.Opportunities)))
	metrics.RecordsUpsertedTotal.WithLabelValues("message").Add(float64(len(write.Messages)))

	return SyncOutcome{
		ClinicID:      clinic.ID,
		Opportunities: len(write.Opportunities),
		Messages:      len(write.Messages),
		SyncedAt:      syncedAt,
	}, nil
}
