// Package service produces KPI reports and raw record listings over the
// clinics a caller may see.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dim_dashboard_backend/internal/analytics/kpi"
	"dim_dashboard_backend/internal/analytics/repository"
	"dim_dashboard_backend/internal/analytics/timerange"
	"dim_dashboard_backend/internal/analytics/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/metrics"
	"dim_dashboard_backend/platform/tz"
)

const (
	msgReportFailed  = "failed to generate report"
	msgListFailed    = "failed to load records"
	msgClinicDenied  = "clinic access denied"
	msgBadClinicIDs  = "clinicIds must be a JSON array of clinic ids"
	msgRangeReversed = "from must not be after to"
)

// AssignedClinics lists the clinics a non-admin user may see.
type AssignedClinics interface {
	AssignedClinicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Scope is who is asking.
type Scope struct {
	UserID uuid.UUID
	Admin  bool
}

// Query is a parsed RangeQuery. Nil ClinicIDs means the caller's whole scope;
// an empty non-nil slice matches nothing.
type Query struct {
	From      timerange.Date
	To        timerange.Date
	ClinicIDs []uuid.UUID
}

// ParseQuery validates and converts the wire query.
func ParseQuery(req transport.RangeQuery) (Query, error) {
	from, err := timerange.ParseDate(req.From)
	if err != nil {
		return Query{}, apperr.Validation(err.Error())
	}
	to, err := timerange.ParseDate(req.To)
	if err != nil {
		return Query{}, apperr.Validation(err.Error())
	}
	if to.Before(from) {
		return Query{}, apperr.Validation(msgRangeReversed)
	}

	q := Query{From: from, To: to}
	raw := strings.TrimSpace(req.ClinicIDs)
	if raw == "" {
		return q, nil
	}

	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return Query{}, apperr.Validation(msgBadClinicIDs)
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	q.ClinicIDs = ids
	return q, nil
}

// Service provides business logic for analytics.
type Service struct {
	repo     repository.Repository
	resolver *timerange.Resolver
	assigned AssignedClinics
	loc      *time.Location
	log      *logger.Logger
}

// New creates a new analytics service. reportTimezone drives the chart buckets.
func New(repo repository.Repository, assigned AssignedClinics, reportTimezone string, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: timerange.NewResolver(repo),
		assigned: assigned,
		loc:      tz.Load(reportTimezone),
		log:      log,
	}
}

// Report generates the KPI report for the clinics in q that the caller may see.
func (s *Service) Report(ctx context.Context, scope Scope, q Query) (kpi.Report, error) {
	report, err := s.report(ctx, scope, q)
	if err != nil {
		metrics.ReportsGeneratedTotal.WithLabelValues("failed").Inc()
		if apperr.Is(err, apperr.KindForbidden) || apperr.Is(err, apperr.KindValidation) {
			return kpi.Report{}, err
		}
		s.log.Error(msgReportFailed, "error", err, "from", q.From.String(), "to", q.To.String())
		return kpi.Report{}, apperr.Wrap(apperr.KindInternal, msgReportFailed, err)
	}
	metrics.ReportsGeneratedTotal.WithLabelValues("succeeded").Inc()
	return report, nil
}

func (s *Service) report(ctx context.Context, scope Scope, q Query) (kpi.Report, error) {
	ranges, err := s.ranges(ctx, scope, q)
	if err != nil {
		return kpi.Report{}, err
	}

	clinicIDs := make([]uuid.UUID, 0, len(ranges))
	for _, r := range ranges {
		clinicIDs = append(clinicIDs, r.ClinicID)
	}

	var (
		stages        []repository.ClinicStages
		opportunities []repository.Opportunity
		messages      []repository.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stages, err = s.repo.ClinicStages(gctx, clinicIDs)
		return err
	})
	g.Go(func() error {
		var err error
		opportunities, err = s.repo.ListOpportunities(gctx, ranges)
		return err
	})
	g.Go(func() error {
		var err error
		messages, err = s.repo.ListMessages(gctx, ranges)
		return err
	})
	if err := g.Wait(); err != nil {
		return kpi.Report{}, err
	}

	in := kpi.Input{
		To:            q.To,
		Clinics:       make([]kpi.StageConfig, 0, len(stages)),
		Opportunities: make([]kpi.Opportunity, 0, len(opportunities)),
		Messages:      make([]kpi.Message, 0, len(messages)),
		Location:      s.loc,
	}
	for _, st := range stages {
		in.Clinics = append(in.Clinics, kpi.StageConfig{
			Conversion: st.Conversion,
			Booking:    st.Booking,
			Showing:    st.Showing,
			Close:      st.Close,
		})
	}
	for _, o := range opportunities {
		in.Opportunities = append(in.Opportunities, kpi.Opportunity{PipelineStageID: o.PipelineStageID, CreatedAt: o.CreatedAt})
	}
	for _, m := range messages {
		in.Messages = append(in.Messages, kpi.Message{
			Direction:   m.Direction,
			MessageType: m.MessageType,
			Status:      m.Status,
			DateAdded:   m.DateAdded,
		})
	}
	return kpi.Generate(in), nil
}

// ListOpportunities lists opportunities created in range for the visible clinics.
func (s *Service) ListOpportunities(ctx context.Context, scope Scope, q Query) (transport.OpportunityListResponse, error) {
	ranges, err := s.ranges(ctx, scope, q)
	if err != nil {
		return transport.OpportunityListResponse{}, s.listFailure(err)
	}
	items, err := s.repo.ListOpportunities(ctx, ranges)
	if err != nil {
		return transport.OpportunityListResponse{}, s.listFailure(err)
	}

	resp := transport.OpportunityListResponse{Items: make([]transport.OpportunityResponse, 0, len(items)), Total: len(items)}
	for _, o := range items {
		resp.Items = append(resp.Items, transport.OpportunityResponse{
			ID:                o.ID,
			RemoteID:          o.RemoteID,
			ClinicID:          o.ClinicID,
			ContactID:         o.ContactID,
			PipelineID:        o.PipelineID,
			PipelineStageID:   o.PipelineStageID,
			Name:              o.Name,
			CreatedAt:         o.CreatedAt,
			LastStageChangeAt: o.LastStageChangeAt,
			Timezone:          o.Timezone,
		})
	}
	return resp, nil
}

// ListMessages lists messages added in range for the visible clinics.
func (s *Service) ListMessages(ctx context.Context, scope Scope, q Query) (transport.MessageListResponse, error) {
	ranges, err := s.ranges(ctx, scope, q)
	if err != nil {
		return transport.MessageListResponse{}, s.listFailure(err)
	}
	items, err := s.repo.ListMessages(ctx, ranges)
	if err != nil {
		return transport.MessageListResponse{}, s.listFailure(err)
	}

	resp := transport.MessageListResponse{Items: make([]transport.MessageResponse, 0, len(items)), Total: len(items)}
	for _, m := range items {
		resp.Items = append(resp.Items, transport.MessageResponse{
			ID:          m.ID,
			RemoteID:    m.RemoteID,
			ClinicID:    m.ClinicID,
			ContactID:   m.ContactID,
			Direction:   m.Direction,
			MessageType: m.MessageType,
			Status:      m.Status,
			DateAdded:   m.DateAdded,
			DateLocal:   m.DateLocal,
			UserID:      m.UserID,
			Timezone:    m.Timezone,
		})
	}
	return resp, nil
}

func (s *Service) ranges(ctx context.Context, scope Scope, q Query) ([]timerange.Range, error) {
	ids, err := s.clinicScope(ctx, scope, q.ClinicIDs)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveRange(ctx, ids, q.From, q.To)
}

// clinicScope narrows requested to what the caller may see. Admins default to
// the selected clinics, other users to their assigned ones.
func (s *Service) clinicScope(ctx context.Context, scope Scope, requested []uuid.UUID) ([]uuid.UUID, error) {
	if scope.Admin {
		if requested != nil {
			return requested, nil
		}
		return s.repo.SelectedClinicIDs(ctx)
	}

	assigned, err := s.assigned.AssignedClinicIDs(ctx, scope.UserID)
	if err != nil {
		return nil, err
	}
	if requested == nil {
		return assigned, nil
	}

	allowed := make(map[uuid.UUID]struct{}, len(assigned))
	for _, id := range assigned {
		allowed[id] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := allowed[id]; !ok {
			return nil, apperr.Forbidden(msgClinicDenied)
		}
	}
	return requested, nil
}

func (s *Service) listFailure(err error) error {
	switch apperr.GetKind(err) {
	case apperr.KindForbidden, apperr.KindValidation:
		return err
	}
	s.log.DatabaseError("list records", err)
	return apperr.Wrap(apperr.KindInternal, msgListFailed, err)
}
