package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"dim_dashboard_backend/internal/clinics/repository"
	"dim_dashboard_backend/internal/clinics/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/phone"
	"dim_dashboard_backend/platform/tz"
)

const defaultTimezone = "UTC"

// Service provides business logic for clinics.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new clinics service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByID retrieves a clinic by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ClinicResponse, error) {
	clinic, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ClinicResponse{}, err
	}
	return toResponse(clinic), nil
}

// List retrieves every clinic, optionally only the selected ones.
func (s *Service) List(ctx context.Context, req transport.ListClinicsRequest) (transport.ClinicListResponse, error) {
	clinics, err := s.repo.List(ctx, repository.ListParams{SelectedOnly: req.SelectedOnly})
	if err != nil {
		return transport.ClinicListResponse{}, err
	}
	return toListResponse(clinics), nil
}

// ListByIDs retrieves the clinics in ids. An empty set yields an empty list.
func (s *Service) ListByIDs(ctx context.Context, ids []uuid.UUID) (transport.ClinicListResponse, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	clinics, err := s.repo.List(ctx, repository.ListParams{IDs: ids})
	if err != nil {
		return transport.ClinicListResponse{}, err
	}
	return toListResponse(clinics), nil
}

// Create creates a new clinic.
func (s *Service) Create(ctx context.Context, req transport.CreateClinicRequest) (transport.ClinicResponse, error) {
	timezone, err := normalizeTimezone(req.Timezone)
	if err != nil {
		return transport.ClinicResponse{}, err
	}

	clinic, err := s.repo.Create(ctx, repository.CreateParams{
		Name:               strings.TrimSpace(req.Name),
		Phone:              normalizePhone(req.Phone),
		APIToken:           strings.TrimSpace(req.APIToken),
		LocationID:         strings.TrimSpace(req.LocationID),
		PipelineID:         strings.TrimSpace(req.PipelineID),
		Timezone:           timezone,
		Selected:           req.Selected,
		ConversionStageIDs: cleanStageIDs(req.ConversionStageIDs),
		BookingStageIDs:    cleanStageIDs(req.BookingStageIDs),
		ShowingStageIDs:    cleanStageIDs(req.ShowingStageIDs),
		CloseStageIDs:      cleanStageIDs(req.CloseStageIDs),
	})
	if err != nil {
		return transport.ClinicResponse{}, err
	}

	s.log.Info("clinic created", "id", clinic.ID, "name", clinic.Name, "timezone", clinic.Timezone)
	return toResponse(clinic), nil
}

// Update updates an existing clinic.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateClinicRequest) (transport.ClinicResponse, error) {
	params := repository.UpdateParams{
		ID:         id,
		Name:       trimPtr(req.Name),
		Phone:      normalizePhone(req.Phone),
		APIToken:   trimPtr(req.APIToken),
		LocationID: trimPtr(req.LocationID),
		PipelineID: trimPtr(req.PipelineID),
	}
	if req.Timezone != nil {
		timezone, err := normalizeTimezone(*req.Timezone)
		if err != nil {
			return transport.ClinicResponse{}, err
		}
		params.Timezone = &timezone
	}
	params.ConversionStageIDs = cleanStageIDsPtr(req.ConversionStageIDs)
	params.BookingStageIDs = cleanStageIDsPtr(req.BookingStageIDs)
	params.ShowingStageIDs = cleanStageIDsPtr(req.ShowingStageIDs)
	params.CloseStageIDs = cleanStageIDsPtr(req.CloseStageIDs)

	clinic, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.ClinicResponse{}, err
	}

	s.log.Info("clinic updated", "id", clinic.ID)
	return toResponse(clinic), nil
}

// Delete removes a clinic.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("clinic deleted", "id", id)
	return nil
}

// SetSelected toggles whether the clinic takes part in scheduled syncs.
func (s *Service) SetSelected(ctx context.Context, id uuid.UUID, selected bool) error {
	if err := s.repo.SetSelected(ctx, id, selected); err != nil {
		return err
	}
	s.log.Info("clinic selection changed", "id", id, "selected", selected)
	return nil
}

func normalizeTimezone(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultTimezone, nil
	}
	if !tz.Valid(value) {
		return "", apperr.Validation("timezone must be a valid IANA zone name")
	}
	return value, nil
}

func normalizePhone(value *string) *string {
	if value == nil {
		return nil
	}
	normalized := phone.NormalizeE164(*value)
	return &normalized
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

// cleanStageIDs trims, drops blanks and removes duplicates while keeping order.
func cleanStageIDs(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

func cleanStageIDsPtr(values *[]string) *[]string {
	if values == nil {
		return nil
	}
	cleaned := cleanStageIDs(*values)
	return &cleaned
}

func toResponse(c repository.Clinic) transport.ClinicResponse {
	return transport.ClinicResponse{
		ID:                 c.ID,
		Name:               c.Name,
		Phone:              c.Phone,
		HasAPIToken:        c.APIToken != "",
		LocationID:         c.LocationID,
		PipelineID:         c.PipelineID,
		Timezone:           c.Timezone,
		Selected:           c.Selected,
		ConversionStageIDs: nonNil(c.ConversionStageIDs),
		BookingStageIDs:    nonNil(c.BookingStageIDs),
		ShowingStageIDs:    nonNil(c.ShowingStageIDs),
		CloseStageIDs:      nonNil(c.CloseStageIDs),
		LastSyncAt:         c.LastSyncAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func toListResponse(clinics []repository.Clinic) transport.ClinicListResponse {
	items := make([]transport.ClinicResponse, 0, len(clinics))
	for _, c := range clinics {
		items = append(items, toResponse(c))
	}
	return transport.ClinicListResponse{Items: items, Total: len(items)}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
