package adapters

import (
	"context"

	"github.com/google/uuid"

	clinicsrepo "dim_dashboard_backend/internal/clinics/repository"
	"dim_dashboard_backend/internal/crmsync/client"
	syncsvc "dim_dashboard_backend/internal/crmsync/service"
)

// ClinicSyncSource implements crmsync/service.ClinicSource on top of the
// clinics repository.
type ClinicSyncSource struct {
	repo clinicsrepo.ClinicReader
}

// NewClinicSyncSource creates a new adapter.
func NewClinicSyncSource(repo clinicsrepo.ClinicReader) *ClinicSyncSource {
	return &ClinicSyncSource{repo: repo}
}

// ListSyncable returns the clinics a sweep should visit.
func (a *ClinicSyncSource) ListSyncable(ctx context.Context, selectedOnly bool) ([]syncsvc.Clinic, error) {
	rows, err := a.repo.List(ctx, clinicsrepo.ListParams{SelectedOnly: selectedOnly})
	if err != nil {
		return nil, err
	}

	clinics := make([]syncsvc.Clinic, 0, len(rows))
	for _, row := range rows {
		clinics = append(clinics, toSyncClinic(row))
	}
	return clinics, nil
}

// GetForSync loads one clinic regardless of its selected flag.
func (a *ClinicSyncSource) GetForSync(ctx context.Context, id uuid.UUID) (syncsvc.Clinic, error) {
	row, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return syncsvc.Clinic{}, err
	}
	return toSyncClinic(row), nil
}

func toSyncClinic(c clinicsrepo.Clinic) syncsvc.Clinic {
	return syncsvc.Clinic{
		ID:       c.ID,
		Name:     c.Name,
		Timezone: c.Timezone,
		Credentials: client.Credentials{
			APIToken:   c.APIToken,
			LocationID: c.LocationID,
			PipelineID: c.PipelineID,
		},
	}
}

// Compile-time check that ClinicSyncSource implements crmsync/service.ClinicSource.
var _ syncsvc.ClinicSource = (*ClinicSyncSource)(nil)
