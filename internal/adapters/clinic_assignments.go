package adapters

import (
	"context"

	"github.com/google/uuid"

	analyticssvc "dim_dashboard_backend/internal/analytics/service"
	clinicshandler "dim_dashboard_backend/internal/clinics/handler"
)

// AssignmentReader is the narrow slice of the users repository that knows
// which clinics a user may see.
type AssignmentReader interface {
	AssignedClinicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// ClinicAssignments exposes user-to-clinic assignments to the clinics and
// analytics modules. A user with no assignments gets an empty, non-nil list.
type ClinicAssignments struct {
	reader AssignmentReader
}

// NewClinicAssignments creates a new adapter.
func NewClinicAssignments(reader AssignmentReader) *ClinicAssignments {
	return &ClinicAssignments{reader: reader}
}

func (a *ClinicAssignments) AssignedClinicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := a.reader.AssignedClinicIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// Compile-time checks.
var (
	_ clinicshandler.AssignedClinics = (*ClinicAssignments)(nil)
	_ analyticssvc.AssignedClinics   = (*ClinicAssignments)(nil)
)
