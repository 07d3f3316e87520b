package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Clinic is a tenant whose CRM account is synchronized and reported on.
type Clinic struct {
	ID                 uuid.UUID
	Name               string
	Phone              *string
	APIToken           string
	LocationID         string
	PipelineID         string
	Timezone           string
	Selected           bool
	ConversionStageIDs []string
	BookingStageIDs    []string
	ShowingStageIDs    []string
	CloseStageIDs      []string
	LastSyncAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateParams contains parameters for creating a clinic.
type CreateParams struct {
	Name               string
	Phone              *string
	APIToken           string
	LocationID         string
	PipelineID         string
	Timezone           string
	Selected           bool
	ConversionStageIDs []string
	BookingStageIDs    []string
	ShowingStageIDs    []string
	CloseStageIDs      []string
}

// UpdateParams contains parameters for updating a clinic. Nil fields are left unchanged.
type UpdateParams struct {
	ID                 uuid.UUID
	Name               *string
	Phone              *string
	APIToken           *string
	LocationID         *string
	PipelineID         *string
	Timezone           *string
	ConversionStageIDs *[]string
	BookingStageIDs    *[]string
	ShowingStageIDs    *[]string
	CloseStageIDs      *[]string
}

// ListParams filters a clinic listing.
type ListParams struct {
	SelectedOnly bool
	// IDs restricts the listing when non-nil. An empty non-nil slice matches nothing.
	IDs []uuid.UUID
}

// ClinicReader provides read operations for clinics.
type ClinicReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Clinic, error)
	List(ctx context.Context, params ListParams) ([]Clinic, error)
}

// ClinicWriter provides write operations for clinics.
type ClinicWriter interface {
	Create(ctx context.Context, params CreateParams) (Clinic, error)
	Update(ctx context.Context, params UpdateParams) (Clinic, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetSelected(ctx context.Context, id uuid.UUID, selected bool) error
}

// Repository combines all clinic repository operations.
type Repository interface {
	ClinicReader
	ClinicWriter
}
