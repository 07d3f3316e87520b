package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateClinicRequest contains data for creating a clinic.
type CreateClinicRequest struct {
	Name               string   `json:"name" validate:"required,min=1,max=200"`
	Phone              *string  `json:"phone,omitempty" validate:"omitempty,max=40"`
	APIToken           string   `json:"apiToken" validate:"required,max=500"`
	LocationID         string   `json:"locationId" validate:"required,max=100"`
	PipelineID         string   `json:"pipelineId" validate:"omitempty,max=100"`
	Timezone           string   `json:"timezone" validate:"omitempty,iana_tz"`
	Selected           bool     `json:"selected"`
	ConversionStageIDs []string `json:"conversionStageIds" validate:"omitempty,dive,max=100"`
	BookingStageIDs    []string `json:"bookingStageIds" validate:"omitempty,dive,max=100"`
	ShowingStageIDs    []string `json:"showingStageIds" validate:"omitempty,dive,max=100"`
	CloseStageIDs      []string `json:"closeStageIds" validate:"omitempty,dive,max=100"`
}

// UpdateClinicRequest contains data for updating a clinic.
type UpdateClinicRequest struct {
	Name               *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone              *string   `json:"phone,omitempty" validate:"omitempty,max=40"`
	APIToken           *string   `json:"apiToken,omitempty" validate:"omitempty,min=1,max=500"`
	LocationID         *string   `json:"locationId,omitempty" validate:"omitempty,min=1,max=100"`
	PipelineID         *string   `json:"pipelineId,omitempty" validate:"omitempty,max=100"`
	Timezone           *string   `json:"timezone,omitempty" validate:"omitempty,iana_tz"`
	ConversionStageIDs *[]string `json:"conversionStageIds,omitempty" validate:"omitempty,dive,max=100"`
	BookingStageIDs    *[]string `json:"bookingStageIds,omitempty" validate:"omitempty,dive,max=100"`
	ShowingStageIDs    *[]string `json:"showingStageIds,omitempty" validate:"omitempty,dive,max=100"`
	CloseStageIDs      *[]string `json:"closeStageIds,omitempty" validate:"omitempty,dive,max=100"`
}

// SetSelectedRequest toggles whether a clinic participates in the sync.
type SetSelectedRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

// ListClinicsRequest filters the admin clinic listing.
type ListClinicsRequest struct {
	SelectedOnly bool `form:"selected"`
}

// ClinicResponse represents a clinic in API responses. The CRM token is never echoed.
type ClinicResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Phone              *string    `json:"phone,omitempty"`
	HasAPIToken        bool       `json:"hasApiToken"`
	LocationID         string     `json:"locationId"`
	PipelineID         string     `json:"pipelineId"`
	Timezone           string     `json:"timezone"`
	Selected           bool       `json:"selected"`
	ConversionStageIDs []string   `json:"conversionStageIds"`
	BookingStageIDs    []string   `json:"bookingStageIds"`
	ShowingStageIDs    []string   `json:"showingStageIds"`
	CloseStageIDs      []string   `json:"closeStageIds"`
	LastSyncAt         *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// ClinicListResponse wraps a list of clinics.
type ClinicListResponse struct {
	Items []ClinicResponse `json:"items"`
	Total int              `json:"total"`
}
