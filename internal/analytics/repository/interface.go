package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dim_dashboard_backend/internal/analytics/timerange"
)

// Opportunity is a synced opportunity as read for reporting.
type Opportunity struct {
	ID                uuid.UUID
	RemoteID          string
	ClinicID          uuid.UUID
	ContactID         string
	PipelineID        string
	PipelineStageID   string
	Name              string
	CreatedAt         time.Time
	LastStageChangeAt *time.Time
	Timezone          string
}

// Message is a synced message as read for reporting.
type Message struct {
	ID          uuid.UUID
	RemoteID    string
	ClinicID    uuid.UUID
	ContactID   string
	Direction   string
	MessageType string
	Status      string
	DateAdded   time.Time
	DateLocal   string
	UserID      string
	Timezone    string
}

// ClinicStages is one clinic's funnel stage mapping.
type ClinicStages struct {
	ClinicID   uuid.UUID
	Conversion []string
	Booking    []string
	Showing    []string
	Close      []string
}

// ClinicReader reads the clinic settings reports depend on.
type ClinicReader interface {
	timerange.ZoneLookup
	ClinicStages(ctx context.Context, ids []uuid.UUID) ([]ClinicStages, error)
	SelectedClinicIDs(ctx context.Context) ([]uuid.UUID, error)
}

// RecordReader reads synced records inside resolved per-clinic ranges.
// An empty ranges slice returns an empty result without querying.
type RecordReader interface {
	ListOpportunities(ctx context.Context, ranges []timerange.Range) ([]Opportunity, error)
	ListMessages(ctx context.Context, ranges []timerange.Range) ([]Message, error)
}

// Repository combines all analytics repository operations.
type Repository interface {
	ClinicReader
	RecordReader
}
