package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OpportunityUpsert is one opportunity row keyed by (RemoteID, clinic).
type OpportunityUpsert struct {
	RemoteID          string
	ContactID         string
	PipelineID        string
	PipelineStageID   string
	Name              string
	CreatedAt         time.Time
	LastStageChangeAt *time.Time
	Timezone          string
}

// MessageUpsert is one message row keyed by (RemoteID, clinic).
type MessageUpsert struct {
	RemoteID      string
	ContactID     string
	Direction     string
	MessageType   string
	Status        string
	DateAdded     time.Time
	DateLocal     string
	DateLocalFull time.Time
	UserID        string
	Timezone      string
}

// SyncWrite is everything one clinic sync persists.
type SyncWrite struct {
	ClinicID      uuid.UUID
	Opportunities []OpportunityUpsert
	Messages      []MessageUpsert
	SyncedAt      time.Time
}

// RecordCounts is the number of stored records for one clinic.
type RecordCounts struct {
	Opportunities int
	Messages      int
}

// Repository persists synced CRM records.
type Repository interface {
	// ApplySync upserts both record kinds and advances the clinic's last_sync_at
	// in one transaction. Nothing is written if any statement fails.
	ApplySync(ctx context.Context, write SyncWrite) error
	CountRecords(ctx context.Context, clinicID uuid.UUID) (RecordCounts, error)
}
