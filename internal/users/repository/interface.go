package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is a dashboard account and the clinics it may see.
type User struct {
	ID          uuid.UUID
	Email       string
	Name        string
	Role        string
	FirebaseUID *string
	ClinicIDs   []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertParams creates a user or refreshes the one registered for Email.
type UpsertParams struct {
	Email       string
	Name        string
	Role        string
	FirebaseUID *string
}

// UserReader provides read operations for users.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	AssignedClinicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	RoleExists(ctx context.Context, name string) (bool, error)
}

// UserWriter provides write operations for users.
type UserWriter interface {
	Upsert(ctx context.Context, params UpsertParams) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// SetClinics replaces the user's clinic assignments.
	SetClinics(ctx context.Context, userID uuid.UUID, clinicIDs []uuid.UUID) error
	RemoveClinic(ctx context.Context, userID, clinicID uuid.UUID) error
}

// Repository combines all user repository operations.
type Repository interface {
	UserReader
	UserWriter
}
