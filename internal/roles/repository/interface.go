package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a named permission set assigned to users.
type Role struct {
	ID          uuid.UUID
	Name        string
	Permissions []string
	CreatedAt   time.Time
}

// UpsertParams updates the role with ID when set, otherwise the role named Name.
type UpsertParams struct {
	ID          *uuid.UUID
	Name        string
	Permissions []string
}

// Repository provides role persistence.
type Repository interface {
	List(ctx context.Context) ([]Role, error)
	GetByID(ctx context.Context, id uuid.UUID) (Role, error)
	Upsert(ctx context.Context, params UpsertParams) (Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountUsers(ctx context.Context, name string) (int, error)
}
