package transport

import (
	"time"

	"github.com/google/uuid"
)

// UpsertRoleRequest updates the role with ID when given, otherwise creates or
// updates the role with Name.
type UpsertRoleRequest struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Name        string     `json:"name" validate:"required,min=1,max=50"`
	Permissions []string   `json:"permissions" validate:"omitempty,dive,min=1,max=100"`
}

type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
}

type RoleListResponse struct {
	Items []RoleResponse `json:"items"`
}
