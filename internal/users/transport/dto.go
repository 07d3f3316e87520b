package transport

import (
	"time"

	"github.com/google/uuid"
)

// OnboardUserRequest creates a dashboard account and sends the welcome mail.
type OnboardUserRequest struct {
	Email     string      `json:"email" validate:"required,email,max=254"`
	Name      string      `json:"name" validate:"omitempty,max=200"`
	Role      string      `json:"role" validate:"omitempty,max=50"`
	ClinicIDs []uuid.UUID `json:"clinicIds"`
}

// SetUserClinicsRequest replaces a user's clinic assignments.
type SetUserClinicsRequest struct {
	UserID    uuid.UUID   `json:"userId" validate:"required"`
	ClinicIDs []uuid.UUID `json:"clinicIds" validate:"required"`
}

type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      string      `json:"role"`
	ClinicIDs []uuid.UUID `json:"clinicIds"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Total int            `json:"total"`
}

type OnboardUserResponse struct {
	User        UserResponse `json:"user"`
	Created     bool         `json:"created"`
	WelcomeSent bool         `json:"welcomeSent"`
}
