package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateSessionRequest exchanges an identity-provider ID token for a session.
type CreateSessionRequest struct {
	IDToken string `json:"idToken" validate:"required,max=8192"`
}

type MeResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      string      `json:"role"`
	ClinicIDs []uuid.UUID `json:"clinicIds"`
}

type SessionResponse struct {
	AccessToken string     `json:"accessToken"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	User        MeResponse `json:"user"`
}
