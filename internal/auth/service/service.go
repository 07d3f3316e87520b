// Package service issues and inspects session tokens.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/firebase"
	"dim_dashboard_backend/platform/logger"
)

const accessTokenType = "access"

// Principal is the signed-in user as the session sees it.
type Principal struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Role      string
	ClinicIDs []uuid.UUID
}

// UserDirectory resolves provisioned users. Unknown users yield an apperr NotFound.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (Principal, error)
	FindByID(ctx context.Context, id uuid.UUID) (Principal, error)
}

// TokenVerifier verifies identity-provider ID tokens. Implemented by firebase.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (firebase.VerifiedToken, error)
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal Principal
}

type Service struct {
	verifier TokenVerifier
	users    UserDirectory
	cfg      config.SessionConfig
	log      *logger.Logger
	now      func() time.Time
}

// New creates the session service. verifier may be nil when no identity
// provider is configured; sign-in is then unavailable.
func New(verifier TokenVerifier, users UserDirectory, cfg config.SessionConfig, log *logger.Logger) *Service {
	return &Service{verifier: verifier, users: users, cfg: cfg, log: log, now: time.Now}
}

// CreateSession verifies idToken and issues a session for the matching user.
func (s *Service) CreateSession(ctx context.Context, idToken string) (Session, error) {
	if s.verifier == nil {
		return Session{}, apperr.Unavailable("identity provider is not configured")
	}

	verified, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.log.AuthEvent("session_create", "", false, "invalid_id_token")
		return Session{}, apperr.Unauthorized("invalid id token")
	}
	addr := strings.ToLower(strings.TrimSpace(verified.Email))
	if addr == "" {
		s.log.AuthEvent("session_create", "", false, "missing_email")
		return Session{}, apperr.Unauthorized("id token has no email")
	}

	principal, err := s.users.FindByEmail(ctx, addr)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AuthEvent("session_create", addr, false, "not_provisioned")
			return Session{}, apperr.Forbidden("account is not provisioned")
		}
		return Session{}, err
	}

	expiresAt := s.now().Add(s.cfg.GetSessionTTL())
	token, err := s.signJWT(principal, expiresAt)
	if err != nil {
		return Session{}, err
	}

	s.log.AuthEvent("session_create", addr, true, "")
	return Session{Token: token, ExpiresAt: expiresAt, Principal: principal}, nil
}

// Me returns the current user.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (Principal, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *Service) signJWT(p Principal, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   p.ID.String(),
		"type":  accessTokenType,
		"roles": []string{p.Role},
		"email": p.Email,
		"exp":   expiresAt.Unix(),
		"iat":   s.now().Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
