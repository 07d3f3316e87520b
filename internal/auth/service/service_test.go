package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/firebase"
	"dim_dashboard_backend/platform/logger"
)

const fmtUnexpectedErr = "unexpected error: %v"

type sessionConfig struct{}

func (sessionConfig) GetJWTAccessSecret() string              { return "secret" }
func (sessionConfig) GetSessionCookieName() string            { return "session" }
func (sessionConfig) GetSessionTTL() time.Duration            { return 2 * time.Hour }
func (sessionConfig) GetSessionCookieDomain() string          { return "" }
func (sessionConfig) GetSessionCookiePath() string            { return "/" }
func (sessionConfig) GetSessionCookieSecure() bool            { return true }
func (sessionConfig) GetSessionCookieSameSite() http.SameSite { return http.SameSiteStrictMode }

type verifierFunc func(idToken string) (firebase.VerifiedToken, error)

func (f verifierFunc) VerifyIDToken(_ context.Context, idToken string) (firebase.VerifiedToken, error) {
	return f(idToken)
}

type staticUsers struct {
	principal Principal
	err       error
	asked     string
}

func (s *staticUsers) FindByEmail(_ context.Context, addr string) (Principal, error) {
	s.asked = addr
	return s.principal, s.err
}

func (s *staticUsers) FindByID(context.Context, uuid.UUID) (Principal, error) {
	return s.principal, s.err
}

func acceptAll(email string) verifierFunc {
	return func(string) (firebase.VerifiedToken, error) {
		return firebase.VerifiedToken{UID: "uid", Email: email}, nil
	}
}

func TestCreateSessionSignsRoleClaims(t *testing.T) {
	principal := Principal{ID: uuid.New(), Email: "admin@example.com", Role: "admin"}
	users := &staticUsers{principal: principal}
	svc := New(acceptAll("  Admin@Example.COM "), users, sessionConfig{}, logger.New("test"))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	session, err := svc.CreateSession(context.Background(), "token")
	if err != nil {
		t.Fatalf(fmtUnexpectedErr, err)
	}
	if users.asked != "admin@example.com" {
		t.Fatalf("expected normalized lookup email, got %q", users.asked)
	}
	if !session.ExpiresAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", session.ExpiresAt)
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(session.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims["sub"] != principal.ID.String() || claims["type"] != accessTokenType {
		t.Fatalf("unexpected subject claims %v", claims)
	}
	roles, ok := claims["roles"].([]interface{})
	if !ok || len(roles) != 1 || roles[0] != "admin" {
		t.Fatalf("expected roles [admin], got %v", claims["roles"])
	}
}

func TestCreateSessionFailures(t *testing.T) {
	ctx := context.Background()
	log := logger.New("test")

	unconfigured := New(nil, &staticUsers{}, sessionConfig{}, log)
	if _, err := unconfigured.CreateSession(ctx, "t"); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable without a verifier, got %v", err)
	}

	rejecting := New(verifierFunc(func(string) (firebase.VerifiedToken, error) {
		return firebase.VerifiedToken{}, errors.New("expired")
	}), &staticUsers{}, sessionConfig{}, log)
	if _, err := rejecting.CreateSession(ctx, "t"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for a bad token, got %v", err)
	}

	noEmail := New(acceptAll(""), &staticUsers{}, sessionConfig{}, log)
	if _, err := noEmail.CreateSession(ctx, "t"); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized without an email, got %v", err)
	}

	unknown := New(acceptAll("x@example.com"), &staticUsers{err: apperr.NotFound("user not found")}, sessionConfig{}, log)
	if _, err := unknown.CreateSession(ctx, "t"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for an unprovisioned user, got %v", err)
	}
}
