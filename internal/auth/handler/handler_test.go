package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dim_dashboard_backend/internal/auth/service"
	"dim_dashboard_backend/internal/auth/transport"
	"dim_dashboard_backend/platform/apperr"
	"dim_dashboard_backend/platform/firebase"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"
)

const cookieName = "dim_session"

type testSessionConfig struct{}

func (testSessionConfig) GetJWTAccessSecret() string              { return "test-secret" }
func (testSessionConfig) GetSessionCookieName() string            { return cookieName }
func (testSessionConfig) GetSessionTTL() time.Duration            { return time.Hour }
func (testSessionConfig) GetSessionCookieDomain() string          { return "" }
func (testSessionConfig) GetSessionCookiePath() string            { return "/" }
func (testSessionConfig) GetSessionCookieSecure() bool            { return false }
func (testSessionConfig) GetSessionCookieSameSite() http.SameSite { return http.SameSiteLaxMode }

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (firebase.VerifiedToken, error) {
	addr, ok := s[idToken]
	if !ok {
		return firebase.VerifiedToken{}, errors.New("token expired")
	}
	return firebase.VerifiedToken{UID: "uid-" + idToken, Email: addr}, nil
}

type directory map[string]service.Principal

func (d directory) FindByEmail(_ context.Context, addr string) (service.Principal, error) {
	if p, ok := d[addr]; ok {
		return p, nil
	}
	return service.Principal{}, apperr.NotFound("user not found")
}

func (d directory) FindByID(_ context.Context, id uuid.UUID) (service.Principal, error) {
	for _, p := range d {
		if p.ID == id {
			return p, nil
		}
	}
	return service.Principal{}, apperr.NotFound("user not found")
}

func newEngine(users directory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := testSessionConfig{}
	svc := service.New(stubVerifier{"good": "Ana@Example.com", "stranger": "who@example.com"}, users, cfg, logger.New("test"))
	h := New(svc, cfg, validator.New())

	r := gin.New()
	r.POST("/auth/session", h.CreateSession)
	r.DELETE("/auth/session", h.DeleteSession)
	r.GET("/auth/me", httpkit.AuthRequired(cfg), h.Me)
	r.GET("/admin/ping", httpkit.AuthRequired(cfg), httpkit.RequireRole(httpkit.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func postSession(r *gin.Engine, idToken string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(transport.CreateSessionRequest{IDToken: idToken})
	req := httptest.NewRequest(http.MethodPost, "/auth/session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func TestSessionCookieAuthenticatesMe(t *testing.T) {
	user := service.Principal{ID: uuid.New(), Email: "ana@example.com", Role: "user", ClinicIDs: []uuid.UUID{uuid.New()}}
	r := newEngine(directory{user.Email: user})

	rec := postSession(r, "good")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" || !cookie.HttpOnly {
		t.Fatalf("expected an http-only session cookie, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	r.ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d", meRec.Code)
	}

	var me transport.MeResponse
	if err := json.Unmarshal(meRec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != user.ID || len(me.ClinicIDs) != 1 {
		t.Fatalf("unexpected me %+v", me)
	}

	adminReq := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	adminReq.Header.Set("Authorization", "Bearer "+cookie.Value)
	adminRec := httptest.NewRecorder()
	r.ServeHTTP(adminRec, adminReq)
	if adminRec.Code != http.StatusForbidden {
		t.Fatalf("expected non-admin to be forbidden, got %d", adminRec.Code)
	}
}

func TestCreateSessionRejections(t *testing.T) {
	r := newEngine(directory{})

	if rec := postSession(r, "forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}
	if rec := postSession(r, "stranger"); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unprovisioned user, got %d", rec.Code)
	}
	if rec := postSession(r, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty token, got %d", rec.Code)
	}
}

func TestDeleteSessionExpiresCookie(t *testing.T) {
	r := newEngine(directory{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/auth/session", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", cookie)
	}
}

func TestMeWithoutSession(t *testing.T) {
	r := newEngine(directory{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
