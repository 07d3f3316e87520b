package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dim_dashboard_backend/internal/auth/service"
	"dim_dashboard_backend/internal/auth/transport"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	cfg config.SessionConfig
	val *validator.Validator
}

func New(svc *service.Service, cfg config.SessionConfig, val *validator.Validator) *Handler {
	return &Handler{svc: svc, cfg: cfg, val: val}
}

// CreateSession signs in with an ID token and sets the session cookie.
// POST /api/v1/auth/session
func (h *Handler) CreateSession(c *gin.Context) {
	var req transport.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	session, err := h.svc.CreateSession(c.Request.Context(), req.IDToken)
	if httpkit.HandleError(c, err) {
		return
	}

	h.setSessionCookie(c, session.Token, time.Until(session.ExpiresAt))
	httpkit.OK(c, transport.SessionResponse{
		AccessToken: session.Token,
		ExpiresAt:   session.ExpiresAt,
		User:        toMe(session.Principal),
	})
}

// DeleteSession clears the session cookie.
// DELETE /api/v1/auth/session
func (h *Handler) DeleteSession(c *gin.Context) {
	h.setSessionCookie(c, "", -time.Second)
	c.Status(http.StatusNoContent)
}

// Me returns the signed-in user.
// GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	principal, err := h.svc.Me(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toMe(principal))
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, ttl time.Duration) {
	maxAge := int(ttl / time.Second)
	if value == "" {
		maxAge = -1
	}
	c.SetSameSite(h.cfg.GetSessionCookieSameSite())
	c.SetCookie(
		h.cfg.GetSessionCookieName(),
		value,
		maxAge,
		h.cfg.GetSessionCookiePath(),
		h.cfg.GetSessionCookieDomain(),
		h.cfg.GetSessionCookieSecure(),
		true,
	)
}

func toMe(p service.Principal) transport.MeResponse {
	clinicIDs := p.ClinicIDs
	if clinicIDs == nil {
		clinicIDs = []uuid.UUID{}
	}
	return transport.MeResponse{ID: p.ID, Email: p.Email, Name: p.Name, Role: p.Role, ClinicIDs: clinicIDs}
}
