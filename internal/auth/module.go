// Package auth provides the session authentication bounded context: ID tokens
// from the identity provider are exchanged for signed session cookies.
package auth

import (
	"dim_dashboard_backend/internal/auth/handler"
	"dim_dashboard_backend/internal/auth/service"
	apphttp "dim_dashboard_backend/internal/http"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module with all its dependencies.
// Pass a nil verifier when no identity provider is configured.
func NewModule(cfg config.SessionConfig, verifier service.TokenVerifier, users service.UserDirectory, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(verifier, users, cfg, log)

	return &Module{
		handler: handler.New(svc, cfg, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public session routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.POST("/session", ctx.AuthRateLimiter.RateLimit(), m.handler.CreateSession)
	authGroup.DELETE("/session", m.handler.DeleteSession)

	ctx.Protected.GET("/auth/me", m.handler.Me)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
