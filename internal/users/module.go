// Package users provides the user administration bounded context: onboarding
// through the identity provider, clinic assignments and removal.
package users

import (
	"dim_dashboard_backend/internal/email"
	apphttp "dim_dashboard_backend/internal/http"
	"dim_dashboard_backend/internal/users/handler"
	"dim_dashboard_backend/internal/users/repository"
	"dim_dashboard_backend/internal/users/service"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the users bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the users module with all its dependencies.
// Pass a nil accounts interface when no identity provider is configured.
func NewModule(pool *pgxpool.Pool, cfg config.OnboardingConfig, accounts service.Accounts, mail email.Sender, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, accounts, mail, cfg.GetAppBaseURL(), log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "users"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for adapters in other modules.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts user administration routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	usersGroup := ctx.Admin.Group("/users")
	usersGroup.GET("", m.handler.List)
	usersGroup.POST("/onboard", m.handler.Onboard)
	usersGroup.PATCH("/clinics", m.handler.SetClinics)
	usersGroup.DELETE("/:id", m.handler.Delete)
	usersGroup.DELETE("/:id/clinics/:clinicId", m.handler.RemoveClinic)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
