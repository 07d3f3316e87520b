// Package clinics provides the clinic administration bounded context.
// Clinics carry the CRM credentials, timezone and funnel stage mapping
// consumed by the sync and the KPI reports.
package clinics

import (
	"dim_dashboard_backend/internal/clinics/handler"
	"dim_dashboard_backend/internal/clinics/repository"
	"dim_dashboard_backend/internal/clinics/service"
	apphttp "dim_dashboard_backend/internal/http"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clinics bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the clinics module with all its dependencies.
func NewModule(pool *pgxpool.Pool, assigned handler.AssignedClinics, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc, assigned, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clinics"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for adapters in other modules.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts clinic routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/clinics", m.handler.ListMine)

	adminGroup := ctx.Admin.Group("/clinics")
	adminGroup.GET("", m.handler.List)
	adminGroup.POST("", m.handler.Create)
	adminGroup.GET("/:id", m.handler.GetByID)
	adminGroup.PUT("/:id", m.handler.Update)
	adminGroup.DELETE("/:id", m.handler.Delete)
	adminGroup.PATCH("/:id/selected", m.handler.SetSelected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
