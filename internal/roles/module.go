// Package roles provides role administration.
package roles

import (
	apphttp "dim_dashboard_backend/internal/http"
	"dim_dashboard_backend/internal/roles/handler"
	"dim_dashboard_backend/internal/roles/repository"
	"dim_dashboard_backend/internal/roles/service"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the roles bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the roles module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "roles"
}

// RegisterRoutes mounts role administration routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	rolesGroup := ctx.Admin.Group("/roles")
	rolesGroup.GET("", m.handler.List)
	rolesGroup.PUT("", m.handler.Upsert)
	rolesGroup.DELETE("/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
