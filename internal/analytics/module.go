// Package analytics provides the reporting bounded context: KPI reports and
// raw opportunity and message listings over per-clinic local-day ranges.
package analytics

import (
	"dim_dashboard_backend/internal/analytics/handler"
	"dim_dashboard_backend/internal/analytics/repository"
	"dim_dashboard_backend/internal/analytics/service"
	apphttp "dim_dashboard_backend/internal/http"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the analytics bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the analytics module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.ReportConfig, assigned service.AssignedClinics, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, assigned, cfg.GetReportTimezone(), log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "analytics"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts report and listing routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/reports/kpi", m.handler.Report)
	ctx.Protected.GET("/opportunities", m.handler.ListOpportunities)
	ctx.Protected.GET("/messages", m.handler.ListMessages)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
