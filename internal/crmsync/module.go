// Package crmsync provides the clinic CRM synchronization bounded context.
// It pulls opportunities and messages from the CRM for every eligible clinic
// and reconciles them into the local store.
package crmsync

import (
	"context"

	"dim_dashboard_backend/internal/crmsync/client"
	"dim_dashboard_backend/internal/crmsync/handler"
	"dim_dashboard_backend/internal/crmsync/repository"
	"dim_dashboard_backend/internal/crmsync/service"
	apphttp "dim_dashboard_backend/internal/http"
	"dim_dashboard_backend/platform/config"
	"dim_dashboard_backend/platform/logger"
	"dim_dashboard_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the crmsync bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	sweeper *service.Sweeper
}

// Deps groups the collaborators the module does not own.
type Deps struct {
	Clinics  service.ClinicSource
	Locker   service.Locker
	Enqueuer handler.Enqueuer

	// Lifecycle bounds in-process sweeps started over HTTP. Nil means they
	// only stop at their timeout.
	Lifecycle context.Context
}

// NewModule creates and initializes the crmsync module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.SyncConfig, deps Deps, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	crm := client.NewFromConfig(cfg, val, log)
	reconciler := service.NewReconciler(crm, repo, log)
	sweeper := service.NewSweeper(deps.Clinics, reconciler, deps.Locker, service.SweepConfigFrom(cfg), log)

	return &Module{
		handler: handler.New(deps.Lifecycle, sweeper, repo, deps.Enqueuer, log),
		sweeper: sweeper,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "crmsync"
}

// Sweeper returns the sweeper for the scheduler and worker.
func (m *Module) Sweeper() *service.Sweeper {
	return m.sweeper
}

// RegisterRoutes mounts sync administration routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	syncGroup := ctx.Admin.Group("/sync")
	syncGroup.POST("/run", m.handler.RunSweep)
	syncGroup.GET("/status", m.handler.Status)

	ctx.Admin.POST("/clinics/:id/sync", m.handler.SyncClinic)
	ctx.Admin.GET("/clinics/:id/records", m.handler.ClinicRecords)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
