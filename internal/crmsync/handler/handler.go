package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dim_dashboard_backend/internal/crmsync/repository"
	"dim_dashboard_backend/internal/crmsync/service"
	"dim_dashboard_backend/internal/crmsync/transport"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/logger"
)

const (
	msgInvalidRequest  = "invalid request"
	msgInvalidClinicID = "invalid clinic ID"
	msgSweepRunning    = "a sync sweep is already running"
	msgEnqueueFailed   = "failed to enqueue sync"

	backgroundSweepTimeout = 2 * time.Hour
)

// Enqueuer hands sync work to the background worker.
type Enqueuer interface {
	EnqueueSweep(ctx context.Context) error
	EnqueueClinicSync(ctx context.Context, clinicID uuid.UUID) error
}

// RecordCounter reports stored record totals for a clinic.
type RecordCounter interface {
	CountRecords(ctx context.Context, clinicID uuid.UUID) (repository.RecordCounts, error)
}

// Handler handles HTTP requests for CRM sync administration.
type Handler struct {
	sweeper  *service.Sweeper
	records  RecordCounter
	enqueuer Enqueuer
	baseCtx  context.Context
	log      *logger.Logger
}

// New creates a new sync handler. enqueuer may be nil, in which case sweeps
// run in a goroutine of this process that ends when baseCtx is cancelled.
func New(baseCtx context.Context, sweeper *service.Sweeper, records RecordCounter, enqueuer Enqueuer, log *logger.Logger) *Handler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Handler{sweeper: sweeper, records: records, enqueuer: enqueuer, baseCtx: baseCtx, log: log}
}

// RunSweep starts a sweep over every eligible clinic.
// POST /api/v1/admin/sync/run
func (h *Handler) RunSweep(c *gin.Context) {
	if h.enqueuer != nil {
		if err := h.enqueuer.EnqueueSweep(c.Request.Context()); err != nil {
			h.log.Error("enqueue sweep failed", "error", err)
			httpkit.Error(c, http.StatusServiceUnavailable, msgEnqueueFailed, nil)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.RunSweepResponse{Status: "queued"})
		return
	}

	if h.sweeper.Status().Running {
		httpkit.Error(c, http.StatusConflict, msgSweepRunning, nil)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(h.baseCtx, backgroundSweepTimeout)
		defer cancel()
		if _, err := h.sweeper.RunSweep(ctx); err != nil && !errors.Is(err, service.ErrSweepInProgress) {
			h.log.Error("manual sweep failed", "error", err)
		}
	}()
	httpkit.JSON(c, http.StatusAccepted, transport.RunSweepResponse{Status: "started"})
}

// Status reports the sweeper state of this process.
// GET /api/v1/admin/sync/status
func (h *Handler) Status(c *gin.Context) {
	httpkit.OK(c, h.sweeper.Status())
}

// SyncClinic syncs one clinic now, or queues it with ?async=true.
// POST /api/v1/admin/clinics/:id/sync
func (h *Handler) SyncClinic(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClinicID, nil)
		return
	}
	var req transport.SyncClinicRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if req.Async && h.enqueuer != nil {
		if err := h.enqueuer.EnqueueClinicSync(c.Request.Context(), id); err != nil {
			h.log.Error("enqueue clinic sync failed", "clinicId", id, "error", err)
			httpkit.Error(c, http.StatusServiceUnavailable, msgEnqueueFailed, nil)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.ClinicSyncQueuedResponse{Status: "queued", ClinicID: id.String()})
		return
	}

	outcome, err := h.sweeper.SyncOne(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, outcome)
}

// ClinicRecords returns how many opportunities and messages are stored for a clinic.
// GET /api/v1/admin/clinics/:id/records
func (h *Handler) ClinicRecords(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClinicID, nil)
		return
	}

	counts, err := h.records.CountRecords(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RecordCountsResponse{
		ClinicID:      id.String(),
		Opportunities: counts.Opportunities,
		Messages:      counts.Messages,
	})
}
