package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dim_dashboard_backend/internal/analytics/service"
	"dim_dashboard_backend/internal/analytics/transport"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for reports and record listings.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new analytics handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Report generates the KPI report.
// GET /api/v1/reports/kpi?from=YYYY-MM-DD&to=YYYY-MM-DD&clinicIds=[...]
func (h *Handler) Report(c *gin.Context) {
	scope, query, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.svc.Report(c.Request.Context(), scope, query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListOpportunities lists synced opportunities in range.
// GET /api/v1/opportunities
func (h *Handler) ListOpportunities(c *gin.Context) {
	scope, query, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.svc.ListOpportunities(c.Request.Context(), scope, query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMessages lists synced messages in range.
// GET /api/v1/messages
func (h *Handler) ListMessages(c *gin.Context) {
	scope, query, ok := h.bind(c)
	if !ok {
		return
	}

	result, err := h.svc.ListMessages(c.Request.Context(), scope, query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) bind(c *gin.Context) (service.Scope, service.Query, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return service.Scope{}, service.Query{}, false
	}

	var req transport.RangeQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return service.Scope{}, service.Query{}, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return service.Scope{}, service.Query{}, false
	}

	query, err := service.ParseQuery(req)
	if httpkit.HandleError(c, err) {
		return service.Scope{}, service.Query{}, false
	}
	return service.Scope{UserID: identity.UserID(), Admin: identity.IsAdmin()}, query, true
}
