package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dim_dashboard_backend/internal/clinics/service"
	"dim_dashboard_backend/internal/clinics/transport"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid clinic ID"
)

// AssignedClinics lists the clinics a non-admin user may see.
type AssignedClinics interface {
	AssignedClinicIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Handler handles HTTP requests for clinics.
type Handler struct {
	svc      *service.Service
	assigned AssignedClinics
	val      *validator.Validator
}

// New creates a new clinics handler.
func New(svc *service.Service, assigned AssignedClinics, val *validator.Validator) *Handler {
	return &Handler{svc: svc, assigned: assigned, val: val}
}

// ListMine retrieves the clinics visible to the caller: every clinic for
// admins, the assigned ones otherwise.
// GET /api/v1/clinics
func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if identity.IsAdmin() {
		result, err := h.svc.List(c.Request.Context(), transport.ListClinicsRequest{})
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
		return
	}

	ids, err := h.assigned.AssignedClinicIDs(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	result, err := h.svc.ListByIDs(c.Request.Context(), ids)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List retrieves all clinics (admin only).
// GET /api/v1/admin/clinics
func (h *Handler) List(c *gin.Context) {
	var req transport.ListClinicsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves a clinic by ID.
// GET /api/v1/admin/clinics/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create creates a new clinic.
// POST /api/v1/admin/clinics
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update updates an existing clinic.
// PUT /api/v1/admin/clinics/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.UpdateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a clinic.
// DELETE /api/v1/admin/clinics/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// SetSelected toggles sync participation.
// PATCH /api/v1/admin/clinics/:id/selected
func (h *Handler) SetSelected(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.SetSelectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.svc.SetSelected(c.Request.Context(), id, *req.Selected); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "selected": *req.Selected})
}
