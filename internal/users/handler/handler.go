package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dim_dashboard_backend/internal/users/service"
	"dim_dashboard_backend/internal/users/transport"
	"dim_dashboard_backend/platform/httpkit"
	"dim_dashboard_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid user ID"
	msgInvalidClinicID  = "invalid clinic ID"
	msgSelfDelete       = "you cannot delete your own account"
)

// Handler handles HTTP requests for user administration.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new users handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves all users.
// GET /api/v1/admin/users
func (h *Handler) List(c *gin.Context) {
	result, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Onboard creates or refreshes a user and sends the welcome mail.
// POST /api/v1/admin/users/onboard
func (h *Handler) Onboard(c *gin.Context) {
	var req transport.OnboardUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Onboard(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, result)
}

// SetClinics replaces a user's clinic assignments.
// PATCH /api/v1/admin/users/clinics
func (h *Handler) SetClinics(c *gin.Context) {
	var req transport.SetUserClinicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SetClinics(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a user.
// DELETE /api/v1/admin/users/:id
func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	if id == identity.UserID() {
		httpkit.Error(c, http.StatusBadRequest, msgSelfDelete, nil)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveClinic unassigns one clinic from a user.
// DELETE /api/v1/admin/users/:id/clinics/:clinicId
func (h *Handler) RemoveClinic(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	clinicID, err := uuid.Parse(c.Param("clinicId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidClinicID, nil)
		return
	}

	if err := h.svc.RemoveClinic(c.Request.Context(), id, clinicID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
