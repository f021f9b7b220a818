package handler

import (
	"context"
	"net/http"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/platform"
)

// PlatformHandler serves capability and permission state and forwards
// permission checks and requests to the platform.
type PlatformHandler struct {
	service *platform.Service
}

func NewPlatformHandler(service *platform.Service) *PlatformHandler {
	return &PlatformHandler{service: service}
}

// GetCapabilities handles GET /v1/capabilities.
func (h *PlatformHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.NewCapabilities(h.service.Platform(), h.service.Capability))
}

// GetPermissions handles GET /v1/permissions. It reports what the service
// has seen granted; it does not call the platform.
func (h *PlatformHandler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.NewPermissionState(h.service.Platform(), h.service.GrantedPermissions()))
}

// CheckPermissions handles POST /v1/permissions/check.
func (h *PlatformHandler) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.CheckPermissions)
}

// RequestPermissions handles POST /v1/permissions/request.
func (h *PlatformHandler) RequestPermissions(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.RequestPermissions)
}

func (h *PlatformHandler) resolve(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error),
) {
	var req models.PermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid permission request", errs)
		return
	}

	perms := healthdata.NewPermissionSet(req.Permissions...).Union(h.service.PermissionsFor(req.DataTypes))
	res, err := fn(r.Context(), perms)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewPermissionResult(res))
}
