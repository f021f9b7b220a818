package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// GetLatest handles GET /v1/samples/{dataType}/latest.
func (h *PlatformHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	dt, ok := dataTypeParam(w, r)
	if !ok {
		return
	}

	p, err := h.service.ReadLatest(r.Context(), dt)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if p == nil {
		response.NotFound(w, r, "no "+dt.String()+" sample available")
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewDataPoint(p))
}

// WriteSample handles POST /v1/samples. The body is a tagged data point:
//
//	{"type":"weight","point":{...}}
func (h *PlatformHandler) WriteSample(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	p, err := healthdata.UnmarshalPoint(body)
	if err != nil {
		var invalid *healthdata.ValidationError
		if errors.As(err, &invalid) {
			response.FromError(w, r, err)
		} else {
			response.BadRequest(w, r, "invalid data point: "+err.Error(), nil)
		}
		return
	}

	if err := h.service.Write(r.Context(), p); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusAccepted, models.NewDataPoint(p))
}

// GetDashboard handles GET /v1/dashboard?types=heart_rate,steps. Without
// types it loads every readable type.
func (h *PlatformHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var types []healthdata.DataType
	if raw := r.URL.Query().Get("types"); raw != "" {
		var errs []models.FieldError
		for _, name := range strings.Split(raw, ",") {
			dt, err := healthdata.ParseDataType(name)
			if err != nil {
				errs = append(errs, models.FieldError{Field: "types", Message: "unknown data type " + name, Code: "UNKNOWN"})
				continue
			}
			types = append(types, dt)
		}
		if len(errs) > 0 {
			response.BadRequest(w, r, "invalid types parameter", errs)
			return
		}
	} else {
		for _, dt := range healthdata.AllDataTypes() {
			if h.service.Capability(dt).CanRead {
				types = append(types, dt)
			}
		}
	}

	d := h.service.LoadDashboard(r.Context(), types)
	response.JSON(w, r, http.StatusOK, models.NewDashboard(d.Platform, types, d.Points, d.LoadedAt, d.Duration))
}
