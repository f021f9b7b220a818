package handler

import (
	"net/http"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/observation"
)

// ObservationHandler exposes the live observation multiplexer: its
// lifecycle and read-only snapshots of the retained history.
type ObservationHandler struct {
	mux *observation.Multiplexer
}

func NewObservationHandler(mux *observation.Multiplexer) *ObservationHandler {
	return &ObservationHandler{mux: mux}
}

// ListObservations handles GET /v1/observations.
func (h *ObservationHandler) ListObservations(w http.ResponseWriter, r *http.Request) {
	out := models.Observations{Observations: []models.ObservationStatus{}}
	for _, dt := range healthdata.AllDataTypes() {
		s := h.status(dt)
		if s.Observing || s.HistorySize > 0 {
			out.Observations = append(out.Observations, s)
		}
	}
	response.JSON(w, r, http.StatusOK, out)
}

// StartObserving handles POST /v1/observations/{dataType}. Restarting an
// active observation replaces it and clears its history. A type the
// platform cannot stream answers 200 with observing false.
func (h *ObservationHandler) StartObserving(w http.ResponseWriter, r *http.Request) {
	dt, ok := dataTypeParam(w, r)
	if !ok {
		return
	}

	handle, err := h.mux.StartObserving(r.Context(), dt)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if handle == nil {
		response.JSON(w, r, http.StatusOK, models.ObservationStatus{DataType: dt})
		return
	}
	go drain(handle)

	response.Created(w, r, "/v1/observations/"+dt.String()+"/history", h.status(dt))
}

// StopObserving handles DELETE /v1/observations/{dataType}.
func (h *ObservationHandler) StopObserving(w http.ResponseWriter, r *http.Request) {
	dt, ok := dataTypeParam(w, r)
	if !ok {
		return
	}
	h.mux.StopObserving(dt)
	response.NoContent(w, r)
}

// GetHistory handles GET /v1/observations/{dataType}/history.
func (h *ObservationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	dt, ok := dataTypeParam(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.History{
		DataType:  dt,
		Observing: h.mux.IsObserving(dt),
		Points:    models.NewDataPoints(h.mux.History(dt)),
	})
}

func (h *ObservationHandler) status(dt healthdata.DataType) models.ObservationStatus {
	s := models.ObservationStatus{
		DataType:    dt,
		Observing:   h.mux.IsObserving(dt),
		HistorySize: len(h.mux.History(dt)),
	}
	if p, ok := h.mux.Latest(dt); ok {
		latest := models.NewDataPoint(p)
		s.Latest = &latest
	}
	return s
}

// drain consumes a handle nobody reads so the multiplexer never blocks on
// it. The HTTP API serves the retained history instead.
func drain(h *observation.Handle) {
	for range h.Updates() {
	}
}
