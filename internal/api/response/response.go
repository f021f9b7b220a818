// Package response writes JSON and problem responses.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/api/middleware"
	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/platform"
	"github.com/healthbridge/healthbridge/internal/platform/resilience"
	"github.com/healthbridge/healthbridge/internal/workout"
)

// JSON writes data with status. A nil data writes no body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	setRequestID(w, r)
	if data == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Created writes a 201 with a Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusNoContent, nil)
}

// Error writes problem, filling in the instance.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(traceID(r), detail))
}

// FromError maps a domain error to its problem response:
//
//	CapabilityMismatchError  422
//	PermissionDeniedError    403
//	InvalidTransitionError   409
//	SessionStartError        409 when a session is active, else by cause
//	ValidationError          400
//	ErrCircuitOpen           503
//	AdapterError and
//	SessionOperationError    502
//
// Anything else is a 500. No 5xx detail carries the error text; the cause
// is logged with the request logger instead.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	problem := problemFor(traceID(r), err)
	if problem.Status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("request_id", traceID(r)).
			Int("status", problem.Status).
			Msg("request failed")
	}
	Error(w, r, problem)
}

func problemFor(id string, err error) *models.Problem {
	var (
		mismatch   *platform.CapabilityMismatchError
		denied     *platform.PermissionDeniedError
		transition *workout.InvalidTransitionError
		startErr   *workout.SessionStartError
		invalid    *healthdata.ValidationError
		adapterErr *platform.AdapterError
		opErr      *workout.SessionOperationError
	)

	switch {
	case errors.As(err, &mismatch):
		return models.NewCapabilityMismatch(id, mismatch.Error())
	case errors.As(err, &denied):
		return models.NewPermissionDenied(id, denied.Error())
	case errors.As(err, &transition):
		return models.NewInvalidTransition(id, transition.Error())
	case errors.Is(err, workout.ErrSessionActive):
		return models.NewConflict(id, err.Error())
	case errors.As(err, &invalid):
		return models.NewBadRequest(id, invalid.Error(), []models.FieldError{{Field: invalid.Field, Message: invalid.Message, Code: "INVALID"}})
	case errors.As(err, &startErr) && !startErr.Type.IsValid():
		return models.NewBadRequest(id, startErr.Error(), []models.FieldError{{Field: "type", Message: "unknown workout type", Code: "UNKNOWN"}})
	case errors.Is(err, resilience.ErrCircuitOpen):
		return models.NewServiceUnavailable(id, "the health platform is temporarily unavailable")
	case errors.As(err, &adapterErr):
		return models.NewBadGateway(id, adapterDetail(adapterErr))
	case errors.As(err, &opErr):
		return models.NewBadGateway(id, fmt.Sprintf("%s workout %s failed", opErr.Operation, opErr.SessionID))
	case errors.As(err, &startErr):
		return models.NewBadGateway(id, fmt.Sprintf("start %s workout failed", startErr.Type))
	default:
		return models.NewInternalError(id, "an unexpected error occurred")
	}
}

func adapterDetail(e *platform.AdapterError) string {
	if e.DataType != "" {
		return fmt.Sprintf("%s %s on %s failed", e.Operation, e.DataType, e.Platform)
	}
	return fmt.Sprintf("%s on %s failed", e.Operation, e.Platform)
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if id := traceID(r); id != "" {
		w.Header().Set(middleware.RequestIDHeader, id)
	}
}
