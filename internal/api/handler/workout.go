package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/workout"
)

// WorkoutHandler drives the workout tracker and serves finished sessions.
type WorkoutHandler struct {
	tracker *workout.Tracker
	store   workout.Store
	logger  zerolog.Logger
}

func NewWorkoutHandler(tracker *workout.Tracker, store workout.Store, logger zerolog.Logger) *WorkoutHandler {
	return &WorkoutHandler{
		tracker: tracker,
		store:   store,
		logger:  logger.With().Str("component", "workout_handler").Logger(),
	}
}

// GetCurrent handles GET /v1/workouts/current.
func (h *WorkoutHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.tracker.Current(), nil)
}

// StartWorkout handles POST /v1/workouts.
func (h *WorkoutHandler) StartWorkout(w http.ResponseWriter, r *http.Request) {
	var req models.StartWorkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" {
		response.BadRequest(w, r, "type is required", []models.FieldError{{Field: "type", Message: "required", Code: "REQUIRED"}})
		return
	}

	s, err := h.tracker.Start(r.Context(), req.Type)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/workouts/current", models.NewWorkout(*s))
}

// PauseWorkout handles POST /v1/workouts/current/pause.
func (h *WorkoutHandler) PauseWorkout(w http.ResponseWriter, r *http.Request) {
	s, err := h.tracker.Pause(r.Context())
	h.respond(w, r, s, err)
}

// ResumeWorkout handles POST /v1/workouts/current/resume.
func (h *WorkoutHandler) ResumeWorkout(w http.ResponseWriter, r *http.Request) {
	s, err := h.tracker.Resume(r.Context())
	h.respond(w, r, s, err)
}

// EndWorkout handles POST /v1/workouts/current/end. A session that ended at
// the platform but could not be saved is reported as a 500 naming the
// session.
func (h *WorkoutHandler) EndWorkout(w http.ResponseWriter, r *http.Request) {
	s, err := h.tracker.End(r.Context())
	if err != nil && s != nil {
		h.logger.Error().Err(err).Str("session_id", s.ID).Msg("workout ended but was not saved")
		response.InternalError(w, r, "workout "+s.ID+" ended but could not be saved")
		return
	}
	h.respond(w, r, s, err)
}

// GetWorkout handles GET /v1/workouts/{sessionId} for finished sessions.
func (h *WorkoutHandler) GetWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")

	s, err := h.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, workout.ErrSessionNotFound):
		response.NotFound(w, r, "workout "+id+" not found")
	case err != nil:
		h.logger.Error().Err(err).Str("session_id", id).Msg("failed to load workout")
		response.FromError(w, r, err)
	default:
		response.JSON(w, r, http.StatusOK, models.NewWorkout(*s))
	}
}

// respond writes s, or 404 when there is no active session.
func (h *WorkoutHandler) respond(w http.ResponseWriter, r *http.Request, s *workout.Session, err error) {
	switch {
	case err != nil:
		response.FromError(w, r, err)
	case s == nil:
		response.NotFound(w, r, "no active workout")
	default:
		response.JSON(w, r, http.StatusOK, models.NewWorkout(*s))
	}
}
