// Package api provides the healthbridge snapshot API: read-only views of
// capability, permission, observation and workout state, plus the lifecycle
// calls that change them.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/api/handler"
	"github.com/healthbridge/healthbridge/internal/api/middleware"
	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/auth"
	"github.com/healthbridge/healthbridge/internal/observation"
	"github.com/healthbridge/healthbridge/internal/platform"
	"github.com/healthbridge/healthbridge/internal/platform/resilience"
	"github.com/healthbridge/healthbridge/internal/workout"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics

	// Tokens validates bearer tokens. When nil the API is served without
	// authentication, which is only meant for local development.
	Tokens     middleware.TokenValidator
	RequireTLS bool

	Platform     *platform.Service
	Observations *observation.Multiplexer
	Tracker      *workout.Tracker
	Workouts     workout.Store
	Breakers     *resilience.Registry
	Subsystems   map[string]handler.Pinger
}

// NewRouter creates the chi router with every route configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "healthbridge-api"
	}

	r := chi.NewRouter()

	// Order matters: the request ID must exist before anything logs.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewMethodNotAllowed(middleware.GetRequestID(r.Context()), r.Method+" is not supported on "+r.URL.Path))
	})

	ops := handler.NewOpsHandler(handler.OpsConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Breakers:   cfg.Breakers,
		Subsystems: cfg.Subsystems,
	})
	platformHandler := handler.NewPlatformHandler(cfg.Platform)
	observations := handler.NewObservationHandler(cfg.Observations)
	workouts := handler.NewWorkoutHandler(cfg.Tracker, cfg.Workouts, cfg.Logger)

	authenticate := passthrough
	read, control := passthrough, passthrough
	if cfg.Tokens != nil {
		authenticate = middleware.Auth(cfg.Tokens)
		read = middleware.RequireScope(auth.ScopeRead)
		control = middleware.RequireScope(auth.ScopeControl)
	}

	readLimit := middleware.RateLimitBySubject(middleware.ReadRateLimit)
	controlLimit := middleware.RateLimitBySubject(middleware.ControlRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.ReadRateLimit))
			r.Get("/health", ops.HealthCheck)
			r.Get("/ready", ops.ReadinessCheck)
			r.With(authenticate, read).Get("/status", ops.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			// Snapshots.
			r.Group(func(r chi.Router) {
				r.Use(read, readLimit)
				r.Get("/capabilities", platformHandler.GetCapabilities)
				r.Get("/permissions", platformHandler.GetPermissions)
				r.Get("/dashboard", platformHandler.GetDashboard)
				r.Get("/samples/{dataType}/latest", platformHandler.GetLatest)
				r.Get("/observations", observations.ListObservations)
				r.Get("/observations/{dataType}/history", observations.GetHistory)
				r.Get("/workouts/current", workouts.GetCurrent)
				r.Get("/workouts/{sessionId}", workouts.GetWorkout)
			})

			// Calls that reach the platform adapter or change live state.
			r.Group(func(r chi.Router) {
				r.Use(control, controlLimit, middleware.RequireJSON)
				r.Post("/permissions/check", platformHandler.CheckPermissions)
				r.Post("/permissions/request", platformHandler.RequestPermissions)
				r.Post("/samples", platformHandler.WriteSample)
				r.Post("/observations/{dataType}", observations.StartObserving)
				r.Delete("/observations/{dataType}", observations.StopObserving)
				r.Post("/workouts", workouts.StartWorkout)
				r.Post("/workouts/current/pause", workouts.PauseWorkout)
				r.Post("/workouts/current/resume", workouts.ResumeWorkout)
				r.Post("/workouts/current/end", workouts.EndWorkout)
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
