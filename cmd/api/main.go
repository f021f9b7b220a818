// Package main provides the entrypoint for the HealthBridge snapshot API
// server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/api"
	"github.com/healthbridge/healthbridge/internal/api/handler"
	"github.com/healthbridge/healthbridge/internal/api/middleware"
	"github.com/healthbridge/healthbridge/internal/auth"
	"github.com/healthbridge/healthbridge/internal/config"
	"github.com/healthbridge/healthbridge/internal/database"
	"github.com/healthbridge/healthbridge/internal/observation"
	"github.com/healthbridge/healthbridge/internal/platform"
	"github.com/healthbridge/healthbridge/internal/platform/resilience"
	"github.com/healthbridge/healthbridge/internal/platform/simulator"
	"github.com/healthbridge/healthbridge/internal/telemetry"
	"github.com/healthbridge/healthbridge/internal/workout"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "healthbridge-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Str("platform", string(cfg.Platform)).
		Msg("starting HealthBridge API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		return
	}

	// Platform adapter behind capability, permission and breaker gates.
	breakers := resilience.NewRegistry()
	sim := simulator.New(simulator.Config{Platform: cfg.Platform, Logger: log})
	service := platform.NewService(platform.Config{
		Adapter:     sim,
		Logger:      log,
		Instruments: tp.Instruments,
		Resilience: resilience.Config{
			Timeout:    cfg.AdapterTimeout,
			MaxRetries: cfg.AdapterMaxRetries,
			Registry:   breakers,
		},
	})
	if cfg.SimulateInterval > 0 {
		go sim.Run(ctx, cfg.SimulateInterval)
		log.Info().Dur("interval", cfg.SimulateInterval).Msg("synthetic samples enabled")
	}

	// Live observations come from the platform unless a Pub/Sub bridge is
	// configured.
	var source observation.Source = service
	if cfg.PubSubProjectID != "" {
		ps, psErr := observation.NewPubSubSource(ctx, observation.PubSubConfig{
			ProjectID:          cfg.PubSubProjectID,
			SubscriptionPrefix: cfg.PubSubSubscriptionPrefix,
			Logger:             log,
		})
		if psErr != nil {
			log.Error().Err(psErr).Msg("failed to create pubsub source")
			return
		}
		defer func() {
			if closeErr := ps.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()
		source = ps
		log.Info().
			Str("project", cfg.PubSubProjectID).
			Str("prefix", cfg.PubSubSubscriptionPrefix).
			Msg("observing live updates from pubsub")
	}

	observations := observation.NewMultiplexer(observation.Config{
		Source:      source,
		Logger:      log,
		Instruments: tp.Instruments,
		HistorySize: cfg.HistorySize,
	})
	defer observations.StopAll()

	subsystems := map[string]handler.Pinger{}
	var store workout.Store = workout.NewInMemoryStore()
	if cfg.DBEnabled {
		pool, dbErr := database.Connect(ctx, cfg.Database)
		if dbErr != nil {
			log.Error().Err(dbErr).Msg("failed to connect to database")
			return
		}
		defer pool.Close()

		pg := workout.NewPostgresStore(pool)
		if dbErr := pg.EnsureSchema(ctx); dbErr != nil {
			log.Error().Err(dbErr).Msg("failed to create workout schema")
			return
		}
		store = pg
		subsystems["database"] = pool
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		log.Warn().Msg("database disabled, finished workouts are kept in memory")
	}

	tracker := workout.NewTracker(workout.Config{
		Adapter:     service,
		Store:       store,
		Logger:      log,
		Instruments: tp.Instruments,
	})
	defer tracker.Close()

	var tokens middleware.TokenValidator
	if cfg.JWTSigningKey != "" {
		tokens = auth.NewTokenService(auth.Config{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		})
	} else {
		log.Warn().Msg("JWT_SIGNING_KEY not set, API is served without authentication")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		ServiceName:  serviceName,
		Logger:       log,
		Metrics:      metrics,
		Tokens:       tokens,
		RequireTLS:   cfg.RequireTLS,
		Platform:     service,
		Observations: observations,
		Tracker:      tracker,
		Workouts:     store,
		Breakers:     breakers,
		Subsystems:   subsystems,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			return
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}
