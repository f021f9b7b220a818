// Package main provides the HealthBridge relay worker. It reads live samples
// from the platform adapter and publishes them to Pub/Sub, one topic per data
// type, for API instances configured with a Pub/Sub observation source.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/config"
	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/platform"
	"github.com/healthbridge/healthbridge/internal/platform/resilience"
	"github.com/healthbridge/healthbridge/internal/platform/simulator"
	"github.com/healthbridge/healthbridge/internal/telemetry"
	"github.com/healthbridge/healthbridge/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const defaultSimulateInterval = 5 * time.Second

func main() {
	const serviceName = "healthbridge-worker"

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
	if cfg.PubSubProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Str("platform", string(cfg.Platform)).
		Msg("starting HealthBridge worker")

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

	sim := simulator.New(simulator.Config{Platform: cfg.Platform, Logger: log})
	service := platform.NewService(platform.Config{
		Adapter:     sim,
		Logger:      log,
		Instruments: tp.Instruments,
		Resilience: resilience.Config{
			Timeout:    cfg.AdapterTimeout,
			MaxRetries: cfg.AdapterMaxRetries,
			Registry:   resilience.NewRegistry(),
		},
	})

	interval := cfg.SimulateInterval
	if interval <= 0 {
		interval = defaultSimulateInterval
	}
	go sim.Run(ctx, interval)

	reads := healthdata.NewPermissionSet()
	for _, dt := range cfg.RelayDataTypes {
		if service.Capability(dt).CanRead {
			reads.Add(healthdata.Permission{DataType: dt, Access: healthdata.AccessRead})
		}
	}
	if _, err := service.RequestPermissions(ctx, reads); err != nil {
		log.Error().Err(err).Msg("failed to request read permissions")
		return
	}

	publisher, err := worker.NewPubSubPublisher(ctx, cfg.PubSubProjectID)
	if err != nil {
		log.Error().Err(err).Msg("failed to create pubsub publisher")
		return
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	relay := worker.NewRelay(worker.RelayConfig{
		DataTypes:   cfg.RelayDataTypes,
		TopicPrefix: cfg.PubSubTopicPrefix,
	}, service, publisher, log)

	// Health endpoint for the container platform.
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": Version,
			"relay":   relay.Stats(),
		})
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if err := relay.Run(ctx); err != nil {
		log.Error().Err(err).Msg("relay failed")
	}

	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
