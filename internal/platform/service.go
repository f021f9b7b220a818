package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/platform/resilience"
	"github.com/healthbridge/healthbridge/internal/telemetry"
)

// Config holds configuration for a Service.
type Config struct {
	Adapter     Adapter
	Logger      zerolog.Logger
	Instruments *telemetry.Instruments

	// Resilience configures the breaker and retries around the adapter.
	// Name defaults to the adapter platform.
	Resilience resilience.Config

	// DashboardConcurrency bounds parallel reads in LoadDashboard.
	// Default: 4
	DashboardConcurrency int
}

// Service gates adapter calls on capability and permission and runs them
// through a circuit breaker. It satisfies observation.Source and
// workout.Adapter.
type Service struct {
	adapter     Adapter
	platform    healthdata.Platform
	exec        *resilience.Executor
	logger      zerolog.Logger
	instruments *telemetry.Instruments
	concurrency int

	mu      sync.RWMutex
	granted healthdata.PermissionSet
}

// NewService creates a Service over cfg.Adapter.
func NewService(cfg Config) *Service {
	platform := cfg.Adapter.Platform()
	if cfg.Resilience.Name == "" {
		cfg.Resilience.Name = string(platform)
	}
	if cfg.DashboardConcurrency <= 0 {
		cfg.DashboardConcurrency = 4
	}

	return &Service{
		adapter:     cfg.Adapter,
		platform:    platform,
		exec:        resilience.NewExecutor(cfg.Resilience),
		logger:      cfg.Logger.With().Str("component", "platform").Str("platform", string(platform)).Logger(),
		instruments: cfg.Instruments,
		concurrency: cfg.DashboardConcurrency,
		granted:     healthdata.NewPermissionSet(),
	}
}

// Platform returns the adapter platform.
func (s *Service) Platform() healthdata.Platform {
	return s.platform
}

// Capability returns the capability of dataType on this platform.
func (s *Service) Capability(dataType healthdata.DataType) healthdata.Capability {
	return healthdata.CapabilitiesFor(dataType, s.platform)
}

// Capabilities returns the full capability matrix for this platform.
func (s *Service) Capabilities() map[healthdata.DataType]healthdata.Capability {
	return healthdata.CapabilityTable(s.platform)
}

// PermissionsFor expands dataTypes into the permissions this platform can
// grant.
func (s *Service) PermissionsFor(dataTypes []healthdata.DataType) healthdata.PermissionSet {
	return healthdata.PermissionsFor(dataTypes, s.platform)
}

// GrantedPermissions returns the permissions last known to be granted.
func (s *Service) GrantedPermissions() healthdata.PermissionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted.Union(nil)
}

// CheckPermissions asks the adapter which of perms are granted.
func (s *Service) CheckPermissions(ctx context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error) {
	return s.permissions(ctx, "check_permissions", perms, true, s.adapter.CheckPermissions)
}

// RequestPermissions asks the user, through the adapter, to grant perms.
func (s *Service) RequestPermissions(ctx context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error) {
	return s.permissions(ctx, "request_permissions", perms, false, s.adapter.RequestPermissions)
}

func (s *Service) permissions(
	ctx context.Context,
	op string,
	perms healthdata.PermissionSet,
	retry bool,
	fn func(context.Context, healthdata.PermissionSet) (healthdata.PermissionResult, error),
) (healthdata.PermissionResult, error) {
	if perms.Len() == 0 {
		return healthdata.PermissionResult{Granted: healthdata.NewPermissionSet(), Denied: healthdata.NewPermissionSet()}, nil
	}

	res, err := call(ctx, s, op, "", retry, func(ctx context.Context) (healthdata.PermissionResult, error) {
		return fn(ctx, perms)
	})
	if err != nil {
		return healthdata.PermissionResult{}, err
	}
	if err := res.Validate(perms); err != nil {
		return healthdata.PermissionResult{}, &AdapterError{Operation: op, Platform: s.platform, Cause: err}
	}

	s.mu.Lock()
	for p := range res.Granted {
		s.granted.Add(p)
	}
	for p := range res.Denied {
		delete(s.granted, p)
	}
	s.mu.Unlock()

	s.logger.Debug().
		Str("operation", op).
		Int("granted", res.Granted.Len()).
		Int("denied", res.Denied.Len()).
		Msg("permissions resolved")
	return res, nil
}

// ReadLatest returns the most recent sample of dataType. It returns nil and
// no error when the platform cannot read dataType or holds no sample.
func (s *Service) ReadLatest(ctx context.Context, dataType healthdata.DataType) (healthdata.HealthDataPoint, error) {
	if !s.Capability(dataType).CanRead {
		return nil, nil
	}
	if err := s.ensureGranted(ctx, healthdata.Permission{DataType: dataType, Access: healthdata.AccessRead}); err != nil {
		return nil, err
	}

	p, err := call(ctx, s, "read_latest", dataType, true, func(ctx context.Context) (healthdata.HealthDataPoint, error) {
		return s.adapter.ReadLatest(ctx, dataType)
	})
	if err != nil || p == nil {
		return nil, err
	}
	if p.DataType() != dataType {
		return nil, &AdapterError{
			Operation: "read_latest",
			Platform:  s.platform,
			DataType:  dataType,
			Cause:     fmt.Errorf("adapter returned a %s point", p.DataType()),
		}
	}
	return p, nil
}

// Write validates p and stores it through the adapter.
func (s *Service) Write(ctx context.Context, p healthdata.HealthDataPoint) error {
	if err := p.Validate(); err != nil {
		return err
	}
	dataType := p.DataType()
	if !s.Capability(dataType).CanWrite {
		return &CapabilityMismatchError{DataType: dataType, Platform: s.platform, Access: healthdata.AccessWrite}
	}
	if err := s.ensureGranted(ctx, healthdata.Permission{DataType: dataType, Access: healthdata.AccessWrite}); err != nil {
		return err
	}

	_, err := call(ctx, s, "write", dataType, false, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.adapter.Write(ctx, p)
	})
	return err
}

// Subscribe opens the adapter's live feed for dataType. It returns a nil
// channel when the platform cannot read dataType.
func (s *Service) Subscribe(ctx context.Context, dataType healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
	if !s.Capability(dataType).CanRead {
		return nil, nil
	}
	if err := s.ensureGranted(ctx, healthdata.Permission{DataType: dataType, Access: healthdata.AccessRead}); err != nil {
		return nil, err
	}

	// The feed lives on ctx, not on the per-attempt timeout.
	return call(ctx, s, "subscribe", dataType, false, func(context.Context) (<-chan healthdata.HealthDataPoint, error) {
		return s.adapter.Subscribe(ctx, dataType)
	})
}

// StartWorkout starts a native workout of type t.
func (s *Service) StartWorkout(ctx context.Context, t healthdata.WorkoutType) (string, error) {
	return call(ctx, s, "start_workout", healthdata.Workout, false, func(ctx context.Context) (string, error) {
		return s.adapter.StartWorkout(ctx, t)
	})
}

// PauseWorkout pauses the native workout id.
func (s *Service) PauseWorkout(ctx context.Context, id string) error {
	return s.workoutCall(ctx, "pause_workout", id, s.adapter.PauseWorkout)
}

// ResumeWorkout resumes the native workout id.
func (s *Service) ResumeWorkout(ctx context.Context, id string) error {
	return s.workoutCall(ctx, "resume_workout", id, s.adapter.ResumeWorkout)
}

// EndWorkout ends the native workout id.
func (s *Service) EndWorkout(ctx context.Context, id string) error {
	return s.workoutCall(ctx, "end_workout", id, s.adapter.EndWorkout)
}

// ObserveActiveWorkout opens the live feed of the active workout.
func (s *Service) ObserveActiveWorkout(ctx context.Context) (<-chan healthdata.WorkoutData, error) {
	return call(ctx, s, "observe_workout", healthdata.Workout, false, func(context.Context) (<-chan healthdata.WorkoutData, error) {
		return s.adapter.ObserveActiveWorkout(ctx)
	})
}

func (s *Service) workoutCall(ctx context.Context, op, id string, fn func(context.Context, string) error) error {
	_, err := call(ctx, s, op, healthdata.Workout, false, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx, id)
	})
	return err
}

// ensureGranted checks perm with the adapter unless it is already known to
// be granted.
func (s *Service) ensureGranted(ctx context.Context, perm healthdata.Permission) error {
	s.mu.RLock()
	ok := s.granted.Contains(perm)
	s.mu.RUnlock()
	if ok {
		return nil
	}

	res, err := s.CheckPermissions(ctx, healthdata.NewPermissionSet(perm))
	if err != nil {
		return err
	}
	if !res.Granted.Contains(perm) {
		return &PermissionDeniedError{Permission: perm}
	}
	return nil
}

// call runs fn through the executor, records the outcome and wraps
// failures in AdapterError.
func call[T any](ctx context.Context, s *Service, op string, dataType healthdata.DataType, retry bool, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()

	var (
		v   T
		err error
	)
	if retry {
		v, err = resilience.Retry(ctx, s.exec, fn)
	} else {
		v, err = resilience.Once(ctx, s.exec, fn)
	}
	s.instruments.AdapterCall(ctx, op, start, err)

	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("operation", op).
			Str("data_type", dataType.String()).
			Dur("duration", time.Since(start)).
			Msg("adapter call failed")
		return v, &AdapterError{Operation: op, Platform: s.platform, DataType: dataType, Cause: err}
	}
	return v, nil
}
