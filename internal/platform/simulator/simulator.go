// Package simulator is an in-memory platform adapter. It backs local
// development and tests: permissions are granted on request, points written
// to it are readable and streamed to subscribers, and workouts follow the
// native lifecycle rules.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// Simulator errors.
var (
	ErrWorkoutActive    = errors.New("a workout is already active")
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrWorkoutNotActive = errors.New("workout is not in the required state")
)

// Config holds configuration for an Adapter.
type Config struct {
	// Platform is the store being simulated.
	// Default: healthkit
	Platform healthdata.Platform

	// GrantAll reports every permission as granted without a request.
	GrantAll bool

	Logger zerolog.Logger

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

// Adapter simulates a native health store.
type Adapter struct {
	platform healthdata.Platform
	grantAll bool
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	granted  healthdata.PermissionSet
	refused  healthdata.PermissionSet
	latest   map[healthdata.DataType]healthdata.HealthDataPoint
	written  []healthdata.HealthDataPoint
	failures map[string]error
	subs     map[healthdata.DataType][]*feed[healthdata.HealthDataPoint]
	workout  *activeWorkout
	wsubs    []*feed[healthdata.WorkoutData]
}

type activeWorkout struct {
	id      string
	kind    healthdata.WorkoutType
	started time.Time
	paused  bool
}

// New creates a simulated adapter.
func New(cfg Config) *Adapter {
	if cfg.Platform == "" {
		cfg.Platform = healthdata.PlatformHealthKit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{
		platform: cfg.Platform,
		grantAll: cfg.GrantAll,
		logger:   cfg.Logger.With().Str("component", "simulator").Logger(),
		now:      cfg.Now,
		granted:  healthdata.NewPermissionSet(),
		refused:  healthdata.NewPermissionSet(),
		latest:   make(map[healthdata.DataType]healthdata.HealthDataPoint),
		failures: make(map[string]error),
		subs:     make(map[healthdata.DataType][]*feed[healthdata.HealthDataPoint]),
	}
}

// Platform returns the simulated platform.
func (a *Adapter) Platform() healthdata.Platform { return a.platform }

// FailNext makes the next call of op return err. Ops are named after the
// adapter methods in snake case, e.g. "read_latest" or "pause_workout".
func (a *Adapter) FailNext(op string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[op] = err
}

// Refuse makes RequestPermissions deny perms.
func (a *Adapter) Refuse(perms ...healthdata.Permission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range perms {
		a.refused.Add(p)
		delete(a.granted, p)
	}
}

// Written returns every point written so far, oldest first.
func (a *Adapter) Written() []healthdata.HealthDataPoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]healthdata.HealthDataPoint, len(a.written))
	copy(out, a.written)
	return out
}

// failure pops the injected error for op. Callers hold a.mu.
func (a *Adapter) failure(op string) error {
	err := a.failures[op]
	delete(a.failures, op)
	return err
}

// CheckPermissions partitions perms by what has been granted.
func (a *Adapter) CheckPermissions(_ context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("check_permissions"); err != nil {
		return healthdata.PermissionResult{}, err
	}
	return healthdata.Partition(perms, a.isGranted), nil
}

// RequestPermissions grants every supported permission in perms that has not
// been refused.
func (a *Adapter) RequestPermissions(_ context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("request_permissions"); err != nil {
		return healthdata.PermissionResult{}, err
	}
	for p := range perms {
		if a.supports(p) && !a.refused.Contains(p) {
			a.granted.Add(p)
		}
	}
	return healthdata.Partition(perms, a.isGranted), nil
}

func (a *Adapter) isGranted(p healthdata.Permission) bool {
	if a.refused.Contains(p) || !a.supports(p) {
		return false
	}
	return a.grantAll || a.granted.Contains(p)
}

func (a *Adapter) supports(p healthdata.Permission) bool {
	c := healthdata.CapabilitiesFor(p.DataType, a.platform)
	if p.Access == healthdata.AccessWrite {
		return c.CanWrite
	}
	return c.CanRead
}

// ReadLatest returns the newest point of dataType, or nil.
func (a *Adapter) ReadLatest(_ context.Context, dataType healthdata.DataType) (healthdata.HealthDataPoint, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("read_latest"); err != nil {
		return nil, err
	}
	return a.latest[dataType], nil
}

// Write stores p and streams it to subscribers of its type.
func (a *Adapter) Write(ctx context.Context, p healthdata.HealthDataPoint) error {
	a.mu.Lock()
	if err := a.failure("write"); err != nil {
		a.mu.Unlock()
		return err
	}
	a.written = append(a.written, p)
	a.mu.Unlock()

	a.Emit(ctx, p)
	return nil
}

// Emit records p as the latest sample of its type and delivers it to every
// subscriber, blocking until each has accepted it or gone away.
func (a *Adapter) Emit(ctx context.Context, p healthdata.HealthDataPoint) {
	a.mu.Lock()
	dt := p.DataType()
	if prev, ok := a.latest[dt]; !ok || !p.PointBase().Timestamp.Before(prev.PointBase().Timestamp) {
		a.latest[dt] = p
	}
	subs := append([]*feed[healthdata.HealthDataPoint](nil), a.subs[dt]...)
	a.mu.Unlock()

	for _, f := range subs {
		f.send(ctx, p)
	}
}

// Subscribe streams points of dataType emitted after the call.
func (a *Adapter) Subscribe(ctx context.Context, dataType healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
	if !healthdata.CapabilitiesFor(dataType, a.platform).CanRead {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("subscribe"); err != nil {
		return nil, err
	}

	f := newFeed[healthdata.HealthDataPoint](ctx)
	a.subs[dataType] = append(a.subs[dataType], f)
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		a.subs[dataType] = without(a.subs[dataType], f)
		a.mu.Unlock()
		f.close()
	}()
	return f.ch, nil
}

// StartWorkout starts a workout and returns its ID.
func (a *Adapter) StartWorkout(_ context.Context, t healthdata.WorkoutType) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("start_workout"); err != nil {
		return "", err
	}
	if a.workout != nil {
		return "", ErrWorkoutActive
	}

	a.workout = &activeWorkout{id: uuid.NewString(), kind: t, started: a.now()}
	a.logger.Debug().Str("session_id", a.workout.id).Msg("simulated workout started")
	return a.workout.id, nil
}

// PauseWorkout pauses the running workout id.
func (a *Adapter) PauseWorkout(_ context.Context, id string) error {
	return a.setPaused("pause_workout", id, true)
}

// ResumeWorkout resumes the paused workout id.
func (a *Adapter) ResumeWorkout(_ context.Context, id string) error {
	return a.setPaused("resume_workout", id, false)
}

func (a *Adapter) setPaused(op, id string, paused bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure(op); err != nil {
		return err
	}
	if a.workout == nil || a.workout.id != id {
		return fmt.Errorf("%w: %s", ErrWorkoutNotFound, id)
	}
	if a.workout.paused == paused {
		return ErrWorkoutNotActive
	}
	a.workout.paused = paused
	return nil
}

// EndWorkout ends workout id, records it as the latest workout sample and
// closes the live workout feeds.
func (a *Adapter) EndWorkout(_ context.Context, id string) error {
	a.mu.Lock()
	if err := a.failure("end_workout"); err != nil {
		a.mu.Unlock()
		return err
	}
	if a.workout == nil || a.workout.id != id {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorkoutNotFound, id)
	}

	w := a.workout
	a.workout = nil
	a.latest[healthdata.Workout] = healthdata.NewWorkoutData(
		healthdata.NewBase(w.started, &healthdata.DataSource{Name: "simulator"}),
		w.id, w.kind, healthdata.Interval{Start: w.started, End: a.now()},
	)
	wsubs := a.wsubs
	a.wsubs = nil
	a.mu.Unlock()

	for _, f := range wsubs {
		f.close()
	}
	return nil
}

// ObserveActiveWorkout streams updates of the active workout. It returns a
// nil channel when no workout is active.
func (a *Adapter) ObserveActiveWorkout(ctx context.Context) (<-chan healthdata.WorkoutData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failure("observe_workout"); err != nil {
		return nil, err
	}
	if a.workout == nil {
		return nil, nil
	}

	f := newFeed[healthdata.WorkoutData](ctx)
	a.wsubs = append(a.wsubs, f)
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		a.wsubs = without(a.wsubs, f)
		a.mu.Unlock()
		f.close()
	}()
	return f.ch, nil
}

// EmitWorkout delivers u to the active workout's observers. An empty u.ID is
// filled with the active workout ID. It reports false when no workout is
// active.
func (a *Adapter) EmitWorkout(ctx context.Context, u healthdata.WorkoutData) bool {
	a.mu.Lock()
	if a.workout == nil {
		a.mu.Unlock()
		return false
	}
	if u.ID == "" {
		u.ID = a.workout.id
	}
	if u.Type == "" {
		u.Type = a.workout.kind
	}
	subs := append([]*feed[healthdata.WorkoutData](nil), a.wsubs...)
	a.mu.Unlock()

	for _, f := range subs {
		f.send(ctx, u)
	}
	return true
}
