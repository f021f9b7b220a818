package workout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/observation"
	"github.com/healthbridge/healthbridge/internal/telemetry"
)

// Adapter is the platform side of a workout: lifecycle calls and the live
// update feed of the active workout.
type Adapter interface {
	StartWorkout(ctx context.Context, t healthdata.WorkoutType) (string, error)
	PauseWorkout(ctx context.Context, id string) error
	ResumeWorkout(ctx context.Context, id string) error
	EndWorkout(ctx context.Context, id string) error
	ObserveActiveWorkout(ctx context.Context) (<-chan healthdata.WorkoutData, error)
}

// Config holds configuration for a Tracker.
type Config struct {
	Adapter     Adapter
	Store       Store
	Logger      zerolog.Logger
	Instruments *telemetry.Instruments

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

// Tracker runs at most one workout session at a time.
//
// Lifecycle calls are serialized; the current session is guarded separately
// so Current and live merges never wait on an adapter call.
type Tracker struct {
	adapter     Adapter
	store       Store
	logger      zerolog.Logger
	instruments *telemetry.Instruments
	now         func() time.Time
	mux         *observation.Multiplexer

	opMu sync.Mutex

	mu       sync.Mutex
	current  *Session
	consumed chan struct{}
}

// NewTracker creates a Tracker. A nil Store keeps finished sessions in memory.
func NewTracker(cfg Config) *Tracker {
	if cfg.Store == nil {
		cfg.Store = NewInMemoryStore()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t := &Tracker{
		adapter:     cfg.Adapter,
		store:       cfg.Store,
		logger:      cfg.Logger.With().Str("component", "workout").Logger(),
		instruments: cfg.Instruments,
		now:         cfg.Now,
	}
	t.mux = observation.NewMultiplexer(observation.Config{
		Source:      observation.SourceFunc(t.subscribe),
		Logger:      cfg.Logger,
		Instruments: cfg.Instruments,
	})
	return t
}

// Current returns a copy of the active session, or nil when there is none.
func (t *Tracker) Current() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	s := *t.current
	return &s
}

// Start begins a session of type wt and subscribes to its live updates.
func (t *Tracker) Start(ctx context.Context, wt healthdata.WorkoutType) (*Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	session, err := t.start(ctx, wt)
	t.instruments.WorkoutTransition(ctx, "start", err)
	return session, err
}

func (t *Tracker) start(ctx context.Context, wt healthdata.WorkoutType) (*Session, error) {
	if !wt.IsValid() {
		return nil, &SessionStartError{Type: wt, Cause: fmt.Errorf("unknown workout type %q", wt)}
	}
	if t.Current() != nil {
		return nil, &SessionStartError{Type: wt, Cause: ErrSessionActive}
	}

	id, err := t.adapter.StartWorkout(ctx, wt)
	if err != nil {
		return nil, &SessionStartError{Type: wt, Cause: err}
	}

	t.mu.Lock()
	t.current = &Session{
		ID:        id,
		Type:      wt,
		State:     StateRunning,
		StartTime: t.now(),
	}
	t.mu.Unlock()

	logger := t.logger.With().Str("session_id", id).Str("workout_type", string(wt)).Logger()
	logger.Info().Msg("workout started")

	handle, err := t.mux.StartObserving(ctx, healthdata.Workout)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("live workout updates unavailable")
	case handle == nil:
		logger.Debug().Msg("platform has no live workout feed")
	default:
		done := make(chan struct{})
		t.mu.Lock()
		t.consumed = done
		t.mu.Unlock()
		go t.consume(handle, id, done)
	}

	return t.Current(), nil
}

// Pause pauses the running session. With no active session it returns nil
// and no error.
func (t *Tracker) Pause(ctx context.Context) (*Session, error) {
	return t.transition(ctx, "pause", StateRunning, StatePaused, t.adapter.PauseWorkout)
}

// Resume resumes the paused session. With no active session it returns nil
// and no error.
func (t *Tracker) Resume(ctx context.Context) (*Session, error) {
	return t.transition(ctx, "resume", StatePaused, StateRunning, t.adapter.ResumeWorkout)
}

func (t *Tracker) transition(ctx context.Context, name string, from, to State, call func(context.Context, string) error) (*Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	current := t.Current()
	if current == nil {
		return nil, nil
	}

	var err error
	defer func() { t.instruments.WorkoutTransition(ctx, name, err) }()

	if current.State != from {
		err = &InvalidTransitionError{Transition: name, From: current.State}
		return nil, err
	}
	if callErr := call(ctx, current.ID); callErr != nil {
		err = &SessionOperationError{Operation: name, SessionID: current.ID, Cause: callErr}
		return nil, err
	}

	t.mu.Lock()
	t.current.State = to
	s := *t.current
	t.mu.Unlock()

	t.logger.Info().Str("session_id", s.ID).Str("state", string(to)).Msg("workout " + name + "d")
	return &s, nil
}

// End finishes the active session, stops its live updates and persists it.
// The returned session is final even when persisting fails. With no active
// session it returns nil and no error.
func (t *Tracker) End(ctx context.Context) (*Session, error) {
	t.opMu.Lock()
	defer t.opMu.Unlock()

	current := t.Current()
	if current == nil {
		return nil, nil
	}

	if err := t.adapter.EndWorkout(ctx, current.ID); err != nil {
		opErr := &SessionOperationError{Operation: "end", SessionID: current.ID, Cause: err}
		t.instruments.WorkoutTransition(ctx, "end", opErr)
		return nil, opErr
	}

	t.mux.StopObserving(healthdata.Workout)

	t.mu.Lock()
	done := t.consumed
	t.consumed = nil
	t.mu.Unlock()
	if done != nil {
		<-done
	}

	t.mu.Lock()
	final := *t.current
	t.current = nil
	t.mu.Unlock()

	end := t.now()
	final.State = StateEnded
	final.EndTime = &end

	logger := t.logger.With().Str("session_id", final.ID).Logger()
	logger.Info().Dur("duration", final.Duration).Msg("workout ended")

	var err error
	if saveErr := t.store.Save(ctx, final); saveErr != nil {
		err = fmt.Errorf("persisting workout %s: %w", final.ID, saveErr)
		logger.Error().Err(saveErr).Msg("failed to persist finished workout")
	}
	t.instruments.WorkoutTransition(ctx, "end", err)
	return &final, err
}

// Close stops live updates without ending the session at the platform.
func (t *Tracker) Close() {
	t.mux.StopAll()
}

// subscribe bridges the adapter's workout feed to the multiplexer.
func (t *Tracker) subscribe(ctx context.Context, dt healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
	if dt != healthdata.Workout {
		return nil, nil
	}
	in, err := t.adapter.ObserveActiveWorkout(ctx)
	if err != nil || in == nil {
		return nil, err
	}

	out := make(chan healthdata.HealthDataPoint)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (t *Tracker) consume(h *observation.Handle, sessionID string, done chan<- struct{}) {
	defer close(done)
	for p := range h.Updates() {
		u, ok := p.(healthdata.WorkoutData)
		if !ok {
			continue
		}
		t.apply(sessionID, u)
	}
}

// apply merges u into the current session if it is still sessionID and
// running. Updates for a paused, ended or different session are dropped.
func (t *Tracker) apply(sessionID string, u healthdata.WorkoutData) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.current == nil || t.current.ID != sessionID:
		return
	case u.ID != "" && u.ID != sessionID:
		t.logger.Debug().Str("session_id", sessionID).Str("update_id", u.ID).Msg("ignoring update for another workout")
		return
	case t.current.State != StateRunning:
		return
	}
	merged := Merge(*t.current, u)
	t.current = &merged
}
