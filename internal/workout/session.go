// Package workout runs the workout session state machine: lifecycle calls
// against the platform adapter and field-level aggregation of live workout
// updates into the current session.
package workout

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// State is the lifecycle state of a session.
type State string

const (
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateEnded   State = "ENDED"
)

// Session is the aggregate of one workout. Metrics stay nil until an update
// carries them. Distance is in meters, Calories in kilocalories, HeartRate in
// beats per minute and Pace in minutes per kilometre.
type Session struct {
	ID        string                  `json:"sessionId"`
	Type      healthdata.WorkoutType  `json:"type"`
	State     State                   `json:"state"`
	StartTime time.Time               `json:"startTime"`
	EndTime   *time.Time              `json:"endTime,omitempty"`
	Duration  time.Duration           `json:"duration"`
	Distance  *float64                `json:"distance,omitempty"`
	Calories  *float64                `json:"calories,omitempty"`
	HeartRate *int                    `json:"heartRate,omitempty"`
	Steps     *int                    `json:"steps,omitempty"`
	Cadence   *float64                `json:"cadence,omitempty"`
	Pace      *float64                `json:"pace,omitempty"`
	Route     []healthdata.RoutePoint `json:"route,omitempty"`
}

// Merge folds a live update into s. Each metric the update carries replaces
// the session's value; metrics it omits keep their previous value. A route
// is the full route so far and replaces the previous one. Pace is
// recomputed whenever both duration and distance are positive.
func Merge(s Session, u healthdata.WorkoutData) Session {
	if u.Duration != nil {
		s.Duration = *u.Duration
	}
	if u.Distance != nil {
		s.Distance = ptr(*u.Distance)
	}
	if u.Calories != nil {
		s.Calories = ptr(*u.Calories)
	}
	if u.HeartRate != nil {
		s.HeartRate = ptr(u.HeartRate.Latest)
	}
	if u.Steps != nil {
		s.Steps = ptr(*u.Steps)
	}
	if u.Cadence != nil {
		s.Cadence = ptr(*u.Cadence)
	}
	if len(u.Route) > 0 {
		s.Route = slices.Clone(u.Route)
	}
	if pace, ok := Pace(s.Duration, s.Distance); ok {
		s.Pace = &pace
	}
	return s
}

// Pace returns minutes per kilometre for the given elapsed time and distance
// in meters. It reports false unless both are positive.
func Pace(d time.Duration, distance *float64) (float64, bool) {
	if d <= 0 || distance == nil || *distance <= 0 {
		return 0, false
	}
	return d.Minutes() / (*distance / 1000), true
}

func ptr[T any](v T) *T { return &v }

// ErrSessionActive is the cause of a SessionStartError when a session is
// already running or paused.
var ErrSessionActive = errors.New("a workout session is already active")

// ErrSessionNotFound is returned by stores for unknown session IDs.
var ErrSessionNotFound = errors.New("workout session not found")

// SessionStartError reports a failed start.
type SessionStartError struct {
	Type  healthdata.WorkoutType
	Cause error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("start %s workout: %v", e.Type, e.Cause)
}

func (e *SessionStartError) Unwrap() error {
	return e.Cause
}

// InvalidTransitionError reports a lifecycle call the current state does
// not permit. The session is left unchanged.
type InvalidTransitionError struct {
	Transition string
	From       State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s workout", e.Transition, e.From)
}

// SessionOperationError reports an adapter failure during a lifecycle
// transition. The session is left unchanged.
type SessionOperationError struct {
	Operation string
	SessionID string
	Cause     error
}

func (e *SessionOperationError) Error() string {
	return fmt.Sprintf("%s workout %s: %v", e.Operation, e.SessionID, e.Cause)
}

func (e *SessionOperationError) Unwrap() error {
	return e.Cause
}
