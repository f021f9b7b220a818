package models

import (
	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/workout"
)

// StartWorkoutRequest is the body of POST /v1/workouts.
type StartWorkoutRequest struct {
	Type healthdata.WorkoutType `json:"type"`
}

// Workout is a session snapshot. Distance is in meters and pace in minutes
// per kilometre. Route is an encoded polyline and RouteLength its length in
// meters.
type Workout struct {
	SessionID       string                 `json:"sessionId"`
	Type            healthdata.WorkoutType `json:"type"`
	State           workout.State          `json:"state"`
	StartTime       Timestamp              `json:"startTime"`
	EndTime         *Timestamp             `json:"endTime,omitempty"`
	DurationSeconds float64                `json:"durationSeconds"`
	Distance        *float64               `json:"distance,omitempty"`
	Calories        *float64               `json:"calories,omitempty"`
	HeartRate       *int                   `json:"heartRate,omitempty"`
	Steps           *int                   `json:"steps,omitempty"`
	Cadence         *float64               `json:"cadence,omitempty"`
	Pace            *float64               `json:"pace,omitempty"`
	Route           string                 `json:"route,omitempty"`
	RouteLength     *float64               `json:"routeLength,omitempty"`
}

// NewWorkout converts a session to its API form.
func NewWorkout(s workout.Session) Workout {
	w := Workout{
		SessionID:       s.ID,
		Type:            s.Type,
		State:           s.State,
		StartTime:       Timestamp(s.StartTime),
		DurationSeconds: s.Duration.Seconds(),
		Distance:        s.Distance,
		Calories:        s.Calories,
		HeartRate:       s.HeartRate,
		Steps:           s.Steps,
		Cadence:         s.Cadence,
		Pace:            s.Pace,
		Route:           healthdata.EncodeRoute(s.Route),
	}
	if len(s.Route) > 1 {
		length := healthdata.RouteLength(s.Route)
		w.RouteLength = &length
	}
	if s.EndTime != nil {
		w.EndTime = NewTimestamp(*s.EndTime)
	}
	return w
}
