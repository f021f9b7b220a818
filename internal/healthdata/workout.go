package healthdata

import (
	"time"

	"github.com/healthbridge/healthbridge/pkg/polyline"
)

// WorkoutType is the kind of exercise activity.
type WorkoutType string

const (
	WorkoutRunning    WorkoutType = "running"
	WorkoutWalking    WorkoutType = "walking"
	WorkoutCycling    WorkoutType = "cycling"
	WorkoutSwimming   WorkoutType = "swimming"
	WorkoutHiking     WorkoutType = "hiking"
	WorkoutRowing     WorkoutType = "rowing"
	WorkoutElliptical WorkoutType = "elliptical"
	WorkoutStrength   WorkoutType = "strength_training"
	WorkoutYoga       WorkoutType = "yoga"
	WorkoutHIIT       WorkoutType = "hiit"
	WorkoutOther      WorkoutType = "other"
)

var workoutTypes = map[WorkoutType]struct{}{
	WorkoutRunning: {}, WorkoutWalking: {}, WorkoutCycling: {}, WorkoutSwimming: {},
	WorkoutHiking: {}, WorkoutRowing: {}, WorkoutElliptical: {}, WorkoutStrength: {},
	WorkoutYoga: {}, WorkoutHIIT: {}, WorkoutOther: {},
}

// IsValid reports whether t is a known workout type.
func (t WorkoutType) IsValid() bool {
	_, ok := workoutTypes[t]
	return ok
}

// HeartRateStats summarizes heart rate during a workout.
type HeartRateStats struct {
	Latest  int      `json:"latest"`
	Average *float64 `json:"average,omitempty"`
	Min     *int     `json:"min,omitempty"`
	Max     *int     `json:"max,omitempty"`
}

// WorkoutSegment is a lap or split within a workout.
type WorkoutSegment struct {
	Label    string   `json:"label,omitempty"`
	Interval Interval `json:"interval"`
	Distance *float64 `json:"distance,omitempty"`
}

// RoutePoint is a recorded location along a workout route.
type RoutePoint struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Altitude *float64  `json:"altitude,omitempty"`
	Time     time.Time `json:"time"`
}

// WorkoutData is a workout record or a live workout update. Every metric is
// optional; a live update carries only the fields that changed. Distance is
// in meters and Calories in kilocalories.
type WorkoutData struct {
	Base
	ID        string           `json:"id"`
	Type      WorkoutType      `json:"type"`
	Interval  Interval         `json:"interval"`
	Duration  *time.Duration   `json:"duration,omitempty"`
	Calories  *float64         `json:"calories,omitempty"`
	Distance  *float64         `json:"distance,omitempty"`
	HeartRate *HeartRateStats  `json:"heartRate,omitempty"`
	Steps     *int             `json:"steps,omitempty"`
	Cadence   *float64         `json:"cadence,omitempty"`
	Segments  []WorkoutSegment `json:"segments,omitempty"`
	Route     []RoutePoint     `json:"route,omitempty"`
}

func (WorkoutData) DataType() DataType { return Workout }

func (p WorkoutData) Validate() error {
	if p.ID == "" {
		return &ValidationError{DataType: Workout, Field: "id", Message: "is required"}
	}
	if !p.Type.IsValid() {
		return &ValidationError{DataType: Workout, Field: "type", Message: "is not a known workout type"}
	}
	return requireInterval(Workout, p.Base, p.Interval)
}

// NewWorkoutData creates a workout over iv, anchored at its start.
func NewWorkoutData(base Base, id string, t WorkoutType, iv Interval) WorkoutData {
	return WorkoutData{Base: anchored(base, iv), ID: id, Type: t, Interval: iv}
}

// RouteLength returns the great-circle length of route in meters.
func RouteLength(route []RoutePoint) float64 {
	return polyline.Length(coordinates(route))
}

// EncodeRoute encodes the positions of route as a polyline, or "" for an
// empty route. Altitude and time are not carried.
func EncodeRoute(route []RoutePoint) string {
	return polyline.Encode(coordinates(route))
}

// DecodeRoute parses a polyline produced by EncodeRoute. The returned points
// carry positions only.
func DecodeRoute(encoded string) ([]RoutePoint, error) {
	coords, err := polyline.Decode(encoded)
	if err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return nil, nil
	}
	route := make([]RoutePoint, len(coords))
	for i, c := range coords {
		route[i] = RoutePoint{Lat: c.Lat, Lon: c.Lon}
	}
	return route, nil
}

func coordinates(route []RoutePoint) []polyline.Coordinate {
	coords := make([]polyline.Coordinate, len(route))
	for i, rp := range route {
		coords[i] = polyline.Coordinate{Lat: rp.Lat, Lon: rp.Lon}
	}
	return coords
}
