package healthdata

import (
	"fmt"
	"time"
)

// HealthDataPoint is a timestamped, sourced, annotated health observation.
// The set of implementations is closed; see the variants in points.go.
type HealthDataPoint interface {
	// DataType returns the canonical kind of the point.
	DataType() DataType

	// PointBase returns the fields every point carries.
	PointBase() Base

	// Validate checks the fields required by the variant.
	Validate() error

	isHealthDataPoint()
}

// Base holds the fields shared by every data point variant.
type Base struct {
	Timestamp time.Time      `json:"timestamp"`
	Source    *DataSource    `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PointBase returns b.
func (b Base) PointBase() Base { return b }

func (Base) isHealthDataPoint() {}

// NewBase creates a Base at ts with an optional source.
func NewBase(ts time.Time, source *DataSource) Base {
	return Base{Timestamp: ts, Source: source}
}

// DataSource identifies the app and device a point originated from.
type DataSource struct {
	Name     string  `json:"name"`
	BundleID string  `json:"bundleId,omitempty"`
	Device   *Device `json:"device,omitempty"`
}

// Device describes the recording hardware.
type Device struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Type         string `json:"type,omitempty"`
}

// Interval is a closed time span.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// ValidationError reports a missing or malformed required field.
type ValidationError struct {
	DataType DataType
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s point: %s %s", e.DataType, e.Field, e.Message)
}

func requireTimestamp(d DataType, b Base) error {
	if b.Timestamp.IsZero() {
		return &ValidationError{DataType: d, Field: "timestamp", Message: "is required"}
	}
	return nil
}

// requireInterval checks that iv is ordered and that b is anchored at its start.
func requireInterval(d DataType, b Base, iv Interval) error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return &ValidationError{DataType: d, Field: "interval", Message: "is required"}
	}
	if iv.End.Before(iv.Start) {
		return &ValidationError{DataType: d, Field: "interval", Message: "ends before it starts"}
	}
	if !b.Timestamp.Equal(iv.Start) {
		return &ValidationError{DataType: d, Field: "timestamp", Message: "must equal interval start"}
	}
	return nil
}

func optionalInterval(d DataType, b Base, iv *Interval) error {
	if iv == nil {
		return requireTimestamp(d, b)
	}
	return requireInterval(d, b, *iv)
}

func anchored(b Base, iv Interval) Base {
	b.Timestamp = iv.Start
	return b
}
