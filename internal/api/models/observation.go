package models

import (
	"time"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// DataPoint is a sample tagged with its type. The shape matches the
// healthdata envelope codec, so request bodies decode with
// healthdata.UnmarshalPoint.
type DataPoint struct {
	Type  healthdata.DataType        `json:"type"`
	Point healthdata.HealthDataPoint `json:"point"`
}

func NewDataPoint(p healthdata.HealthDataPoint) DataPoint {
	return DataPoint{Type: p.DataType(), Point: p}
}

func NewDataPoints(points []healthdata.HealthDataPoint) []DataPoint {
	out := make([]DataPoint, 0, len(points))
	for _, p := range points {
		out = append(out, NewDataPoint(p))
	}
	return out
}

// ObservationStatus is one data type's live observation state.
type ObservationStatus struct {
	DataType    healthdata.DataType `json:"dataType"`
	Observing   bool                `json:"observing"`
	HistorySize int                 `json:"historySize"`
	Latest      *DataPoint          `json:"latest,omitempty"`
}

// Observations lists active observations and types with retained history.
type Observations struct {
	Observations []ObservationStatus `json:"observations"`
}

// History is the retained buffer of one data type, oldest first.
type History struct {
	DataType  healthdata.DataType `json:"dataType"`
	Observing bool                `json:"observing"`
	Points    []DataPoint         `json:"points"`
}

// Dashboard is the latest sample per readable data type.
type Dashboard struct {
	Platform   healthdata.Platform   `json:"platform"`
	LoadedAt   Timestamp             `json:"loadedAt"`
	DurationMs int64                 `json:"durationMs"`
	Points     []DataPoint           `json:"points"`
	Missing    []healthdata.DataType `json:"missing"`
}

// NewDashboard orders points by taxonomy. Requested types without a
// sample are listed as missing.
func NewDashboard(platform healthdata.Platform, requested []healthdata.DataType, points map[healthdata.DataType]healthdata.HealthDataPoint, loadedAt time.Time, took time.Duration) Dashboard {
	d := Dashboard{
		Platform:   platform,
		LoadedAt:   Timestamp(loadedAt),
		DurationMs: took.Milliseconds(),
		Points:     make([]DataPoint, 0, len(points)),
		Missing:    []healthdata.DataType{},
	}
	for _, dt := range requested {
		if p, ok := points[dt]; ok {
			d.Points = append(d.Points, NewDataPoint(p))
		} else {
			d.Missing = append(d.Missing, dt)
		}
	}
	return d
}
