// Package healthdata provides the canonical health data model: the metric
// taxonomy, per-platform capabilities, permissions and the data point variants
// every platform adapter normalizes into.
package healthdata

import (
	"errors"
	"strings"
)

// ErrUnknownDataType is returned when a data type name cannot be resolved.
var ErrUnknownDataType = errors.New("unknown health data type")

// DataType is a canonical metric kind.
type DataType string

// Canonical data types. Each has exactly one HealthDataPoint variant.
const (
	HeartRate            DataType = "heart_rate"
	HeartRateVariability DataType = "heart_rate_variability"
	RestingHeartRate     DataType = "resting_heart_rate"
	Steps                DataType = "steps"
	Distance             DataType = "distance"
	ActiveCalories       DataType = "active_calories"
	TotalCalories        DataType = "total_calories"
	FloorsClimbed        DataType = "floors_climbed"
	Weight               DataType = "weight"
	Height               DataType = "height"
	BodyFat              DataType = "body_fat"
	BodyMassIndex        DataType = "body_mass_index"
	BloodPressure        DataType = "blood_pressure"
	BloodGlucose         DataType = "blood_glucose"
	OxygenSaturation     DataType = "oxygen_saturation"
	RespiratoryRate      DataType = "respiratory_rate"
	BodyTemperature      DataType = "body_temperature"
	Sleep                DataType = "sleep"
	Workout              DataType = "workout"
	Hydration            DataType = "hydration"
	Nutrition            DataType = "nutrition"
	Mindfulness          DataType = "mindfulness"
	VO2Max               DataType = "vo2_max"
	Speed                DataType = "speed"
	Power                DataType = "power"
)

var allDataTypes = []DataType{
	HeartRate,
	HeartRateVariability,
	RestingHeartRate,
	Steps,
	Distance,
	ActiveCalories,
	TotalCalories,
	FloorsClimbed,
	Weight,
	Height,
	BodyFat,
	BodyMassIndex,
	BloodPressure,
	BloodGlucose,
	OxygenSaturation,
	RespiratoryRate,
	BodyTemperature,
	Sleep,
	Workout,
	Hydration,
	Nutrition,
	Mindfulness,
	VO2Max,
	Speed,
	Power,
}

// AllDataTypes returns every canonical data type in declaration order.
func AllDataTypes() []DataType {
	out := make([]DataType, len(allDataTypes))
	copy(out, allDataTypes)
	return out
}

// IsValid reports whether d is one of the canonical data types.
func (d DataType) IsValid() bool {
	for _, t := range allDataTypes {
		if t == d {
			return true
		}
	}
	return false
}

func (d DataType) String() string {
	return string(d)
}

// ParseDataType resolves a data type name, case-insensitively.
func ParseDataType(s string) (DataType, error) {
	d := DataType(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", ErrUnknownDataType
	}
	return d, nil
}

// Platform identifies a native health store.
type Platform string

const (
	PlatformHealthKit     Platform = "healthkit"
	PlatformHealthConnect Platform = "healthconnect"
)

// SupportedPlatforms returns the platforms with a capability table.
func SupportedPlatforms() []Platform {
	return []Platform{PlatformHealthKit, PlatformHealthConnect}
}

// AccessType is the kind of access a permission grants.
type AccessType string

const (
	AccessRead  AccessType = "READ"
	AccessWrite AccessType = "WRITE"
)
