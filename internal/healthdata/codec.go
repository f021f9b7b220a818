package healthdata

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrMalformedEnvelope is returned when an encoded point lacks its type tag
// or body.
var ErrMalformedEnvelope = errors.New("malformed data point envelope")

type envelope struct {
	Type  DataType        `json:"type"`
	Point HealthDataPoint `json:"point"`
}

// MarshalPoint encodes p with its data type tag:
//
//	{"type":"heart_rate","point":{...}}
func MarshalPoint(p HealthDataPoint) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("marshal point: %w", ErrMalformedEnvelope)
	}
	return json.Marshal(envelope{Type: p.DataType(), Point: p})
}

// UnmarshalPoint decodes a tagged point produced by MarshalPoint and
// validates it. Interval-bearing points with no timestamp are anchored at
// the interval start.
func UnmarshalPoint(data []byte) (HealthDataPoint, error) {
	tag, err := jsonparser.GetString(data, "type")
	if err != nil {
		return nil, fmt.Errorf("%w: type: %v", ErrMalformedEnvelope, err)
	}
	dt, err := ParseDataType(tag)
	if err != nil {
		return nil, fmt.Errorf("unmarshal point %q: %w", tag, err)
	}
	body, vt, _, err := jsonparser.Get(data, "point")
	if err != nil || vt != jsonparser.Object {
		return nil, fmt.Errorf("%w: point body", ErrMalformedEnvelope)
	}

	p, err := decodePoint(dt, body)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s point: %w", dt, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodePoint(dt DataType, body []byte) (HealthDataPoint, error) {
	switch dt {
	case HeartRate:
		return decodeAs[HeartRateData](body)
	case HeartRateVariability:
		return decodeAs[HeartRateVariabilityData](body)
	case RestingHeartRate:
		return decodeAs[RestingHeartRateData](body)
	case Steps:
		p, err := decodeAs[StepsData](body)
		if p.Interval != nil {
			p.Base = anchorIfUnset(p.Base, *p.Interval)
		}
		return p, err
	case Distance:
		return decodeAs[DistanceData](body)
	case ActiveCalories:
		return decodeAs[ActiveCaloriesData](body)
	case TotalCalories:
		return decodeAs[TotalCaloriesData](body)
	case FloorsClimbed:
		return decodeAs[FloorsClimbedData](body)
	case Weight:
		return decodeAs[WeightData](body)
	case Height:
		return decodeAs[HeightData](body)
	case BodyFat:
		return decodeAs[BodyFatData](body)
	case BodyMassIndex:
		return decodeAs[BodyMassIndexData](body)
	case BloodPressure:
		return decodeAs[BloodPressureData](body)
	case BloodGlucose:
		return decodeAs[GlucoseData](body)
	case OxygenSaturation:
		return decodeAs[OxygenSaturationData](body)
	case RespiratoryRate:
		return decodeAs[RespiratoryRateData](body)
	case BodyTemperature:
		return decodeAs[BodyTemperatureData](body)
	case Sleep:
		p, err := decodeAs[SleepData](body)
		p.Base = anchorIfUnset(p.Base, p.Interval)
		return p, err
	case Workout:
		p, err := decodeAs[WorkoutData](body)
		p.Base = anchorIfUnset(p.Base, p.Interval)
		return p, err
	case Hydration:
		return decodeAs[HydrationData](body)
	case Nutrition:
		return decodeAs[NutritionData](body)
	case Mindfulness:
		p, err := decodeAs[MindfulnessData](body)
		p.Base = anchorIfUnset(p.Base, p.Interval)
		return p, err
	case VO2Max:
		return decodeAs[VO2MaxData](body)
	case Speed:
		return decodeAs[SpeedData](body)
	case Power:
		return decodeAs[PowerData](body)
	}
	return nil, ErrUnknownDataType
}

func decodeAs[T HealthDataPoint](body []byte) (T, error) {
	var v T
	err := json.Unmarshal(body, &v)
	return v, err
}

func anchorIfUnset(b Base, iv Interval) Base {
	if b.Timestamp.IsZero() {
		return anchored(b, iv)
	}
	return b
}
