package healthdata

import (
	"time"
)

// HeartRateData is an instantaneous heart rate sample.
type HeartRateData struct {
	Base
	BPM         int      `json:"bpm"`
	Variability *float64 `json:"variability,omitempty"`
}

func (HeartRateData) DataType() DataType { return HeartRate }

func (p HeartRateData) Validate() error {
	if p.BPM <= 0 {
		return &ValidationError{DataType: HeartRate, Field: "bpm", Message: "must be positive"}
	}
	return requireTimestamp(HeartRate, p.Base)
}

// HeartRateVariabilityData is an SDNN heart rate variability sample.
type HeartRateVariabilityData struct {
	Base
	SDNNMillis float64 `json:"sdnnMs"`
}

func (HeartRateVariabilityData) DataType() DataType { return HeartRateVariability }

func (p HeartRateVariabilityData) Validate() error {
	return requireTimestamp(HeartRateVariability, p.Base)
}

// RestingHeartRateData is a daily resting heart rate.
type RestingHeartRateData struct {
	Base
	BPM int `json:"bpm"`
}

func (RestingHeartRateData) DataType() DataType { return RestingHeartRate }

func (p RestingHeartRateData) Validate() error {
	return requireTimestamp(RestingHeartRate, p.Base)
}

// StepsData is a step count, optionally over an interval.
type StepsData struct {
	Base
	Count         int       `json:"count"`
	Cadence       *float64  `json:"cadence,omitempty"`
	FloorsClimbed *int      `json:"floorsClimbed,omitempty"`
	Interval      *Interval `json:"interval,omitempty"`
}

func (StepsData) DataType() DataType { return Steps }

func (p StepsData) Validate() error {
	if p.Count < 0 {
		return &ValidationError{DataType: Steps, Field: "count", Message: "must not be negative"}
	}
	return optionalInterval(Steps, p.Base, p.Interval)
}

// NewStepsData creates a step count over iv, anchored at its start.
func NewStepsData(base Base, count int, iv Interval) StepsData {
	return StepsData{Base: anchored(base, iv), Count: count, Interval: &iv}
}

// DistanceData is a travelled distance.
type DistanceData struct {
	Base
	Value    float64      `json:"value"`
	Unit     DistanceUnit `json:"unit,omitempty"`
	Interval *Interval    `json:"interval,omitempty"`
}

func (DistanceData) DataType() DataType { return Distance }

func (p DistanceData) Validate() error {
	return optionalInterval(Distance, p.Base, p.Interval)
}

// ActiveCaloriesData is energy burned through activity, in kilocalories.
type ActiveCaloriesData struct {
	Base
	Kilocalories float64   `json:"kcal"`
	Interval     *Interval `json:"interval,omitempty"`
}

func (ActiveCaloriesData) DataType() DataType { return ActiveCalories }

func (p ActiveCaloriesData) Validate() error {
	return optionalInterval(ActiveCalories, p.Base, p.Interval)
}

// TotalCaloriesData is total energy burned, in kilocalories.
type TotalCaloriesData struct {
	Base
	Kilocalories float64   `json:"kcal"`
	Interval     *Interval `json:"interval,omitempty"`
}

func (TotalCaloriesData) DataType() DataType { return TotalCalories }

func (p TotalCaloriesData) Validate() error {
	return optionalInterval(TotalCalories, p.Base, p.Interval)
}

// FloorsClimbedData is a count of floors climbed.
type FloorsClimbedData struct {
	Base
	Floors   int       `json:"floors"`
	Interval *Interval `json:"interval,omitempty"`
}

func (FloorsClimbedData) DataType() DataType { return FloorsClimbed }

func (p FloorsClimbedData) Validate() error {
	return optionalInterval(FloorsClimbed, p.Base, p.Interval)
}

// WeightData is a body mass measurement.
type WeightData struct {
	Base
	Value float64    `json:"value"`
	Unit  WeightUnit `json:"unit,omitempty"`
}

func (WeightData) DataType() DataType { return Weight }

func (p WeightData) Validate() error {
	if p.Value <= 0 {
		return &ValidationError{DataType: Weight, Field: "value", Message: "must be positive"}
	}
	return requireTimestamp(Weight, p.Base)
}

// HeightData is a body height measurement.
type HeightData struct {
	Base
	Value float64      `json:"value"`
	Unit  DistanceUnit `json:"unit,omitempty"`
}

func (HeightData) DataType() DataType { return Height }

func (p HeightData) Validate() error {
	return requireTimestamp(Height, p.Base)
}

// BodyFatData is a body fat percentage.
type BodyFatData struct {
	Base
	Percentage float64 `json:"percentage"`
}

func (BodyFatData) DataType() DataType { return BodyFat }

func (p BodyFatData) Validate() error {
	return requireTimestamp(BodyFat, p.Base)
}

// BodyMassIndexData is a BMI value in kg/m².
type BodyMassIndexData struct {
	Base
	Value float64 `json:"value"`
}

func (BodyMassIndexData) DataType() DataType { return BodyMassIndex }

func (p BodyMassIndexData) Validate() error {
	return requireTimestamp(BodyMassIndex, p.Base)
}

// BloodPressureData is a blood pressure reading in mmHg.
type BloodPressureData struct {
	Base
	Systolic  int     `json:"systolic"`
	Diastolic int     `json:"diastolic"`
	Pulse     *int    `json:"pulse,omitempty"`
	BodyPose  *string `json:"bodyPosition,omitempty"`
}

func (BloodPressureData) DataType() DataType { return BloodPressure }

func (p BloodPressureData) Validate() error {
	if p.Systolic <= 0 || p.Diastolic <= 0 {
		return &ValidationError{DataType: BloodPressure, Field: "systolic/diastolic", Message: "are required"}
	}
	return requireTimestamp(BloodPressure, p.Base)
}

// SpecimenSource is where a glucose sample was taken from.
type SpecimenSource string

const (
	SpecimenCapillaryBlood    SpecimenSource = "capillary_blood"
	SpecimenInterstitialFluid SpecimenSource = "interstitial_fluid"
	SpecimenPlasma            SpecimenSource = "plasma"
	SpecimenSerum             SpecimenSource = "serum"
	SpecimenWholeBlood        SpecimenSource = "whole_blood"
)

// MealRelation places a glucose sample relative to a meal.
type MealRelation string

const (
	MealRelationFasting    MealRelation = "fasting"
	MealRelationBeforeMeal MealRelation = "before_meal"
	MealRelationAfterMeal  MealRelation = "after_meal"
	MealRelationGeneral    MealRelation = "general"
)

// GlucoseData is a blood glucose level in mmol/L.
type GlucoseData struct {
	Base
	Level          float64         `json:"level"`
	SpecimenSource *SpecimenSource `json:"specimenSource,omitempty"`
	MealRelation   *MealRelation   `json:"mealRelation,omitempty"`
}

func (GlucoseData) DataType() DataType { return BloodGlucose }

func (p GlucoseData) Validate() error {
	if p.Level <= 0 {
		return &ValidationError{DataType: BloodGlucose, Field: "level", Message: "must be positive"}
	}
	return requireTimestamp(BloodGlucose, p.Base)
}

// ToConventional returns the level in mg/dL.
func (p GlucoseData) ToConventional() float64 {
	return p.Level * MgPerDLPerMmolPerL
}

// OxygenSaturationData is an SpO2 percentage.
type OxygenSaturationData struct {
	Base
	Percentage         float64  `json:"percentage"`
	SupplementalOxygen *float64 `json:"supplementalOxygenLpm,omitempty"`
}

func (OxygenSaturationData) DataType() DataType { return OxygenSaturation }

func (p OxygenSaturationData) Validate() error {
	return requireTimestamp(OxygenSaturation, p.Base)
}

// RespiratoryRateData is a breathing rate in breaths per minute.
type RespiratoryRateData struct {
	Base
	BreathsPerMinute float64 `json:"breathsPerMinute"`
}

func (RespiratoryRateData) DataType() DataType { return RespiratoryRate }

func (p RespiratoryRateData) Validate() error {
	return requireTimestamp(RespiratoryRate, p.Base)
}

// BodyTemperatureData is a body temperature reading.
type BodyTemperatureData struct {
	Base
	Value               float64         `json:"value"`
	Unit                TemperatureUnit `json:"unit,omitempty"`
	MeasurementLocation *string         `json:"measurementLocation,omitempty"`
}

func (BodyTemperatureData) DataType() DataType { return BodyTemperature }

func (p BodyTemperatureData) Validate() error {
	return requireTimestamp(BodyTemperature, p.Base)
}

// SleepStageType classifies a sleep stage.
type SleepStageType string

const (
	SleepStageAwake   SleepStageType = "awake"
	SleepStageLight   SleepStageType = "light"
	SleepStageDeep    SleepStageType = "deep"
	SleepStageREM     SleepStageType = "rem"
	SleepStageInBed   SleepStageType = "in_bed"
	SleepStageUnknown SleepStageType = "unknown"
)

// SleepStage is one stage within a sleep session.
type SleepStage struct {
	Stage    SleepStageType `json:"stage"`
	Interval Interval       `json:"interval"`
}

// SleepData is a sleep session with its ordered stages.
type SleepData struct {
	Base
	Interval Interval     `json:"interval"`
	Stages   []SleepStage `json:"stages,omitempty"`
}

func (SleepData) DataType() DataType { return Sleep }

func (p SleepData) Validate() error {
	return requireInterval(Sleep, p.Base, p.Interval)
}

// NewSleepData creates a sleep session over iv, anchored at its start.
func NewSleepData(base Base, iv Interval, stages []SleepStage) SleepData {
	return SleepData{Base: anchored(base, iv), Interval: iv, Stages: stages}
}

// TimeIn returns the total time spent in stage.
func (p SleepData) TimeIn(stage SleepStageType) time.Duration {
	var total time.Duration
	for _, s := range p.Stages {
		if s.Stage == stage {
			total += s.Interval.Duration()
		}
	}
	return total
}

// HydrationData is a fluid intake.
type HydrationData struct {
	Base
	Volume   float64    `json:"volume"`
	Unit     VolumeUnit `json:"unit,omitempty"`
	Interval *Interval  `json:"interval,omitempty"`
}

func (HydrationData) DataType() DataType { return Hydration }

func (p HydrationData) Validate() error {
	return optionalInterval(Hydration, p.Base, p.Interval)
}

// MealType classifies a nutrition entry.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// NutritionData is a food intake entry. All nutrients are optional.
type NutritionData struct {
	Base
	Name         *string   `json:"name,omitempty"`
	MealType     *MealType `json:"mealType,omitempty"`
	Kilocalories *float64  `json:"kcal,omitempty"`
	ProteinGrams *float64  `json:"proteinG,omitempty"`
	CarbsGrams   *float64  `json:"carbsG,omitempty"`
	FatGrams     *float64  `json:"fatG,omitempty"`
	Interval     *Interval `json:"interval,omitempty"`
}

func (NutritionData) DataType() DataType { return Nutrition }

func (p NutritionData) Validate() error {
	return optionalInterval(Nutrition, p.Base, p.Interval)
}

// MindfulnessData is a mindfulness session.
type MindfulnessData struct {
	Base
	Interval Interval `json:"interval"`
}

func (MindfulnessData) DataType() DataType { return Mindfulness }

func (p MindfulnessData) Validate() error {
	return requireInterval(Mindfulness, p.Base, p.Interval)
}

// VO2MaxData is a cardio fitness estimate in mL/(kg·min).
type VO2MaxData struct {
	Base
	MlPerKgMin float64 `json:"mlPerKgMin"`
}

func (VO2MaxData) DataType() DataType { return VO2Max }

func (p VO2MaxData) Validate() error {
	return requireTimestamp(VO2Max, p.Base)
}

// SpeedData is an instantaneous speed in meters per second.
type SpeedData struct {
	Base
	MetersPerSecond float64 `json:"metersPerSecond"`
}

func (SpeedData) DataType() DataType { return Speed }

func (p SpeedData) Validate() error {
	return requireTimestamp(Speed, p.Base)
}

// PowerData is an instantaneous power output in watts.
type PowerData struct {
	Base
	Watts float64 `json:"watts"`
}

func (PowerData) DataType() DataType { return Power }

func (p PowerData) Validate() error {
	return requireTimestamp(Power, p.Base)
}
