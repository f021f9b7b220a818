package fhir

import (
	"github.com/shopspring/decimal"
)

// Coding is a code defined by a terminology system.
type Coding struct {
	System       string   `json:"system,omitempty"`
	Version      string   `json:"version,omitempty"`
	Code         string   `json:"code,omitempty"`
	Display      string   `json:"display,omitempty"`
	UserSelected *Boolean `json:"userSelected,omitempty"`
}

// CodeableConcept is a set of codings plus free text.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// IsZero reports whether the concept carries neither codings nor text.
func (c CodeableConcept) IsZero() bool {
	return len(c.Coding) == 0 && c.Text == ""
}

// HasCode reports whether any coding matches system and code.
func (c CodeableConcept) HasCode(system, code string) bool {
	for _, cd := range c.Coding {
		if cd.System == system && cd.Code == code {
			return true
		}
	}
	return false
}

// Reference points at another resource.
type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

// IsZero reports whether the reference identifies nothing.
func (r Reference) IsZero() bool {
	return r.Reference == "" && r.Identifier == nil && r.Display == ""
}

// Identifier is a business identifier.
type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
	Period *Period          `json:"period,omitempty"`
}

// Quantity is a measured amount. Value accepts numbers and numeric strings.
type Quantity struct {
	Value      *decimal.Decimal `json:"value,omitempty"`
	Comparator string           `json:"comparator,omitempty"`
	Unit       string           `json:"unit,omitempty"`
	System     string           `json:"system,omitempty"`
	Code       string           `json:"code,omitempty"`
}

// Range is a set of ordered quantities.
type Range struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

// Ratio is a relationship between two quantities.
type Ratio struct {
	Numerator   *Quantity `json:"numerator,omitempty"`
	Denominator *Quantity `json:"denominator,omitempty"`
}

// Period is a time range with an optional open end.
type Period struct {
	Start DateTime `json:"start,omitempty"`
	End   DateTime `json:"end,omitempty"`
}

// SampledData is a series of measurements taken by a device.
type SampledData struct {
	Origin     Quantity         `json:"origin"`
	Period     decimal.Decimal  `json:"period"`
	Factor     *decimal.Decimal `json:"factor,omitempty"`
	LowerLimit *decimal.Decimal `json:"lowerLimit,omitempty"`
	UpperLimit *decimal.Decimal `json:"upperLimit,omitempty"`
	Dimensions Integer          `json:"dimensions"`
	Data       string           `json:"data,omitempty"`
}

// Annotation is a text note with its author.
type Annotation struct {
	AuthorReference *Reference `json:"authorReference,omitempty"`
	AuthorString    string     `json:"authorString,omitempty"`
	Time            DateTime   `json:"time,omitempty"`
	Text            string     `json:"text"`
}

// Meta is resource metadata.
type Meta struct {
	VersionID   string   `json:"versionId,omitempty"`
	LastUpdated DateTime `json:"lastUpdated,omitempty"`
	Source      string   `json:"source,omitempty"`
	Profile     []string `json:"profile,omitempty"`
	Security    []Coding `json:"security,omitempty"`
	Tag         []Coding `json:"tag,omitempty"`
}

// Timing describes when an event is to occur.
type Timing struct {
	Event  []DateTime       `json:"event,omitempty"`
	Repeat *TimingRepeat    `json:"repeat,omitempty"`
	Code   *CodeableConcept `json:"code,omitempty"`
}

// TimingRepeat is the repeating part of a Timing.
type TimingRepeat struct {
	Count        *Integer         `json:"count,omitempty"`
	Duration     *decimal.Decimal `json:"duration,omitempty"`
	DurationUnit string           `json:"durationUnit,omitempty"`
	Frequency    *Integer         `json:"frequency,omitempty"`
	FrequencyMax *Integer         `json:"frequencyMax,omitempty"`
	Period       *decimal.Decimal `json:"period,omitempty"`
	PeriodUnit   string           `json:"periodUnit,omitempty"`
	DayOfWeek    []string         `json:"dayOfWeek,omitempty"`
	TimeOfDay    []Time           `json:"timeOfDay,omitempty"`
	When         []string         `json:"when,omitempty"`
	Offset       *Integer         `json:"offset,omitempty"`
}

// Dosage is how a medication is or should be taken.
type Dosage struct {
	Sequence           *Integer         `json:"sequence,omitempty"`
	Text               string           `json:"text,omitempty"`
	PatientInstruction string           `json:"patientInstruction,omitempty"`
	Timing             *Timing          `json:"timing,omitempty"`
	AsNeeded           Value            `json:"-"`
	Site               *CodeableConcept `json:"site,omitempty"`
	Route              *CodeableConcept `json:"route,omitempty"`
	Method             *CodeableConcept `json:"method,omitempty"`
	DoseAndRate        []DoseAndRate    `json:"doseAndRate,omitempty"`
}

var asNeeded = family{prefix: "asNeeded", members: []member{m(KindBoolean), m(KindCodeableConcept)}}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dosage) UnmarshalJSON(data []byte) error {
	type alias Dosage
	return unmarshalWithChoices(data, (*alias)(d), choiceField{asNeeded, &d.AsNeeded})
}

// MarshalJSON implements json.Marshaler.
func (d Dosage) MarshalJSON() ([]byte, error) {
	type alias Dosage
	return marshalWithChoices("", alias(d), namedValue{asNeeded, d.AsNeeded})
}

// DoseAndRate is the amount of medication per dose and its rate.
type DoseAndRate struct {
	Type *CodeableConcept `json:"type,omitempty"`
	Dose Value            `json:"-"`
	Rate Value            `json:"-"`
}

var (
	dose = family{prefix: "dose", members: []member{m(KindRange), m(KindQuantity)}}
	rate = family{prefix: "rate", members: []member{m(KindRatio), m(KindRange), m(KindQuantity)}}
)

// UnmarshalJSON implements json.Unmarshaler.
func (d *DoseAndRate) UnmarshalJSON(data []byte) error {
	type alias DoseAndRate
	return unmarshalWithChoices(data, (*alias)(d),
		choiceField{dose, &d.Dose},
		choiceField{rate, &d.Rate},
	)
}

// MarshalJSON implements json.Marshaler.
func (d DoseAndRate) MarshalJSON() ([]byte, error) {
	type alias DoseAndRate
	return marshalWithChoices("", alias(d), namedValue{dose, d.Dose}, namedValue{rate, d.Rate})
}
