package fhir

import (
	"errors"
	"fmt"
)

// Resource type names handled by the parser.
const (
	TypeImmunization        = "Immunization"
	TypeMedicationStatement = "MedicationStatement"
	TypeMedicationRequest   = "MedicationRequest"
	TypeAllergyIntolerance  = "AllergyIntolerance"
	TypeCondition           = "Condition"
	TypeObservation         = "Observation"
	TypeProcedure           = "Procedure"
)

// ErrMissingField is wrapped by decode failures caused by an absent required
// field.
var ErrMissingField = errors.New("missing required field")

// Resource is a decoded clinical resource. The set of implementations is
// closed: Immunization, MedicationStatement, MedicationRequest,
// AllergyIntolerance, Condition, Observation and Procedure.
type Resource interface {
	ResourceType() string
	ResourceID() string
	validate() error
}

// DomainResource holds the fields shared by every resource.
type DomainResource struct {
	ID         string       `json:"id,omitempty"`
	Meta       *Meta        `json:"meta,omitempty"`
	Identifier []Identifier `json:"identifier,omitempty"`
}

// ResourceID returns the logical id.
func (r DomainResource) ResourceID() string { return r.ID }

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// Performer is an actor involved in an event, with their role.
type Performer struct {
	Function *CodeableConcept `json:"function,omitempty"`
	Actor    Reference        `json:"actor"`
}

// Immunization records a vaccine administration.
type Immunization struct {
	DomainResource
	Status          string                        `json:"status"`
	StatusReason    *CodeableConcept              `json:"statusReason,omitempty"`
	VaccineCode     CodeableConcept               `json:"vaccineCode"`
	Patient         Reference                     `json:"patient"`
	Encounter       *Reference                    `json:"encounter,omitempty"`
	Occurrence      Value                         `json:"-"`
	Recorded        DateTime                      `json:"recorded,omitempty"`
	PrimarySource   *Boolean                      `json:"primarySource,omitempty"`
	Manufacturer    *Reference                    `json:"manufacturer,omitempty"`
	LotNumber       String                        `json:"lotNumber,omitempty"`
	ExpirationDate  DateTime                      `json:"expirationDate,omitempty"`
	Site            *CodeableConcept              `json:"site,omitempty"`
	Route           *CodeableConcept              `json:"route,omitempty"`
	DoseQuantity    *Quantity                     `json:"doseQuantity,omitempty"`
	Performer       []Performer                   `json:"performer,omitempty"`
	Note            []Annotation                  `json:"note,omitempty"`
	ReasonCode      []CodeableConcept             `json:"reasonCode,omitempty"`
	IsSubpotent     *Boolean                      `json:"isSubpotent,omitempty"`
	ProtocolApplied []ImmunizationProtocolApplied `json:"protocolApplied,omitempty"`
}

// ImmunizationProtocolApplied is the dose within a series.
type ImmunizationProtocolApplied struct {
	Series        string            `json:"series,omitempty"`
	Authority     *Reference        `json:"authority,omitempty"`
	TargetDisease []CodeableConcept `json:"targetDisease,omitempty"`
	DoseNumber    Value             `json:"-"`
	SeriesDoses   Value             `json:"-"`
}

var (
	occurrence  = family{prefix: "occurrence", members: []member{m(KindDateTime), m(KindString)}}
	doseNumber  = family{prefix: "doseNumber", members: []member{as(KindInteger, "PositiveInt"), m(KindString)}}
	seriesDoses = family{prefix: "seriesDoses", members: []member{as(KindInteger, "PositiveInt"), m(KindString)}}
)

func (*Immunization) ResourceType() string { return TypeImmunization }

func (r *Immunization) validate() error {
	switch {
	case r.Status == "":
		return missing("status")
	case r.VaccineCode.IsZero():
		return missing("vaccineCode")
	case r.Patient.IsZero():
		return missing("patient")
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Immunization) UnmarshalJSON(data []byte) error {
	type alias Immunization
	return unmarshalWithChoices(data, (*alias)(r), choiceField{occurrence, &r.Occurrence})
}

// MarshalJSON implements json.Marshaler.
func (r Immunization) MarshalJSON() ([]byte, error) {
	type alias Immunization
	return marshalWithChoices(TypeImmunization, alias(r), namedValue{occurrence, r.Occurrence})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ImmunizationProtocolApplied) UnmarshalJSON(data []byte) error {
	type alias ImmunizationProtocolApplied
	return unmarshalWithChoices(data, (*alias)(p),
		choiceField{doseNumber, &p.DoseNumber},
		choiceField{seriesDoses, &p.SeriesDoses},
	)
}

// MarshalJSON implements json.Marshaler.
func (p ImmunizationProtocolApplied) MarshalJSON() ([]byte, error) {
	type alias ImmunizationProtocolApplied
	return marshalWithChoices("", alias(p),
		namedValue{doseNumber, p.DoseNumber},
		namedValue{seriesDoses, p.SeriesDoses},
	)
}

// medication is medication[x]: a coded concept or a reference to a
// Medication resource.
var medication = family{prefix: "medication", members: []member{m(KindCodeableConcept), m(KindReference)}}

// MedicationStatement records a medication being taken.
type MedicationStatement struct {
	DomainResource
	Status            string            `json:"status"`
	StatusReason      []CodeableConcept `json:"statusReason,omitempty"`
	Category          *CodeableConcept  `json:"category,omitempty"`
	Medication        Value             `json:"-"`
	Subject           Reference         `json:"subject"`
	Context           *Reference        `json:"context,omitempty"`
	Effective         Value             `json:"-"`
	DateAsserted      DateTime          `json:"dateAsserted,omitempty"`
	InformationSource *Reference        `json:"informationSource,omitempty"`
	ReasonCode        []CodeableConcept `json:"reasonCode,omitempty"`
	Note              []Annotation      `json:"note,omitempty"`
	Dosage            []Dosage          `json:"dosage,omitempty"`
}

var effective = family{prefix: "effective", members: []member{m(KindDateTime), m(KindPeriod)}}

func (*MedicationStatement) ResourceType() string { return TypeMedicationStatement }

func (r *MedicationStatement) validate() error {
	switch {
	case r.Status == "":
		return missing("status")
	case r.Medication == nil:
		return missing("medication[x]")
	case r.Subject.IsZero():
		return missing("subject")
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *MedicationStatement) UnmarshalJSON(data []byte) error {
	type alias MedicationStatement
	return unmarshalWithChoices(data, (*alias)(r),
		choiceField{medication, &r.Medication},
		choiceField{effective, &r.Effective},
	)
}

// MarshalJSON implements json.Marshaler.
func (r MedicationStatement) MarshalJSON() ([]byte, error) {
	type alias MedicationStatement
	return marshalWithChoices(TypeMedicationStatement, alias(r),
		namedValue{medication, r.Medication},
		namedValue{effective, r.Effective},
	)
}

// MedicationRequest is an order or prescription for a medication.
type MedicationRequest struct {
	DomainResource
	Status            string            `json:"status"`
	Intent            string            `json:"intent"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Priority          string            `json:"priority,omitempty"`
	Medication        Value             `json:"-"`
	Subject           Reference         `json:"subject"`
	Encounter         *Reference        `json:"encounter,omitempty"`
	AuthoredOn        DateTime          `json:"authoredOn,omitempty"`
	Requester         *Reference        `json:"requester,omitempty"`
	ReasonCode        []CodeableConcept `json:"reasonCode,omitempty"`
	Note              []Annotation      `json:"note,omitempty"`
	DosageInstruction []Dosage          `json:"dosageInstruction,omitempty"`
}

func (*MedicationRequest) ResourceType() string { return TypeMedicationRequest }

func (r *MedicationRequest) validate() error {
	switch {
	case r.Status == "":
		return missing("status")
	case r.Intent == "":
		return missing("intent")
	case r.Medication == nil:
		return missing("medication[x]")
	case r.Subject.IsZero():
		return missing("subject")
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *MedicationRequest) UnmarshalJSON(data []byte) error {
	type alias MedicationRequest
	return unmarshalWithChoices(data, (*alias)(r), choiceField{medication, &r.Medication})
}

// MarshalJSON implements json.Marshaler.
func (r MedicationRequest) MarshalJSON() ([]byte, error) {
	type alias MedicationRequest
	return marshalWithChoices(TypeMedicationRequest, alias(r), namedValue{medication, r.Medication})
}

// AllergyIntolerance records a propensity to an adverse reaction.
type AllergyIntolerance struct {
	DomainResource
	ClinicalStatus     *CodeableConcept  `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept  `json:"verificationStatus,omitempty"`
	Type               string            `json:"type,omitempty"`
	Category           []string          `json:"category,omitempty"`
	Criticality        string            `json:"criticality,omitempty"`
	Code               *CodeableConcept  `json:"code,omitempty"`
	Patient            Reference         `json:"patient"`
	Encounter          *Reference        `json:"encounter,omitempty"`
	Onset              Value             `json:"-"`
	RecordedDate       DateTime          `json:"recordedDate,omitempty"`
	Recorder           *Reference        `json:"recorder,omitempty"`
	LastOccurrence     DateTime          `json:"lastOccurrence,omitempty"`
	Note               []Annotation      `json:"note,omitempty"`
	Reaction           []AllergyReaction `json:"reaction,omitempty"`
}

// AllergyReaction is one adverse reaction event.
type AllergyReaction struct {
	Substance     *CodeableConcept  `json:"substance,omitempty"`
	Manifestation []CodeableConcept `json:"manifestation"`
	Description   string            `json:"description,omitempty"`
	Onset         DateTime          `json:"onset,omitempty"`
	Severity      string            `json:"severity,omitempty"`
}

var (
	onset = family{prefix: "onset", members: []member{
		m(KindDateTime), as(KindQuantity, "Age"), m(KindPeriod), m(KindRange), m(KindString),
	}}
	abatement = family{prefix: "abatement", members: []member{
		m(KindDateTime), as(KindQuantity, "Age"), m(KindPeriod), m(KindRange), m(KindString),
	}}
)

func (*AllergyIntolerance) ResourceType() string { return TypeAllergyIntolerance }

func (r *AllergyIntolerance) validate() error {
	if r.Patient.IsZero() {
		return missing("patient")
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *AllergyIntolerance) UnmarshalJSON(data []byte) error {
	type alias AllergyIntolerance
	return unmarshalWithChoices(data, (*alias)(r), choiceField{onset, &r.Onset})
}

// MarshalJSON implements json.Marshaler.
func (r AllergyIntolerance) MarshalJSON() ([]byte, error) {
	type alias AllergyIntolerance
	return marshalWithChoices(TypeAllergyIntolerance, alias(r), namedValue{onset, r.Onset})
}

// Condition records a problem, diagnosis or other clinical concern.
type Condition struct {
	DomainResource
	ClinicalStatus     *CodeableConcept  `json:"clinicalStatus,omitempty"`
	VerificationStatus *CodeableConcept  `json:"verificationStatus,omitempty"`
	Category           []CodeableConcept `json:"category,omitempty"`
	Severity           *CodeableConcept  `json:"severity,omitempty"`
	Code               *CodeableConcept  `json:"code,omitempty"`
	BodySite           []CodeableConcept `json:"bodySite,omitempty"`
	Subject            Reference         `json:"subject"`
	Encounter          *Reference        `json:"encounter,omitempty"`
	Onset              Value             `json:"-"`
	Abatement          Value             `json:"-"`
	RecordedDate       DateTime          `json:"recordedDate,omitempty"`
	Recorder           *Reference        `json:"recorder,omitempty"`
	Note               []Annotation      `json:"note,omitempty"`
}

func (*Condition) ResourceType() string { return TypeCondition }

func (r *Condition) validate() error {
	if r.Subject.IsZero() {
		return missing("subject")
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Condition) UnmarshalJSON(data []byte) error {
	type alias Condition
	return unmarshalWithChoices(data, (*alias)(r),
		choiceField{onset, &r.Onset},
		choiceField{abatement, &r.Abatement},
	)
}

// MarshalJSON implements json.Marshaler.
func (r Condition) MarshalJSON() ([]byte, error) {
	type alias Condition
	return marshalWithChoices(TypeCondition, alias(r),
		namedValue{onset, r.Onset},
		namedValue{abatement, r.Abatement},
	)
}

// Observation is a measurement or simple assertion about a subject.
type Observation struct {
	DomainResource
	Status           string                      `json:"status"`
	Category         []CodeableConcept           `json:"category,omitempty"`
	Code             CodeableConcept             `json:"code"`
	Subject          *Reference                  `json:"subject,omitempty"`
	Encounter        *Reference                  `json:"encounter,omitempty"`
	Effective        Value                       `json:"-"`
	Issued           DateTime                    `json:"issued,omitempty"`
	Performer        []Reference                 `json:"performer,omitempty"`
	Value            Value                       `json:"-"`
	DataAbsentReason *CodeableConcept            `json:"dataAbsentReason,omitempty"`
	Interpretation   []CodeableConcept           `json:"interpretation,omitempty"`
	Note             []Annotation                `json:"note,omitempty"`
	BodySite         *CodeableConcept            `json:"bodySite,omitempty"`
	Method           *CodeableConcept            `json:"method,omitempty"`
	Device           *Reference                  `json:"device,omitempty"`
	ReferenceRange   []ObservationReferenceRange `json:"referenceRange,omitempty"`
	Component        []ObservationComponent      `json:"component,omitempty"`
}

// ObservationReferenceRange is a normal or recommended range for a value.
type ObservationReferenceRange struct {
	Low       *Quantity         `json:"low,omitempty"`
	High      *Quantity         `json:"high,omitempty"`
	Type      *CodeableConcept  `json:"type,omitempty"`
	AppliesTo []CodeableConcept `json:"appliesTo,omitempty"`
	Age       *Range            `json:"age,omitempty"`
	Text      string            `json:"text,omitempty"`
}

// ObservationComponent is one part of a multi-part observation, such as the
// systolic reading of a blood pressure.
type ObservationComponent struct {
	Code             CodeableConcept   `json:"code"`
	Value            Value             `json:"-"`
	DataAbsentReason *CodeableConcept  `json:"dataAbsentReason,omitempty"`
	Interpretation   []CodeableConcept `json:"interpretation,omitempty"`
}

var observationEffective = family{prefix: "effective", members: []member{
	m(KindDateTime), m(KindPeriod), as(KindDateTime, "Instant"),
}}

func (*Observation) ResourceType() string { return TypeObservation }

func (r *Observation) validate() error {
	switch {
	case r.Status == "":
		return missing("status")
	case r.Code.IsZero():
		return missing("code")
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Observation) UnmarshalJSON(data []byte) error {
	type alias Observation
	return unmarshalWithChoices(data, (*alias)(r),
		choiceField{observationEffective, &r.Effective},
		choiceField{observationValue, &r.Value},
	)
}

// MarshalJSON implements json.Marshaler.
func (r Observation) MarshalJSON() ([]byte, error) {
	type alias Observation
	return marshalWithChoices(TypeObservation, alias(r),
		namedValue{observationEffective, r.Effective},
		namedValue{observationValue, r.Value},
	)
}

// ComponentByCode returns the first component coded with system and code.
func (r *Observation) ComponentByCode(system, code string) (ObservationComponent, bool) {
	for _, c := range r.Component {
		if c.Code.HasCode(system, code) {
			return c, true
		}
	}
	return ObservationComponent{}, false
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ObservationComponent) UnmarshalJSON(data []byte) error {
	type alias ObservationComponent
	return unmarshalWithChoices(data, (*alias)(c), choiceField{observationValue, &c.Value})
}

// MarshalJSON implements json.Marshaler.
func (c ObservationComponent) MarshalJSON() ([]byte, error) {
	type alias ObservationComponent
	return marshalWithChoices("", alias(c), namedValue{observationValue, c.Value})
}

// Procedure records an action performed on or for a patient.
type Procedure struct {
	DomainResource
	Status       string            `json:"status"`
	StatusReason *CodeableConcept  `json:"statusReason,omitempty"`
	Category     *CodeableConcept  `json:"category,omitempty"`
	Code         *CodeableConcept  `json:"code,omitempty"`
	Subject      Reference         `json:"subject"`
	Encounter    *Reference        `json:"encounter,omitempty"`
	Performed    Value             `json:"-"`
	Recorder     *Reference        `json:"recorder,omitempty"`
	Performer    []Performer       `json:"performer,omitempty"`
	ReasonCode   []CodeableConcept `json:"reasonCode,omitempty"`
	BodySite     []CodeableConcept `json:"bodySite,omitempty"`
	Outcome      *CodeableConcept  `json:"outcome,omitempty"`
	Note         []Annotation      `json:"note,omitempty"`
}

var performed = family{prefix: "performed", members: []member{
	m(KindDateTime), m(KindPeriod), m(KindString), as(KindQuantity, "Age"), m(KindRange),
}}

func (*Procedure) ResourceType() string { return TypeProcedure }

func (r *Procedure) validate() error {
	switch {
	case r.Status == "":
		return missing("status")
	case r.Subject.IsZero():
		return missing("subject")
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Procedure) UnmarshalJSON(data []byte) error {
	type alias Procedure
	return unmarshalWithChoices(data, (*alias)(r), choiceField{performed, &r.Performed})
}

// MarshalJSON implements json.Marshaler.
func (r Procedure) MarshalJSON() ([]byte, error) {
	type alias Procedure
	return marshalWithChoices(TypeProcedure, alias(r), namedValue{performed, r.Performed})
}

// topLevelChoices lists the choice families checked under strict decoding.
var topLevelChoices = map[string][]family{
	TypeImmunization:        {occurrence},
	TypeMedicationStatement: {medication, effective},
	TypeMedicationRequest:   {medication},
	TypeAllergyIntolerance:  {onset},
	TypeCondition:           {onset, abatement},
	TypeObservation:         {observationEffective, observationValue},
	TypeProcedure:           {performed},
}
