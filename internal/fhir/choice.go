package fhir

import (
	"encoding/json"
	"fmt"
)

// Value is one populated member of a FHIR choice-type field family such as
// value[x] or onset[x]. The set of implementations is closed.
type Value interface {
	Kind() ValueKind
	isValue()
}

// ValueKind names a choice-type member. It is usually also the suffix used
// on the wire, as in valueQuantity or onsetPeriod.
type ValueKind string

const (
	KindQuantity        ValueKind = "Quantity"
	KindCodeableConcept ValueKind = "CodeableConcept"
	KindString          ValueKind = "String"
	KindBoolean         ValueKind = "Boolean"
	KindInteger         ValueKind = "Integer"
	KindRange           ValueKind = "Range"
	KindRatio           ValueKind = "Ratio"
	KindSampledData     ValueKind = "SampledData"
	KindTime            ValueKind = "Time"
	KindDateTime        ValueKind = "DateTime"
	KindPeriod          ValueKind = "Period"
	KindReference       ValueKind = "Reference"
)

func (Quantity) Kind() ValueKind        { return KindQuantity }
func (CodeableConcept) Kind() ValueKind { return KindCodeableConcept }
func (String) Kind() ValueKind          { return KindString }
func (Boolean) Kind() ValueKind         { return KindBoolean }
func (Integer) Kind() ValueKind         { return KindInteger }
func (Range) Kind() ValueKind           { return KindRange }
func (Ratio) Kind() ValueKind           { return KindRatio }
func (SampledData) Kind() ValueKind     { return KindSampledData }
func (Time) Kind() ValueKind            { return KindTime }
func (DateTime) Kind() ValueKind        { return KindDateTime }
func (Period) Kind() ValueKind          { return KindPeriod }
func (Reference) Kind() ValueKind       { return KindReference }

func (Quantity) isValue()        {}
func (CodeableConcept) isValue() {}
func (String) isValue()          {}
func (Boolean) isValue()         {}
func (Integer) isValue()         {}
func (Range) isValue()           {}
func (Ratio) isValue()           {}
func (SampledData) isValue()     {}
func (Time) isValue()            {}
func (DateTime) isValue()        {}
func (Period) isValue()          {}
func (Reference) isValue()       {}

// member is one representative of a choice family and its wire suffix.
type member struct {
	kind   ValueKind
	suffix string
}

func m(k ValueKind) member { return member{kind: k, suffix: string(k)} }

// as maps a FHIR primitive specialization, such as positiveInt or Age, onto
// the kind it decodes to.
func as(k ValueKind, suffix string) member { return member{kind: k, suffix: suffix} }

// family is a prefix[x] field family with its members in resolution order.
type family struct {
	prefix  string
	members []member
}

func (f family) suffixFor(k ValueKind) string {
	for _, mb := range f.members {
		if mb.kind == k {
			return mb.suffix
		}
	}
	return string(k)
}

// observationValue is the value[x] family of Observation and its components.
var observationValue = family{prefix: "value", members: []member{
	m(KindQuantity),
	m(KindCodeableConcept),
	m(KindString),
	m(KindBoolean),
	m(KindInteger),
	m(KindRange),
	m(KindRatio),
	m(KindSampledData),
	m(KindTime),
	m(KindDateTime),
	m(KindPeriod),
}}

// MultipleChoiceError reports a choice-type family with more than one member
// populated. It is only returned under strict decoding.
type MultipleChoiceError struct {
	Field string
	Kinds []ValueKind
}

func (e *MultipleChoiceError) Error() string {
	return fmt.Sprintf("%s[x] has %d members populated: %v", e.Field, len(e.Kinds), e.Kinds)
}

type choiceField struct {
	family family
	dst    *Value
}

type namedValue struct {
	family family
	value  Value
}

// decodeChoice resolves family f from raw. When several members are present
// the first in resolution order wins.
func decodeChoice(raw map[string]json.RawMessage, f family) (Value, error) {
	for _, mb := range f.members {
		msg, ok := raw[f.prefix+mb.suffix]
		if !ok || string(msg) == "null" {
			continue
		}
		v, err := decodeValue(mb.kind, msg)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", f.prefix, mb.suffix, err)
		}
		return v, nil
	}
	return nil, nil
}

func decodeValue(k ValueKind, msg json.RawMessage) (Value, error) {
	switch k {
	case KindQuantity:
		return decodeAs[Quantity](msg)
	case KindCodeableConcept:
		return decodeAs[CodeableConcept](msg)
	case KindString:
		return decodeAs[String](msg)
	case KindBoolean:
		return decodeAs[Boolean](msg)
	case KindInteger:
		return decodeAs[Integer](msg)
	case KindRange:
		return decodeAs[Range](msg)
	case KindRatio:
		return decodeAs[Ratio](msg)
	case KindSampledData:
		return decodeAs[SampledData](msg)
	case KindTime:
		return decodeAs[Time](msg)
	case KindDateTime:
		return decodeAs[DateTime](msg)
	case KindPeriod:
		return decodeAs[Period](msg)
	case KindReference:
		return decodeAs[Reference](msg)
	}
	return nil, fmt.Errorf("unsupported choice kind %q", k)
}

func decodeAs[T any](msg []byte) (T, error) {
	var v T
	err := json.Unmarshal(msg, &v)
	return v, err
}

// unmarshalWithChoices decodes data into v, which must be a pointer to an
// alias type without custom unmarshalling, then resolves each choice field.
func unmarshalWithChoices(data []byte, v any, fields ...choiceField) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, f := range fields {
		val, err := decodeChoice(raw, f.family)
		if err != nil {
			return err
		}
		*f.dst = val
	}
	return nil
}

// marshalWithChoices encodes v, which must be an alias type without custom
// marshalling, and adds the resourceType tag and each populated choice.
func marshalWithChoices(resourceType string, v any, values ...namedValue) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if resourceType != "" {
		out["resourceType"], _ = json.Marshal(resourceType)
	}
	for _, nv := range values {
		if nv.value == nil {
			continue
		}
		enc, err := json.Marshal(nv.value)
		if err != nil {
			return nil, err
		}
		out[nv.family.prefix+nv.family.suffixFor(nv.value.Kind())] = enc
	}
	return json.Marshal(out)
}

// populatedKinds lists the kind of every member of f present in raw.
func populatedKinds(raw map[string]json.RawMessage, f family) []ValueKind {
	var found []ValueKind
	for _, mb := range f.members {
		if msg, ok := raw[f.prefix+mb.suffix]; ok && string(msg) != "null" {
			found = append(found, mb.kind)
		}
	}
	return found
}
