// Package fhir decodes clinical FHIR R4 resources from untyped JSON
// documents into a closed set of typed resources.
package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"unicode/utf8"

	"github.com/buger/jsonparser"
)

// PreviewLimit is the maximum number of characters of input kept on a
// ParseError.
const PreviewLimit = 200

// ParseError reports a document whose resourceType was recognized but which
// could not be decoded into that resource.
type ParseError struct {
	ResourceType string
	Message      string
	Preview      string
	Cause        error
}

func (e *ParseError) Error() string {
	if e.ResourceType == "" {
		return fmt.Sprintf("parse fhir document: %s", e.Message)
	}
	return fmt.Sprintf("parse %s: %s", e.ResourceType, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func newParseError(resourceType string, doc []byte, cause error) *ParseError {
	return &ParseError{
		ResourceType: resourceType,
		Message:      cause.Error(),
		Preview:      preview(doc),
		Cause:        cause,
	}
}

func preview(doc []byte) string {
	if utf8.RuneCount(doc) <= PreviewLimit {
		return string(doc)
	}
	runes := []rune(string(doc))
	return string(runes[:PreviewLimit])
}

// DetectResourceType returns the top-level resourceType of doc. It reports
// false for malformed documents and documents without a string resourceType.
func DetectResourceType(doc []byte) (string, bool) {
	if !json.Valid(doc) {
		return "", false
	}
	rt, err := jsonparser.GetString(doc, "resourceType")
	if err != nil || rt == "" {
		return "", false
	}
	return rt, true
}

// decoders is the dispatch table from resourceType to variant decoder.
var decoders = map[string]func([]byte) (Resource, error){
	TypeImmunization:        decodeResource[Immunization],
	TypeMedicationStatement: decodeResource[MedicationStatement],
	TypeMedicationRequest:   decodeResource[MedicationRequest],
	TypeAllergyIntolerance:  decodeResource[AllergyIntolerance],
	TypeCondition:           decodeResource[Condition],
	TypeObservation:         decodeResource[Observation],
	TypeProcedure:           decodeResource[Procedure],
}

// resourcePtr constrains T so that *T is a Resource.
type resourcePtr[T any] interface {
	*T
	Resource
}

func decodeResource[T any, P resourcePtr[T]](doc []byte) (Resource, error) {
	var v T
	p := P(&v)
	if err := json.Unmarshal(doc, p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// SupportedResourceTypes returns the resource types the parser decodes.
func SupportedResourceTypes() []string {
	return []string{
		TypeImmunization,
		TypeMedicationStatement,
		TypeMedicationRequest,
		TypeAllergyIntolerance,
		TypeCondition,
		TypeObservation,
		TypeProcedure,
	}
}

// ParseResource decodes doc into its resource variant. It returns nil and no
// error when the document has no resourceType or one the parser does not
// handle. Malformed JSON, type mismatches and missing required fields are
// reported as a *ParseError.
func ParseResource(doc []byte) (Resource, error) {
	return parse(doc, false)
}

// ParseResourceStrict is ParseResource but also rejects documents with more
// than one member of a top-level choice-type family populated.
func ParseResourceStrict(doc []byte) (Resource, error) {
	return parse(doc, true)
}

func parse(doc []byte, strict bool) (Resource, error) {
	if !json.Valid(doc) {
		return nil, newParseError("", doc, errors.New("malformed JSON"))
	}
	rt, ok := DetectResourceType(doc)
	if !ok {
		return nil, nil
	}
	decode, ok := decoders[rt]
	if !ok {
		return nil, nil
	}
	if strict {
		if err := checkChoices(rt, doc); err != nil {
			return nil, newParseError(rt, doc, err)
		}
	}
	r, err := decode(doc)
	if err != nil {
		return nil, newParseError(rt, doc, err)
	}
	return r, nil
}

func checkChoices(rt string, doc []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return err
	}
	for _, fam := range topLevelChoices[rt] {
		if kinds := populatedKinds(raw, fam); len(kinds) > 1 {
			return &MultipleChoiceError{Field: fam.prefix, Kinds: kinds}
		}
	}
	return nil
}

// Result is the outcome of parsing one document of a batch.
type Result struct {
	Index    int
	Resource Resource
	Err      error
}

// Results lazily parses docs in order. Documents that parse to no resource
// are skipped; failures are yielded with Err set. The sequence is single
// pass: iteration stops as soon as the consumer stops.
func Results(docs [][]byte) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for i, doc := range docs {
			r, err := ParseResource(doc)
			if r == nil && err == nil {
				continue
			}
			if !yield(Result{Index: i, Resource: r, Err: err}) {
				return
			}
		}
	}
}

// ParseOption configures ParseResources.
type ParseOption func(*parseOptions)

type parseOptions struct {
	errorSink func(index int, err error)
}

// WithErrorSink registers fn to receive per-document failures that
// ParseResources otherwise drops.
func WithErrorSink(fn func(index int, err error)) ParseOption {
	return func(o *parseOptions) {
		o.errorSink = fn
	}
}

// ParseResources parses every document and returns the successfully decoded
// resources in input order. A failing document never aborts the batch.
func ParseResources(docs [][]byte, opts ...ParseOption) []Resource {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]Resource, 0, len(docs))
	for res := range Results(docs) {
		if res.Err != nil {
			if o.errorSink != nil {
				o.errorSink(res.Index, res.Err)
			}
			continue
		}
		out = append(out, res.Resource)
	}
	return out
}
