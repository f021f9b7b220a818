package fhir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Integer is a FHIR integer that also accepts a quoted number.
type Integer int64

// UnmarshalJSON implements json.Unmarshaler.
func (i *Integer) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "null" || s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("integer: %w", err)
	}
	*i = Integer(n)
	return nil
}

// Int returns i as an int.
func (i Integer) Int() int { return int(i) }

// Boolean is a FHIR boolean that also accepts "true" and "false" strings.
type Boolean bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Boolean) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "null" || s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("boolean: %w", err)
	}
	*b = Boolean(v)
	return nil
}

// String is a FHIR string.
type String string

// UnmarshalJSON implements json.Unmarshaler. Bare numbers and booleans are
// accepted and kept in their JSON text form.
func (s *String) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = String(v)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	if !json.Valid(data) || data[0] == '{' || data[0] == '[' {
		return fmt.Errorf("string: unexpected %s", data)
	}
	*s = String(data)
	return nil
}

// DateTime is a FHIR date, dateTime or instant, kept in its wire form since
// FHIR allows partial dates such as "2021" or "2021-03".
type DateTime string

// UnmarshalJSON implements json.Unmarshaler. A bare number such as 20210101
// is accepted and kept in its JSON text form.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s String
	if err := s.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("dateTime: %w", err)
	}
	*d = DateTime(s)
	return nil
}

// Time is a FHIR time of day, such as "14:30:00".
type Time string
