package models

import (
	"fmt"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// PermissionRequest names permissions explicitly, by data type, or both.
// Data types expand to every access the platform supports for them.
type PermissionRequest struct {
	Permissions []healthdata.Permission `json:"permissions,omitempty"`
	DataTypes   []healthdata.DataType   `json:"dataTypes,omitempty"`
}

// Validate reports unknown data types and access values.
func (r PermissionRequest) Validate() []FieldError {
	var errs []FieldError
	for i, p := range r.Permissions {
		if !p.DataType.IsValid() {
			errs = append(errs, FieldError{Field: fmt.Sprintf("permissions[%d].dataType", i), Message: "unknown data type", Code: "UNKNOWN"})
		}
		if p.Access != healthdata.AccessRead && p.Access != healthdata.AccessWrite {
			errs = append(errs, FieldError{Field: fmt.Sprintf("permissions[%d].access", i), Message: "must be READ or WRITE", Code: "INVALID"})
		}
	}
	for i, dt := range r.DataTypes {
		if !dt.IsValid() {
			errs = append(errs, FieldError{Field: fmt.Sprintf("dataTypes[%d]", i), Message: "unknown data type", Code: "UNKNOWN"})
		}
	}
	if len(r.Permissions) == 0 && len(r.DataTypes) == 0 {
		errs = append(errs, FieldError{Field: "permissions", Message: "permissions or dataTypes is required", Code: "REQUIRED"})
	}
	return errs
}

// PermissionResult is the granted/denied partition of a request.
type PermissionResult struct {
	Granted    []healthdata.Permission `json:"granted"`
	Denied     []healthdata.Permission `json:"denied"`
	AllGranted bool                    `json:"allGranted"`
}

func NewPermissionResult(r healthdata.PermissionResult) PermissionResult {
	return PermissionResult{
		Granted:    nonNil(r.Granted.Slice()),
		Denied:     nonNil(r.Denied.Slice()),
		AllGranted: r.AllGranted(),
	}
}

// PermissionState is what the service currently knows to be granted.
type PermissionState struct {
	Platform healthdata.Platform     `json:"platform"`
	Granted  []healthdata.Permission `json:"granted"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func NewPermissionState(platform healthdata.Platform, granted healthdata.PermissionSet) PermissionState {
	return PermissionState{Platform: platform, Granted: nonNil(granted.Slice())}
}
