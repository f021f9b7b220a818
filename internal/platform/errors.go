package platform

import (
	"fmt"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// CapabilityMismatchError reports an operation on a data type the platform
// does not support for that access.
type CapabilityMismatchError struct {
	DataType healthdata.DataType
	Platform healthdata.Platform
	Access   healthdata.AccessType
}

func (e *CapabilityMismatchError) Error() string {
	return fmt.Sprintf("%s does not support %s access to %s", e.Platform, e.Access, e.DataType)
}

// PermissionDeniedError reports an operation attempted without a granted
// permission.
type PermissionDeniedError struct {
	Permission healthdata.Permission
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission %s not granted", e.Permission)
}

// AdapterError is a failure surfaced from the native adapter.
type AdapterError struct {
	Operation string
	Platform  healthdata.Platform
	DataType  healthdata.DataType
	Cause     error
}

func (e *AdapterError) Error() string {
	if e.DataType != "" {
		return fmt.Sprintf("%s %s on %s: %v", e.Operation, e.DataType, e.Platform, e.Cause)
	}
	return fmt.Sprintf("%s on %s: %v", e.Operation, e.Platform, e.Cause)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}
