package models

import "github.com/healthbridge/healthbridge/internal/healthdata"

// Capabilities lists every data type with the access the platform offers.
type Capabilities struct {
	Platform  healthdata.Platform `json:"platform"`
	DataTypes []CapabilityEntry   `json:"dataTypes"`
}

type CapabilityEntry struct {
	DataType healthdata.DataType `json:"dataType"`
	CanRead  bool                `json:"canRead"`
	CanWrite bool                `json:"canWrite"`
}

// NewCapabilities lists types in taxonomy order, including unsupported ones.
func NewCapabilities(platform healthdata.Platform, capability func(healthdata.DataType) healthdata.Capability) Capabilities {
	types := healthdata.AllDataTypes()
	out := Capabilities{Platform: platform, DataTypes: make([]CapabilityEntry, 0, len(types))}
	for _, dt := range types {
		c := capability(dt)
		out.DataTypes = append(out.DataTypes, CapabilityEntry{DataType: dt, CanRead: c.CanRead, CanWrite: c.CanWrite})
	}
	return out
}
