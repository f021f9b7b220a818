package healthdata

// Capability describes whether a platform can read and/or write a data type.
type Capability struct {
	CanRead  bool `json:"canRead"`
	CanWrite bool `json:"canWrite"`
}

// Supported reports whether any access is available.
func (c Capability) Supported() bool {
	return c.CanRead || c.CanWrite
}

var (
	readWrite = Capability{CanRead: true, CanWrite: true}
	readOnly  = Capability{CanRead: true}
)

// capabilityTable is the static platform lookup. A missing entry means the
// data type is unsupported on that platform.
var capabilityTable = map[Platform]map[DataType]Capability{
	PlatformHealthKit: {
		HeartRate:            readWrite,
		HeartRateVariability: readOnly,
		RestingHeartRate:     readOnly,
		Steps:                readWrite,
		Distance:             readWrite,
		ActiveCalories:       readWrite,
		TotalCalories:        readOnly,
		FloorsClimbed:        readWrite,
		Weight:               readWrite,
		Height:               readWrite,
		BodyFat:              readWrite,
		BodyMassIndex:        readWrite,
		BloodPressure:        readWrite,
		BloodGlucose:         readWrite,
		OxygenSaturation:     readWrite,
		RespiratoryRate:      readWrite,
		BodyTemperature:      readWrite,
		Sleep:                readWrite,
		Workout:              readWrite,
		Hydration:            readWrite,
		Nutrition:            readWrite,
		Mindfulness:          readWrite,
		VO2Max:               readOnly,
		Speed:                readOnly,
		Power:                readOnly,
	},
	PlatformHealthConnect: {
		HeartRate:            readWrite,
		HeartRateVariability: readWrite,
		RestingHeartRate:     readWrite,
		Steps:                readWrite,
		Distance:             readWrite,
		ActiveCalories:       readWrite,
		TotalCalories:        readWrite,
		FloorsClimbed:        readWrite,
		Weight:               readWrite,
		Height:               readWrite,
		BodyFat:              readWrite,
		BloodPressure:        readWrite,
		BloodGlucose:         readWrite,
		OxygenSaturation:     readWrite,
		RespiratoryRate:      readWrite,
		BodyTemperature:      readWrite,
		Sleep:                readWrite,
		Workout:              readWrite,
		Hydration:            readWrite,
		Nutrition:            readWrite,
		VO2Max:               readWrite,
		Speed:                readWrite,
		Power:                readWrite,
	},
}

// CapabilitiesFor returns the capability of dataType on platform. It never
// fails: unknown combinations resolve to the zero Capability.
func CapabilitiesFor(dataType DataType, platform Platform) Capability {
	return capabilityTable[platform][dataType]
}

// CapabilityTable returns the full capability matrix for platform, with an
// entry for every canonical data type.
func CapabilityTable(platform Platform) map[DataType]Capability {
	out := make(map[DataType]Capability, len(allDataTypes))
	for _, d := range allDataTypes {
		out[d] = CapabilitiesFor(d, platform)
	}
	return out
}

// PermissionsFor expands each data type into the permissions its capability
// on platform allows: READ if readable, WRITE if writable.
func PermissionsFor(dataTypes []DataType, platform Platform) PermissionSet {
	set := NewPermissionSet()
	for _, d := range dataTypes {
		c := CapabilitiesFor(d, platform)
		if c.CanRead {
			set.Add(Permission{DataType: d, Access: AccessRead})
		}
		if c.CanWrite {
			set.Add(Permission{DataType: d, Access: AccessWrite})
		}
	}
	return set
}
