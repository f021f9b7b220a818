package healthdata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

func TestCapabilitiesFor(t *testing.T) {
	tests := []struct {
		name     string
		dataType healthdata.DataType
		platform healthdata.Platform
		expected healthdata.Capability
	}{
		{"heart rate on healthkit", healthdata.HeartRate, healthdata.PlatformHealthKit, healthdata.Capability{CanRead: true, CanWrite: true}},
		{"hrv read only on healthkit", healthdata.HeartRateVariability, healthdata.PlatformHealthKit, healthdata.Capability{CanRead: true}},
		{"hrv writable on health connect", healthdata.HeartRateVariability, healthdata.PlatformHealthConnect, healthdata.Capability{CanRead: true, CanWrite: true}},
		{"mindfulness missing on health connect", healthdata.Mindfulness, healthdata.PlatformHealthConnect, healthdata.Capability{}},
		{"unknown platform", healthdata.Steps, healthdata.Platform("fitbit"), healthdata.Capability{}},
		{"unknown data type", healthdata.DataType("mood"), healthdata.PlatformHealthKit, healthdata.Capability{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, healthdata.CapabilitiesFor(tt.dataType, tt.platform))
		})
	}
}

func TestCapabilityTable_CoversEveryType(t *testing.T) {
	for _, p := range healthdata.SupportedPlatforms() {
		table := healthdata.CapabilityTable(p)
		assert.Len(t, table, len(healthdata.AllDataTypes()), "platform %s", p)
	}
}

func TestPermissionsFor(t *testing.T) {
	set := healthdata.PermissionsFor(
		[]healthdata.DataType{healthdata.HeartRate, healthdata.VO2Max, healthdata.Mindfulness},
		healthdata.PlatformHealthKit,
	)

	assert.Equal(t, 5, set.Len())
	assert.True(t, set.Contains(healthdata.Permission{DataType: healthdata.HeartRate, Access: healthdata.AccessRead}))
	assert.True(t, set.Contains(healthdata.Permission{DataType: healthdata.HeartRate, Access: healthdata.AccessWrite}))
	assert.True(t, set.Contains(healthdata.Permission{DataType: healthdata.VO2Max, Access: healthdata.AccessRead}))
	assert.False(t, set.Contains(healthdata.Permission{DataType: healthdata.VO2Max, Access: healthdata.AccessWrite}))
	assert.True(t, set.Contains(healthdata.Permission{DataType: healthdata.Mindfulness, Access: healthdata.AccessRead}))
	assert.True(t, set.Contains(healthdata.Permission{DataType: healthdata.Mindfulness, Access: healthdata.AccessWrite}))
}

func TestPermissionsFor_UnsupportedYieldsNothing(t *testing.T) {
	set := healthdata.PermissionsFor([]healthdata.DataType{healthdata.Mindfulness}, healthdata.PlatformHealthConnect)
	assert.Equal(t, 0, set.Len())
}

func TestParseDataType(t *testing.T) {
	d, err := healthdata.ParseDataType(" Heart_Rate ")
	require.NoError(t, err)
	assert.Equal(t, healthdata.HeartRate, d)

	_, err = healthdata.ParseDataType("mood")
	assert.ErrorIs(t, err, healthdata.ErrUnknownDataType)
}

func TestAllDataTypes_ReturnsCopy(t *testing.T) {
	all := healthdata.AllDataTypes()
	all[0] = "mutated"
	assert.Equal(t, healthdata.HeartRate, healthdata.AllDataTypes()[0])
}
