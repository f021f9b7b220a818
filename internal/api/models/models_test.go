package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/workout"
)

func TestTimestamp_RoundTripsInUTC(t *testing.T) {
	ams := time.FixedZone("CET", 3600)
	ts := models.Timestamp(time.Date(2026, 3, 1, 9, 30, 0, 0, ams))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-01T08:30:00Z"`, string(data))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ts.Time().Equal(back.Time()))

	assert.Nil(t, models.NewTimestamp(time.Time{}))
}

func TestPermissionRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		req    models.PermissionRequest
		fields []string
	}{
		{
			name: "valid",
			req: models.PermissionRequest{
				Permissions: []healthdata.Permission{{DataType: healthdata.Steps, Access: healthdata.AccessRead}},
				DataTypes:   []healthdata.DataType{healthdata.HeartRate},
			},
		},
		{
			name:   "empty",
			req:    models.PermissionRequest{},
			fields: []string{"permissions"},
		},
		{
			name: "bad entries",
			req: models.PermissionRequest{
				Permissions: []healthdata.Permission{{DataType: "pulse", Access: "DELETE"}},
				DataTypes:   []healthdata.DataType{"mood"},
			},
			fields: []string{"permissions[0].dataType", "permissions[0].access", "dataTypes[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []string
			for _, e := range tt.req.Validate() {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestNewPermissionResult_NeverNull(t *testing.T) {
	res := models.NewPermissionResult(healthdata.PermissionResult{
		Granted: healthdata.NewPermissionSet(),
		Denied:  healthdata.NewPermissionSet(),
	})

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"granted":[],"denied":[],"allGranted":true}`, string(data))
}

func TestNewCapabilities_ListsEveryType(t *testing.T) {
	caps := models.NewCapabilities(healthdata.PlatformHealthKit, func(dt healthdata.DataType) healthdata.Capability {
		return healthdata.CapabilitiesFor(dt, healthdata.PlatformHealthKit)
	})

	require.Len(t, caps.DataTypes, len(healthdata.AllDataTypes()))
	assert.Equal(t, healthdata.HeartRate, caps.DataTypes[0].DataType)
	assert.True(t, caps.DataTypes[0].CanRead)
}

func TestNewDashboard_SplitsMissing(t *testing.T) {
	hr := healthdata.HeartRateData{Base: healthdata.NewBase(time.Unix(0, 0).UTC(), nil), BPM: 61}
	d := models.NewDashboard(
		healthdata.PlatformHealthConnect,
		[]healthdata.DataType{healthdata.HeartRate, healthdata.Weight},
		map[healthdata.DataType]healthdata.HealthDataPoint{healthdata.HeartRate: hr},
		time.Unix(10, 0),
		1500*time.Millisecond,
	)

	require.Len(t, d.Points, 1)
	assert.Equal(t, healthdata.HeartRate, d.Points[0].Type)
	assert.Equal(t, []healthdata.DataType{healthdata.Weight}, d.Missing)
	assert.Equal(t, int64(1500), d.DurationMs)
}

func TestDataPoint_MatchesEnvelopeCodec(t *testing.T) {
	p := healthdata.StepsData{Base: healthdata.NewBase(time.Unix(0, 0).UTC(), nil), Count: 42}

	data, err := json.Marshal(models.NewDataPoint(p))
	require.NoError(t, err)

	decoded, err := healthdata.UnmarshalPoint(data)
	require.NoError(t, err)
	assert.Equal(t, healthdata.Steps, decoded.DataType())
	assert.Equal(t, 42, decoded.(healthdata.StepsData).Count)
}

func TestNewWorkout(t *testing.T) {
	start := time.Unix(100, 0).UTC()
	end := start.Add(30 * time.Minute)
	dist := 5000.0
	s := workout.Session{
		ID:        "w1",
		Type:      healthdata.WorkoutRunning,
		State:     workout.StateEnded,
		StartTime: start,
		EndTime:   &end,
		Duration:  30 * time.Minute,
		Distance:  &dist,
	}

	w := models.NewWorkout(s)
	assert.Equal(t, "w1", w.SessionID)
	assert.Equal(t, 1800.0, w.DurationSeconds)
	require.NotNil(t, w.EndTime)
	assert.True(t, end.Equal(w.EndTime.Time()))
	assert.Equal(t, &dist, w.Distance)
	assert.Empty(t, w.Route)
	assert.Nil(t, w.RouteLength)

	s.Route = []healthdata.RoutePoint{{Lat: 38.5, Lon: -120.2}, {Lat: 40.7, Lon: -120.95}}
	w = models.NewWorkout(s)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", w.Route)
	require.NotNil(t, w.RouteLength)
	assert.InDelta(t, 252_000, *w.RouteLength, 5_000)
}
