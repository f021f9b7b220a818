package platform_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/observation"
	"github.com/healthbridge/healthbridge/internal/platform"
	"github.com/healthbridge/healthbridge/internal/platform/resilience"
	"github.com/healthbridge/healthbridge/internal/platform/simulator"
	"github.com/healthbridge/healthbridge/internal/workout"
)

var now = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newService(t *testing.T, a platform.Adapter) *platform.Service {
	t.Helper()
	return platform.NewService(platform.Config{
		Adapter: a,
		Logger:  zerolog.New(io.Discard),
		Resilience: resilience.Config{
			Timeout:         time.Second,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
		},
	})
}

func newSim(p healthdata.Platform, grantAll bool) *simulator.Adapter {
	return simulator.New(simulator.Config{Platform: p, GrantAll: grantAll, Logger: zerolog.New(io.Discard)})
}

func heartRate(bpm int, ts time.Time) healthdata.HeartRateData {
	return healthdata.HeartRateData{Base: healthdata.NewBase(ts, nil), BPM: bpm}
}

func readPerm(dt healthdata.DataType) healthdata.Permission {
	return healthdata.Permission{DataType: dt, Access: healthdata.AccessRead}
}

func TestService_ReadLatestUnsupportedIsAbsent(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthConnect, true)
	svc := newService(t, sim)

	p, err := svc.ReadLatest(context.Background(), healthdata.BodyMassIndex)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestService_ReadLatestRequiresPermission(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, false)
	svc := newService(t, sim)
	ctx := context.Background()
	sim.Emit(ctx, heartRate(72, now))

	_, err := svc.ReadLatest(ctx, healthdata.HeartRate)
	var denied *platform.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, readPerm(healthdata.HeartRate), denied.Permission)

	res, err := svc.RequestPermissions(ctx, healthdata.NewPermissionSet(readPerm(healthdata.HeartRate)))
	require.NoError(t, err)
	assert.True(t, res.AllGranted())
	assert.True(t, svc.GrantedPermissions().Contains(readPerm(healthdata.HeartRate)))

	p, err := svc.ReadLatest(ctx, healthdata.HeartRate)
	require.NoError(t, err)
	assert.Equal(t, 72, p.(healthdata.HeartRateData).BPM)
}

func TestService_ReadLatestNoSample(t *testing.T) {
	svc := newService(t, newSim(healthdata.PlatformHealthKit, true))
	p, err := svc.ReadLatest(context.Background(), healthdata.Weight)
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestService_ReadLatestRetriesTransientFailure(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, true)
	svc := newService(t, sim)
	ctx := context.Background()
	sim.Emit(ctx, heartRate(64, now))

	sim.FailNext("read_latest", errors.New("store busy"))
	p, err := svc.ReadLatest(ctx, healthdata.HeartRate)
	require.NoError(t, err)
	assert.Equal(t, 64, p.(healthdata.HeartRateData).BPM)
}

func TestService_Write(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, true)
	svc := newService(t, sim)
	ctx := context.Background()

	w := healthdata.WeightData{Base: healthdata.NewBase(now, nil), Value: 71.5, Unit: healthdata.Kilograms}
	require.NoError(t, svc.Write(ctx, w))
	assert.Equal(t, []healthdata.HealthDataPoint{w}, sim.Written())

	p, err := svc.ReadLatest(ctx, healthdata.Weight)
	require.NoError(t, err)
	assert.Equal(t, w, p)
}

func TestService_WriteCapabilityMismatch(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, true)
	svc := newService(t, sim)

	err := svc.Write(context.Background(), healthdata.VO2MaxData{Base: healthdata.NewBase(now, nil), MlPerKgMin: 48})
	var mismatch *platform.CapabilityMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, healthdata.VO2Max, mismatch.DataType)
	assert.Equal(t, healthdata.AccessWrite, mismatch.Access)
	assert.Empty(t, sim.Written())
}

func TestService_WriteInvalidPoint(t *testing.T) {
	svc := newService(t, newSim(healthdata.PlatformHealthKit, true))
	err := svc.Write(context.Background(), heartRate(0, now))
	var invalid *healthdata.ValidationError
	assert.ErrorAs(t, err, &invalid)
}

func TestService_WriteAdapterFailure(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, true)
	svc := newService(t, sim)
	cause := errors.New("disk full")
	sim.FailNext("write", cause)

	err := svc.Write(context.Background(), heartRate(80, now))
	var adapterErr *platform.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "write", adapterErr.Operation)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, sim.Written(), "writes are not retried")
}

// overlapping reports every permission as both granted and denied.
type overlapping struct {
	*simulator.Adapter
}

func (o overlapping) CheckPermissions(_ context.Context, perms healthdata.PermissionSet) (healthdata.PermissionResult, error) {
	return healthdata.PermissionResult{Granted: perms, Denied: perms}, nil
}

func TestService_RejectsInvalidPartition(t *testing.T) {
	svc := newService(t, overlapping{newSim(healthdata.PlatformHealthKit, true)})

	_, err := svc.CheckPermissions(context.Background(), healthdata.NewPermissionSet(readPerm(healthdata.Steps)))
	var adapterErr *platform.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.ErrorIs(t, err, healthdata.ErrPartitionOverlap)
	assert.Empty(t, svc.GrantedPermissions())
}

func TestService_CheckPermissionsEmptySet(t *testing.T) {
	svc := newService(t, newSim(healthdata.PlatformHealthKit, false))
	res, err := svc.CheckPermissions(context.Background(), healthdata.NewPermissionSet())
	require.NoError(t, err)
	assert.Zero(t, res.Granted.Len())
	assert.Zero(t, res.Denied.Len())
}

func TestService_RefusedPermissionIsDenied(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, false)
	sim.Refuse(readPerm(healthdata.Sleep))
	svc := newService(t, sim)

	requested := svc.PermissionsFor([]healthdata.DataType{healthdata.Sleep, healthdata.Steps})
	res, err := svc.RequestPermissions(context.Background(), requested)
	require.NoError(t, err)
	assert.True(t, res.Denied.Contains(readPerm(healthdata.Sleep)))
	assert.True(t, res.Granted.Contains(readPerm(healthdata.Steps)))
	assert.Equal(t, 4, requested.Len())
}

func TestService_SubscribeFeedsMultiplexer(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, true)
	svc := newService(t, sim)
	mux := observation.NewMultiplexer(observation.Config{Source: svc, Logger: zerolog.New(io.Discard)})
	defer mux.StopAll()
	ctx := context.Background()

	h, err := mux.StartObserving(ctx, healthdata.HeartRate)
	require.NoError(t, err)
	require.NotNil(t, h)

	go sim.Emit(ctx, heartRate(90, now))
	select {
	case p := <-h.Updates():
		assert.Equal(t, 90, p.(healthdata.HeartRateData).BPM)
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
}

func TestService_SubscribeUnsupported(t *testing.T) {
	svc := newService(t, newSim(healthdata.PlatformHealthConnect, true))
	ch, err := svc.Subscribe(context.Background(), healthdata.BodyMassIndex)
	assert.NoError(t, err)
	assert.Nil(t, ch)
}

func TestService_DrivesWorkoutTracker(t *testing.T) {
	sim := newSim(healthdata.PlatformHealthKit, true)
	svc := newService(t, sim)
	store := workout.NewInMemoryStore()
	tracker := workout.NewTracker(workout.Config{Adapter: svc, Store: store, Logger: zerolog.New(io.Discard)})
	defer tracker.Close()
	ctx := context.Background()

	s, err := tracker.Start(ctx, healthdata.WorkoutRunning)
	require.NoError(t, err)

	elapsed := 10 * time.Minute
	distance := 2000.0
	require.True(t, sim.EmitWorkout(ctx, healthdata.WorkoutData{Duration: &elapsed, Distance: &distance}))
	require.Eventually(t, func() bool {
		return tracker.Current().Pace != nil
	}, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 5.0, *tracker.Current().Pace, 1e-9)

	sim.FailNext("pause_workout", errors.New("sensor disconnected"))
	_, err = tracker.Pause(ctx)
	var opErr *workout.SessionOperationError
	require.ErrorAs(t, err, &opErr)
	var adapterErr *platform.AdapterError
	assert.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, workout.StateRunning, tracker.Current().State)

	final, err := tracker.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, workout.StateEnded, final.State)

	saved, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, *saved.Distance)

	latest, err := svc.ReadLatest(ctx, healthdata.Workout)
	require.NoError(t, err)
	assert.Equal(t, s.ID, latest.(healthdata.WorkoutData).ID)
}
