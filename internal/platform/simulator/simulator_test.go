package simulator_test

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
	"github.com/healthbridge/healthbridge/internal/platform/simulator"
)

var t0 = time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)

func newAdapter() *simulator.Adapter {
	return simulator.New(simulator.Config{
		Logger: zerolog.New(io.Discard),
		Now:    func() time.Time { return t0 },
	})
}

func hr(bpm int, ts time.Time) healthdata.HeartRateData {
	return healthdata.HeartRateData{Base: healthdata.NewBase(ts, nil), BPM: bpm}
}

func TestPermissions(t *testing.T) {
	a := newAdapter()
	ctx := context.Background()
	read := healthdata.Permission{DataType: healthdata.Steps, Access: healthdata.AccessRead}
	writeVO2 := healthdata.Permission{DataType: healthdata.VO2Max, Access: healthdata.AccessWrite}
	perms := healthdata.NewPermissionSet(read, writeVO2)

	res, err := a.CheckPermissions(ctx, perms)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Denied.Len())

	res, err = a.RequestPermissions(ctx, perms)
	require.NoError(t, err)
	require.NoError(t, res.Validate(perms))
	assert.True(t, res.Granted.Contains(read))
	assert.True(t, res.Denied.Contains(writeVO2), "healthkit cannot write VO2 max")

	a.Refuse(read)
	res, err = a.CheckPermissions(ctx, perms)
	require.NoError(t, err)
	assert.True(t, res.Denied.Contains(read))
}

func TestEmit_KeepsNewestAsLatest(t *testing.T) {
	a := newAdapter()
	ctx := context.Background()

	a.Emit(ctx, hr(70, t0))
	a.Emit(ctx, hr(60, t0.Add(-time.Minute)))

	p, err := a.ReadLatest(ctx, healthdata.HeartRate)
	require.NoError(t, err)
	assert.Equal(t, 70, p.(healthdata.HeartRateData).BPM)
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	a := newAdapter()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := a.Subscribe(ctx, healthdata.HeartRate)
	require.NoError(t, err)
	require.NotNil(t, ch)

	go a.Emit(context.Background(), hr(75, t0))
	assert.Equal(t, 75, (<-ch).(healthdata.HeartRateData).BPM)

	cancel()
	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("feed not closed after cancel")
	}

	// Emitting with no subscribers left does not block.
	a.Emit(context.Background(), hr(76, t0.Add(time.Second)))
}

func TestSubscribe_Unsupported(t *testing.T) {
	a := simulator.New(simulator.Config{Platform: healthdata.PlatformHealthConnect})
	ch, err := a.Subscribe(context.Background(), healthdata.BodyMassIndex)
	assert.NoError(t, err)
	assert.Nil(t, ch)
}

func TestFailNext_FailsOnce(t *testing.T) {
	a := newAdapter()
	cause := errors.New("boom")
	a.FailNext("read_latest", cause)

	_, err := a.ReadLatest(context.Background(), healthdata.Steps)
	assert.ErrorIs(t, err, cause)
	_, err = a.ReadLatest(context.Background(), healthdata.Steps)
	assert.NoError(t, err)
}

func TestWorkoutLifecycle(t *testing.T) {
	a := newAdapter()
	ctx := context.Background()

	assert.False(t, a.EmitWorkout(ctx, healthdata.WorkoutData{}))
	ch, err := a.ObserveActiveWorkout(ctx)
	require.NoError(t, err)
	assert.Nil(t, ch)

	id, err := a.StartWorkout(ctx, healthdata.WorkoutCycling)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = a.StartWorkout(ctx, healthdata.WorkoutRunning)
	assert.ErrorIs(t, err, simulator.ErrWorkoutActive)

	assert.ErrorIs(t, a.ResumeWorkout(ctx, id), simulator.ErrWorkoutNotActive)
	require.NoError(t, a.PauseWorkout(ctx, id))
	assert.ErrorIs(t, a.PauseWorkout(ctx, "nope"), simulator.ErrWorkoutNotFound)
	require.NoError(t, a.ResumeWorkout(ctx, id))

	ch, err = a.ObserveActiveWorkout(ctx)
	require.NoError(t, err)
	steps := 10
	go a.EmitWorkout(ctx, healthdata.WorkoutData{Steps: &steps})
	u := <-ch
	assert.Equal(t, id, u.ID)
	assert.Equal(t, healthdata.WorkoutCycling, u.Type)

	require.NoError(t, a.EndWorkout(ctx, id))
	_, open := <-ch
	assert.False(t, open, "workout feed closed on end")

	p, err := a.ReadLatest(ctx, healthdata.Workout)
	require.NoError(t, err)
	w := p.(healthdata.WorkoutData)
	assert.Equal(t, id, w.ID)
	assert.Equal(t, t0, w.Timestamp)
}

func TestRun_EmitsSyntheticSamples(t *testing.T) {
	a := simulator.New(simulator.Config{Logger: zerolog.New(io.Discard)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Subscribe(ctx, healthdata.HeartRate)
	require.NoError(t, err)
	go a.Run(ctx, 5*time.Millisecond)

	select {
	case p := <-ch:
		assert.Positive(t, p.(healthdata.HeartRateData).BPM)
	case <-time.After(time.Second):
		t.Fatal("no synthetic heart rate")
	}
}
