package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/platform/resilience"
)

func fastConfig(name string) resilience.Config {
	return resilience.Config{
		Name:            name,
		Timeout:         time.Second,
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Breaker: resilience.BreakerConfig{
			ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 100 },
		},
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	e := resilience.NewExecutor(fastConfig("retry"))
	var attempts atomic.Int32

	v, err := resilience.Retry(context.Background(), e, func(context.Context) (int, error) {
		if attempts.Add(1) < 3 {
			return 0, errors.New("temporarily unavailable")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	e := resilience.NewExecutor(fastConfig("exhaust"))
	var attempts atomic.Int32
	cause := errors.New("down")

	_, err := resilience.Retry(context.Background(), e, func(context.Context) (string, error) {
		attempts.Add(1)
		return "", cause
	})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(4), attempts.Load(), "initial attempt plus three retries")
}

func TestRetry_PermanentErrorStopsImmediately(t *testing.T) {
	e := resilience.NewExecutor(fastConfig("permanent"))
	var attempts atomic.Int32
	cause := errors.New("denied")

	_, err := resilience.Retry(context.Background(), e, func(context.Context) (int, error) {
		attempts.Add(1)
		return 0, resilience.Permanent(cause)
	})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, uint32(0), e.Counts().TotalFailures, "permanent errors do not count against the breaker")
}

func TestOnce_DoesNotRetry(t *testing.T) {
	e := resilience.NewExecutor(fastConfig("once"))
	var attempts atomic.Int32

	_, err := resilience.Once(context.Background(), e, func(context.Context) (struct{}, error) {
		attempts.Add(1)
		return struct{}{}, errors.New("write failed")
	})

	assert.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestOnce_AppliesTimeout(t *testing.T) {
	cfg := fastConfig("timeout")
	cfg.Timeout = 20 * time.Millisecond
	e := resilience.NewExecutor(cfg)

	_, err := resilience.Once(context.Background(), e, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBreaker_OpensAndRejects(t *testing.T) {
	cfg := fastConfig("trip")
	cfg.Breaker = resilience.BreakerConfig{Timeout: time.Minute}
	e := resilience.NewExecutor(cfg)
	var attempts atomic.Int32

	fail := func(context.Context) (int, error) {
		attempts.Add(1)
		return 0, errors.New("boom")
	}
	for i := 0; i < 5; i++ {
		_, _ = resilience.Once(context.Background(), e, fail)
	}
	require.Equal(t, gobreaker.StateOpen, e.State())

	_, err := resilience.Retry(context.Background(), e, fail)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), attempts.Load(), "open breaker short-circuits")
}

func TestTripOnFailureRatio(t *testing.T) {
	assert.False(t, resilience.TripOnFailureRatio(gobreaker.Counts{Requests: 4, TotalFailures: 4}))
	assert.True(t, resilience.TripOnFailureRatio(gobreaker.Counts{Requests: 6, TotalFailures: 3}))
	assert.False(t, resilience.TripOnFailureRatio(gobreaker.Counts{Requests: 10, TotalFailures: 4}))
}
