// Package resilience guards platform adapter calls with a circuit breaker,
// per-call timeouts and retries of idempotent operations.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker around one adapter.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the failure counts while closed. Zero never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// ReadyToTrip decides when a closed breaker opens.
	// Default: TripOnFailureRatio
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called on every breaker transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// TripOnFailureRatio opens the breaker once at least 5 calls were made and
// half of them failed.
func TripOnFailureRatio(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[any] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = TripOnFailureRatio
	}

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  isSuccessful,
	})
}

// isSuccessful keeps caller cancellations and permanent errors from counting
// against the adapter.
func isSuccessful(err error) bool {
	return err == nil || isCallerError(err)
}
