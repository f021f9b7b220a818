package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling the adapter while its
	// breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Config configures an Executor.
type Config struct {
	// Name identifies the guarded adapter in logs and the registry.
	Name string

	// Timeout bounds each individual attempt.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of extra attempts for idempotent calls.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the first retry delay.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the retry delay.
	// Default: 2 seconds
	MaxInterval time.Duration

	Breaker BreakerConfig

	// Registry, when set, tracks this executor's health.
	Registry *Registry
}

// Executor runs adapter calls through a circuit breaker.
type Executor struct {
	name     string
	cfg      Config
	breaker  *gobreaker.CircuitBreaker[any]
	registry *Registry
}

// NewExecutor creates an Executor and registers it with cfg.Registry.
func NewExecutor(cfg Config) *Executor {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	e := &Executor{
		name:     cfg.Name,
		cfg:      cfg,
		breaker:  newBreaker(cfg.Name, cfg.Breaker),
		registry: cfg.Registry,
	}
	if e.registry != nil {
		e.registry.Register(e)
	}
	return e
}

// Name returns the executor name.
func (e *Executor) Name() string { return e.name }

// State returns the breaker state.
func (e *Executor) State() gobreaker.State { return e.breaker.State() }

// Counts returns the breaker counts.
func (e *Executor) Counts() gobreaker.Counts { return e.breaker.Counts() }

// Once runs fn a single time through the breaker. Use it for calls that are
// not safe to repeat, such as writes and workout transitions.
func Once[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	v, err := e.attempt(ctx, func(ctx context.Context) (any, error) { return fn(ctx) })
	e.record(err)
	return as[T](v), err
}

// Retry runs fn through the breaker, retrying failures with exponential
// backoff. Caller cancellations, permanent errors and an open breaker end
// the retries early.
func Retry[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.cfg.InitialInterval
	bo.MaxInterval = e.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	var result any
	err := backoff.Retry(func() error {
		v, err := e.attempt(ctx, func(ctx context.Context) (any, error) { return fn(ctx) })
		if err != nil {
			if errors.Is(err, ErrCircuitOpen) || isCallerError(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, e.cfg.MaxRetries), ctx))

	e.record(err)
	return as[T](result), err
}

func (e *Executor) attempt(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	v, err := e.breaker.Execute(func() (any, error) {
		actx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		return fn(actx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return v, err
}

func (e *Executor) record(err error) {
	if e.registry == nil {
		return
	}
	if err != nil && !isCallerError(err) {
		e.registry.RecordFailure(e.name, err)
		return
	}
	e.registry.RecordSuccess(e.name)
}

func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

// PermanentError marks a failure that retrying cannot fix and that says
// nothing about the adapter's health, such as a denied permission.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func isCallerError(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm) || errors.Is(err, context.Canceled)
}
