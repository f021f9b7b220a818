package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments holds the domain metrics shared by the observation, workout,
// platform and FHIR packages. A nil *Instruments records nothing.
type Instruments struct {
	observationUpdates  metric.Int64Counter
	activeObservations  metric.Int64UpDownCounter
	workoutTransitions  metric.Int64Counter
	adapterCallDuration metric.Float64Histogram
	resourcesParsed     metric.Int64Counter
}

// NewInstruments creates the domain instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	observationUpdates, err := meter.Int64Counter(
		"healthbridge.observation.updates",
		metric.WithDescription("Live data points delivered to observers"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		return nil, err
	}

	activeObservations, err := meter.Int64UpDownCounter(
		"healthbridge.observation.active",
		metric.WithDescription("Number of active observation handles"),
		metric.WithUnit("{handle}"),
	)
	if err != nil {
		return nil, err
	}

	workoutTransitions, err := meter.Int64Counter(
		"healthbridge.workout.transitions",
		metric.WithDescription("Workout lifecycle transitions by outcome"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	adapterCallDuration, err := meter.Float64Histogram(
		"healthbridge.adapter.call.duration",
		metric.WithDescription("Duration of platform adapter calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	resourcesParsed, err := meter.Int64Counter(
		"healthbridge.fhir.resources_parsed",
		metric.WithDescription("FHIR documents parsed by resource type and outcome"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		observationUpdates:  observationUpdates,
		activeObservations:  activeObservations,
		workoutTransitions:  workoutTransitions,
		adapterCallDuration: adapterCallDuration,
		resourcesParsed:     resourcesParsed,
	}, nil
}

// ObservationUpdate counts one delivered point of dataType.
func (i *Instruments) ObservationUpdate(ctx context.Context, dataType string) {
	if i == nil {
		return
	}
	i.observationUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("data_type", dataType)))
}

// ObservationStarted and ObservationStopped track active handles.
func (i *Instruments) ObservationStarted(ctx context.Context, dataType string) {
	if i == nil {
		return
	}
	i.activeObservations.Add(ctx, 1, metric.WithAttributes(attribute.String("data_type", dataType)))
}

func (i *Instruments) ObservationStopped(ctx context.Context, dataType string) {
	if i == nil {
		return
	}
	i.activeObservations.Add(ctx, -1, metric.WithAttributes(attribute.String("data_type", dataType)))
}

// WorkoutTransition counts a lifecycle call and whether it succeeded.
func (i *Instruments) WorkoutTransition(ctx context.Context, transition string, err error) {
	if i == nil {
		return
	}
	i.workoutTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transition", transition),
		attribute.Bool("error", err != nil),
	))
}

// AdapterCall records the duration of one adapter operation.
func (i *Instruments) AdapterCall(ctx context.Context, operation string, start time.Time, err error) {
	if i == nil {
		return
	}
	i.adapterCallDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("error", err != nil),
	))
}

// ResourceParsed counts one parsed FHIR document.
func (i *Instruments) ResourceParsed(ctx context.Context, resourceType string, err error) {
	if i == nil {
		return
	}
	i.resourcesParsed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource_type", resourceType),
		attribute.Bool("error", err != nil),
	))
}
