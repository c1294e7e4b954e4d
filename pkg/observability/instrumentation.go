package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentTransition wraps a state machine transition with a span
func (t *Telemetry) InstrumentTransition(ctx context.Context, stateName string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, fmt.Sprintf("orchestrator.state.%s", stateName),
		trace.WithAttributes(
			attribute.String("state", stateName),
		),
	)
	defer span.End()

	startTime := time.Now()
	err := fn(ctx)

	duration := time.Since(startTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(
		attribute.Float64("duration.seconds", duration.Seconds()),
	)

	return err
}

// InstrumentDispatch wraps a message bus dispatch with a span. Dispatch
// failures are recorded but stay non-fatal to the caller.
func (t *Telemetry) InstrumentDispatch(ctx context.Context, channel string, fn func(context.Context) error) error {
	ctx, span := t.StartSpan(ctx, "bus.publish",
		trace.WithAttributes(
			attribute.String("channel", channel),
		),
	)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// InstrumentCohort wraps a sub-coordinator execution with a span
func (t *Telemetry) InstrumentCohort(ctx context.Context, coordinatorID, sourceType string, fn func(context.Context) (int, error)) error {
	ctx, span := t.StartSpan(ctx, "coordinator.execute",
		trace.WithAttributes(
			attribute.String("coordinator.id", coordinatorID),
			attribute.String("coordinator.source_type", sourceType),
		),
	)
	defer span.End()

	startTime := time.Now()
	findings, err := fn(ctx)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Int("findings.count", findings))
	}

	span.SetAttributes(
		attribute.Float64("duration.seconds", time.Since(startTime).Seconds()),
	)

	return err
}

// StartInvestigation starts a root span for an investigation
func (t *Telemetry) StartInvestigation(ctx context.Context, investigationID, objective string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "investigation",
		trace.WithAttributes(
			attribute.String("investigation.id", investigationID),
			attribute.Int("objective.length", len(objective)),
		),
	)
}
