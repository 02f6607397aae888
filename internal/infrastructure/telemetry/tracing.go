package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer every load span comes from
const TracerName = "salesetl"

// Span names
const (
	SpanRun   = "salesetl.run"
	SpanPhase = "salesetl.phase"
)

// Attribute keys for load run spans. Metric attributes live in metrics.go.
const (
	SpanAttrRunID   = "salesetl.run_id"
	SpanAttrSource  = "salesetl.source"
	SpanAttrDryRun  = "salesetl.dry_run"
	SpanAttrPhase   = "salesetl.phase"
	SpanAttrEntity  = "salesetl.entity"
	SpanAttrRecords = "salesetl.records"
)

// EventEntityTransformed is added to a phase span for every entity batch
const EventEntityTransformed = "entity_transformed"

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartRunSpan starts the root span of a load run
//
//	ctx, span := telemetry.StartRunSpan(ctx, source, dryRun)
//	defer span.End()
func StartRunSpan(ctx context.Context, source string, dryRun bool) (context.Context, trace.Span) {
	return tracer().Start(ctx, SpanRun, trace.WithAttributes(
		attribute.String(SpanAttrSource, source),
		attribute.Bool(SpanAttrDryRun, dryRun),
	))
}

// StartPhaseSpan starts the span covering one load phase
func StartPhaseSpan(ctx context.Context, phase string) (context.Context, trace.Span) {
	return tracer().Start(ctx, SpanPhase+"."+phase, trace.WithAttributes(
		attribute.String(SpanAttrPhase, phase),
	))
}

// SetRunID tags the span with the load run it belongs to
func SetRunID(span trace.Span, runID string) {
	span.SetAttributes(attribute.String(SpanAttrRunID, runID))
}

// EntityTransformed records the size of one transformed entity batch
func EntityTransformed(span trace.Span, entity string, records int) {
	span.AddEvent(EventEntityTransformed, trace.WithAttributes(
		attribute.String(SpanAttrEntity, entity),
		attribute.Int(SpanAttrRecords, records),
	))
}

// RecordError records err on the span and marks it failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Finish sets the span status from the outcome of the work it covers.
// It does not end the span.
func Finish(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
		return
	}
	span.SetStatus(codes.Ok, "")
}
