package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/salesetl/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartRunSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartRunSpan(context.Background(), "sales.xlsx", true)
	telemetry.SetRunID(span, "0b7e1d4c-run")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, telemetry.SpanRun, spans[0].Name())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "sales.xlsx", attrs[telemetry.SpanAttrSource].AsString())
	assert.True(t, attrs[telemetry.SpanAttrDryRun].AsBool())
	assert.Equal(t, "0b7e1d4c-run", attrs[telemetry.SpanAttrRunID].AsString())
}

func TestStartPhaseSpan_NestsUnderRun(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, run := telemetry.StartRunSpan(context.Background(), "sales.xlsx", false)
	_, phase := telemetry.StartPhaseSpan(ctx, "reference")
	phase.End()
	run.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "salesetl.phase.reference", spans[0].Name())
	assert.Equal(t, "reference", attrMap(spans[0].Attributes())[telemetry.SpanAttrPhase].AsString())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestEntityTransformed(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartPhaseSpan(context.Background(), "master")
	telemetry.EntityTransformed(span, "product", 3)
	telemetry.EntityTransformed(span, "company", 2)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 2)
	assert.Equal(t, telemetry.EventEntityTransformed, events[0].Name)
	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, "product", attrs[telemetry.SpanAttrEntity].AsString())
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrRecords].AsInt64())
}

func TestFinish(t *testing.T) {
	sr := setupTestTracer(t)

	_, failed := telemetry.StartPhaseSpan(context.Background(), "transactional")
	telemetry.Finish(failed, errors.New("commit failed"))
	failed.End()

	_, ok := telemetry.StartPhaseSpan(context.Background(), "reference")
	telemetry.RecordError(ok, nil)
	telemetry.Finish(ok, nil)
	ok.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "commit failed", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
	assert.Empty(t, spans[1].Events())
}

func TestSpansWithoutProvider(t *testing.T) {
	assert.NotPanics(t, func() {
		ctx, span := telemetry.StartRunSpan(context.Background(), "sales.xlsx", false)
		_, phase := telemetry.StartPhaseSpan(ctx, "master")
		telemetry.EntityTransformed(phase, "product", 1)
		telemetry.Finish(phase, errors.New("x"))
		phase.End()
		span.End()
	})
}
