package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))

	// a missing logger falls back to a no-op
	assert.NotNil(t, FromContext(context.Background()))
	assert.NotPanics(t, func() { FromContext(context.Background()).Info("dropped") })
}

func TestRunAndPhase(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RunID(ctx))
	assert.Empty(t, Phase(ctx))

	ctx = WithPhase(WithRunID(ctx, "run-1"), "master")
	assert.Equal(t, "run-1", RunID(ctx))
	assert.Equal(t, "master", Phase(ctx))

	ctx = WithPhase(ctx, "transactional")
	assert.Equal(t, "transactional", Phase(ctx))
}

func TestFields(t *testing.T) {
	assert.Empty(t, Fields(context.Background()))

	ctx := WithPhase(WithRunID(spanContext(t), "run-1"), "reference")
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range Fields(ctx) {
		f.AddTo(enc)
	}
	assert.Equal(t, map[string]any{
		"run_id":   "run-1",
		"phase":    "reference",
		"trace_id": "4bf92f3577b34da6a3ce929d0e0e4736",
		"span_id":  "00f067aa0ba902b7",
	}, enc.Fields)
}

func TestL_AddsCorrelationFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithPhase(WithRunID(ctx, "run-7"), "master")

	L(ctx).With(zap.String("entity", "product")).Info("batch written")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "run-7", fields["run_id"])
	assert.Equal(t, "master", fields["phase"])
	assert.Equal(t, "product", fields["entity"])
}

func TestL_WithoutLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		L(WithRunID(context.Background(), "run-1")).Warn("no logger attached")
	})
}
