package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey int

const (
	loggerKey contextKey = iota
	runIDKey
	phaseKey
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}

// WithRunID tags everything logged through ctx with the load run
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithPhase tags everything logged through ctx with the load phase
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey, phase)
}

// RunID returns the run tagged on ctx
func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey).(string)
	return runID
}

// Phase returns the phase tagged on ctx
func Phase(ctx context.Context) string {
	phase, _ := ctx.Value(phaseKey).(string)
	return phase
}

// Fields returns the run, phase and trace correlation fields carried by ctx
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if runID := RunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if phase := Phase(ctx); phase != "" {
		fields = append(fields, zap.String("phase", phase))
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	return fields
}

// L returns the context's logger with the correlation fields of ctx.
//
//	logger.L(ctx).Info("phase started", zap.Int("rows", n))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	if fields := Fields(ctx); len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}
