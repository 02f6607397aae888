package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation.
type DBConfig struct {
	Tracing            bool          // register otelgorm spans
	LogFullSQL         bool          // keep bind variables in span statements
	SlowQueryThreshold time.Duration // default 200ms
	DBSystem           string        // default "postgresql"
}

// DBPlugin is a GORM plugin that traces statements through otelgorm and
// records per-table statement metrics.
type DBPlugin struct {
	config   DBConfig
	logger   *zap.Logger
	queries  *Counter
	errors   *Counter
	slow     *Counter
	duration *Histogram
}

// NewDBPlugin creates the statement instruments on meter.
func NewDBPlugin(meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBPlugin, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	p := &DBPlugin{config: cfg, logger: logger}
	var err error
	if p.queries, err = NewCounter(meter, "salesetl_db_statements_total", "Database statements by operation and table", "{statements}"); err != nil {
		return nil, err
	}
	if p.errors, err = NewCounter(meter, "salesetl_db_errors_total", "Failed database statements", "{statements}"); err != nil {
		return nil, err
	}
	if p.slow, err = NewCounter(meter, "salesetl_db_slow_statements_total", "Statements slower than the configured threshold", "{statements}"); err != nil {
		return nil, err
	}
	if p.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "salesetl_db_statement_duration_seconds",
		Description: "Database statement duration",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return p, nil
}

// Name implements gorm.Plugin.
func (p *DBPlugin) Name() string {
	return "salesetl:db"
}

// Initialize implements gorm.Plugin.
func (p *DBPlugin) Initialize(db *gorm.DB) error {
	if p.config.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
		if !p.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	hooks := []struct {
		name      string
		operation string
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		operation := h.operation
		if err := h.before("salesetl_db:before_"+h.name, p.start); err != nil {
			return err
		}
		if err := h.after("salesetl_db:after_"+h.name, func(db *gorm.DB) { p.finish(db, operation) }); err != nil {
			return err
		}
	}

	p.logger.Debug("Database instrumentation registered",
		zap.Bool("tracing", p.config.Tracing),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThreshold),
	)
	return nil
}

type dbContextKey string

const statementStartKey dbContextKey = "salesetl_db_statement_start"

func (p *DBPlugin) start(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, statementStartKey, time.Now())
}

func (p *DBPlugin) finish(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if operation == "" {
		operation = statementOperation(db.Statement.SQL.String())
	}

	attrs := []attribute.KeyValue{
		AttrDBOperation.String(operation),
		AttrDBTable.String(db.Statement.Table),
	}
	p.queries.Inc(ctx, attrs...)

	failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
	if failed {
		p.errors.Inc(ctx, attrs...)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if failed {
			RecordError(span, db.Error)
		}
	}

	started, ok := ctx.Value(statementStartKey).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)
	p.duration.RecordDuration(ctx, elapsed, attrs...)
	if elapsed > p.config.SlowQueryThreshold {
		p.slow.Inc(ctx, attrs...)
		if span.IsRecording() {
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThreshold.Milliseconds()),
			))
		}
	}
}

func statementOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
