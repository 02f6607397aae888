package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/config"
	"github.com/erp/salesetl/internal/infrastructure/logger"
	"github.com/erp/salesetl/internal/infrastructure/persistence"
	"github.com/erp/salesetl/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// app holds the process-wide collaborators shared by the subcommands
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	tracer *telemetry.TracerProvider
	meter  *telemetry.MeterProvider
	db     *persistence.Database
}

// bootstrap loads configuration and starts logging and telemetry. Flag
// overrides are applied before validation by the caller-supplied mutate.
func bootstrap(ctx context.Context, opts *rootOptions, mutate func(*config.Config)) (*app, error) {
	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		return nil, &bulk.ConfigurationError{Setting: "config", Err: err}
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.databaseURL != "" {
		cfg.Database.URL = opts.databaseURL
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, &bulk.ConfigurationError{Setting: "flags", Err: err}
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, &bulk.ConfigurationError{Setting: "log", Err: err}
	}

	a := &app{cfg: cfg, log: log}

	a.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	a.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		_ = a.tracer.Shutdown(ctx)
		return nil, err
	}

	log.Debug("Configuration loaded",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)
	return a, nil
}

// openDatabase connects to the configured destination with query logging
// and statement instrumentation. SQLite destinations get their schema from
// the models.
func (a *app) openDatabase() (*persistence.Database, error) {
	dbSystem := "postgresql"
	if strings.HasPrefix(a.cfg.Database.DSN(), persistence.SQLitePrefix) {
		dbSystem = "sqlite"
	}
	plugin, err := telemetry.NewDBPlugin(a.meter.Meter("salesetl/db"), telemetry.DBConfig{
		Tracing:            a.cfg.Telemetry.Enabled && a.cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         a.cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: a.cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:           dbSystem,
	}, a.log)
	if err != nil {
		return nil, err
	}

	db, err := persistence.NewDatabase(&a.cfg.Database,
		persistence.WithLogger(a.log, logger.GormLevel(a.cfg.Database.LogLevel)),
		persistence.WithPlugins(plugin),
	)
	if err != nil {
		return nil, err
	}
	a.db = db

	if db.IsSQLite() {
		if err := db.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
		}
	}
	if stats, err := db.Stats(); err == nil {
		a.log.Debug("Database connected", stats.Fields()...)
	}
	return db, nil
}

// close releases everything bootstrap and openDatabase acquired
func (a *app) close(ctx context.Context) {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Error closing database", zap.Error(err))
		}
	}
	_ = a.meter.Shutdown(ctx)
	_ = a.tracer.Shutdown(ctx)
	_ = logger.Sync(a.log)
}
