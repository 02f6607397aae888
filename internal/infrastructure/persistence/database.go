package persistence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/salesetl/internal/infrastructure/config"
	"github.com/erp/salesetl/internal/infrastructure/logger"
	"github.com/erp/salesetl/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLitePrefix marks a database URL that points at a local SQLite file
const SQLitePrefix = "sqlite://"

// ErrMissingDSN is returned when no database URL is configured
var ErrMissingDSN = errors.New("database url is not configured")

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

type databaseOptions struct {
	logger   *zap.Logger
	logLevel gormlogger.LogLevel
	plugins  []gorm.Plugin
}

// DatabaseOption configures NewDatabase
type DatabaseOption func(*databaseOptions)

// WithLogger routes gorm's SQL logging through zap at the given level
func WithLogger(l *zap.Logger, level gormlogger.LogLevel) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = l
		o.logLevel = level
	}
}

// WithPlugins registers gorm plugins such as the telemetry DB plugin
func WithPlugins(plugins ...gorm.Plugin) DatabaseOption {
	return func(o *databaseOptions) {
		o.plugins = append(o.plugins, plugins...)
	}
}

// NewDatabase opens the destination named by cfg. URLs starting with
// sqlite:// open a local SQLite file; anything else is handed to the
// PostgreSQL driver.
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	dsn := strings.TrimSpace(cfg.DSN())
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	o := databaseOptions{logger: zap.NewNop(), logLevel: gormlogger.Silent}
	for _, opt := range opts {
		opt(&o)
	}

	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, SQLitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(o.logger, o.logLevel),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, p := range o.plugins {
		if err := db.Use(p); err != nil {
			return nil, fmt.Errorf("failed to register gorm plugin %s: %w", p.Name(), err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// IsSQLite reports whether the connection uses the SQLite dialect
func (d *Database) IsSQLite() bool {
	return d.DB.Dialector.Name() == "sqlite"
}

// AutoMigrate creates or updates every destination table from the models.
// PostgreSQL destinations are migrated with the SQL migrations instead.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(models.AllModels()...)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Stats returns database connection pool statistics and an error if unable to retrieve
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}, nil
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxIdleTimeClosed  int64
	MaxLifetimeClosed  int64
}

// Fields returns the pool statistics as zap fields
func (s ConnectionStats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("max_open", s.MaxOpenConnections),
		zap.Int("open", s.OpenConnections),
		zap.Int("in_use", s.InUse),
		zap.Int("idle", s.Idle),
		zap.Int64("wait_count", s.WaitCount),
		zap.Duration("wait_duration", s.WaitDuration),
	}
}
