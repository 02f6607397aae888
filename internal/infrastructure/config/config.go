package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "SALESETL"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	Load      LoadConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string `validate:"oneof=development testing production"`
}

// DatabaseConfig holds the destination connection settings. URL has no
// default; a run that writes must name its destination.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int    `validate:"gt=0"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime int    // in minutes
	ConnMaxIdleTime int    // in minutes
	LogLevel        string `validate:"oneof=silent error warn info debug"`
}

// LoadConfig holds pipeline settings. Amounts are kept as strings so the
// configured value reaches decimal arithmetic without float rounding.
type LoadConfig struct {
	Tolerance      string  `validate:"required,numeric"`
	HardCeiling    string  `validate:"required,numeric"`
	BatchSize      int     `validate:"gt=0,lte=100000"`
	Workers        int     `validate:"gt=0,lte=256"`
	MaxFailureRate float64 `validate:"gt=0,lte=1"`
	ConflictMode   string  `validate:"oneof=skip update fail"`
	MaxErrors      int     `validate:"gt=0"`
}

// StorageConfig holds S3-compatible object storage settings used for s3://
// sources and summary archives
type StorageConfig struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	UsePathStyle  bool
	ArchivePrefix string
	Archive       bool // upload each run summary
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SALESETL_ prefix (e.g., SALESETL_DATABASE_URL)
// 2. .env in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/salesetl")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Load: LoadConfig{
			Tolerance:      v.GetString("load.tolerance"),
			HardCeiling:    v.GetString("load.hard_ceiling"),
			BatchSize:      v.GetInt("load.batch_size"),
			Workers:        v.GetInt("load.workers"),
			MaxFailureRate: v.GetFloat64("load.max_failure_rate"),
			ConflictMode:   v.GetString("load.conflict_mode"),
			MaxErrors:      v.GetInt("load.max_errors"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("storage.endpoint"),
			Region:        v.GetString("storage.region"),
			Bucket:        v.GetString("storage.bucket"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UseSSL:        v.GetBool("storage.use_ssl"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
			ArchivePrefix: v.GetString("storage.archive_prefix"),
			Archive:       v.GetBool("storage.archive"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDotEnv exports the variables of path into the process environment.
// Variables already set win and a missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "salesetl"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Load.Tolerance == "" {
		cfg.Load.Tolerance = "0.01"
	}
	if cfg.Load.HardCeiling == "" {
		cfg.Load.HardCeiling = "1.00"
	}
	if cfg.Load.BatchSize == 0 {
		cfg.Load.BatchSize = 1000
	}
	if cfg.Load.Workers == 0 {
		cfg.Load.Workers = 4
	}
	if cfg.Load.MaxFailureRate == 0 {
		cfg.Load.MaxFailureRate = 0.05
	}
	if cfg.Load.ConflictMode == "" {
		cfg.Load.ConflictMode = "update"
	}
	if cfg.Load.MaxErrors == 0 {
		cfg.Load.MaxErrors = 1000
	}
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = "http://localhost:9000"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.ArchivePrefix == "" {
		cfg.Storage.ArchivePrefix = "salesetl/runs"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "salesetl"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

var validate = validator.New()

// Validate checks field constraints and the relations between fields. It
// is exported so CLI flag overrides can be checked after they are applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q (got %v)", settingName(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	tolerance, err := c.Load.ToleranceAmount()
	if err != nil {
		return err
	}
	ceiling, err := c.Load.HardCeilingAmount()
	if err != nil {
		return err
	}
	if tolerance.IsNegative() {
		return fmt.Errorf("load.tolerance cannot be negative, got %s", tolerance)
	}
	if ceiling.LessThan(tolerance) {
		return fmt.Errorf("load.hard_ceiling (%s) cannot be below load.tolerance (%s)", ceiling, tolerance)
	}

	if c.Storage.Archive && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.archive is enabled")
	}

	if c.App.Env == "production" && c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// settingName turns a validator namespace such as Config.Load.BatchSize
// into the config key load.batchsize
func settingName(namespace string) string {
	name := strings.TrimPrefix(namespace, "Config.")
	return strings.ToLower(name)
}

// ToleranceAmount parses the tolerance
func (l LoadConfig) ToleranceAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(l.Tolerance))
	if err != nil {
		return decimal.Zero, fmt.Errorf("load.tolerance %q is not a decimal: %w", l.Tolerance, err)
	}
	return d, nil
}

// HardCeilingAmount parses the hard ceiling
func (l LoadConfig) HardCeilingAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(l.HardCeiling))
	if err != nil {
		return decimal.Zero, fmt.Errorf("load.hard_ceiling %q is not a decimal: %w", l.HardCeiling, err)
	}
	return d, nil
}

// DSN returns the destination URL
func (d *DatabaseConfig) DSN() string {
	return strings.TrimSpace(d.URL)
}
