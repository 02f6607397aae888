package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"SALESETL_APP_NAME",
	"SALESETL_APP_ENV",
	"SALESETL_DATABASE_URL",
	"SALESETL_DATABASE_MAX_OPEN_CONNS",
	"SALESETL_DATABASE_MAX_IDLE_CONNS",
	"SALESETL_LOAD_TOLERANCE",
	"SALESETL_LOAD_HARD_CEILING",
	"SALESETL_LOAD_BATCH_SIZE",
	"SALESETL_LOAD_WORKERS",
	"SALESETL_LOAD_CONFLICT_MODE",
	"SALESETL_LOAD_MAX_FAILURE_RATE",
	"SALESETL_STORAGE_BUCKET",
	"SALESETL_STORAGE_ARCHIVE",
	"SALESETL_TELEMETRY_SAMPLING_RATIO",
	"SALESETL_TELEMETRY_DB_LOG_FULL_SQL",
	"SALESETL_LOG_LEVEL",
}

// clearEnv blanks every variable the tests touch; viper treats empty
// variables as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "salesetl", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "", cfg.Database.URL)
		assert.Equal(t, "", cfg.Database.DSN())
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "0.01", cfg.Load.Tolerance)
		assert.Equal(t, "1.00", cfg.Load.HardCeiling)
		assert.Equal(t, 1000, cfg.Load.BatchSize)
		assert.Equal(t, 4, cfg.Load.Workers)
		assert.Equal(t, 0.05, cfg.Load.MaxFailureRate)
		assert.Equal(t, "update", cfg.Load.ConflictMode)
		assert.Equal(t, "stderr", cfg.Log.Output)
		assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.DBSlowQueryThresh)
	})

	t.Run("loads values from environment variables with SALESETL prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_APP_ENV", "testing")
		t.Setenv("SALESETL_DATABASE_URL", " postgres://etl:secret@db:5432/sales?sslmode=disable ")
		t.Setenv("SALESETL_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("SALESETL_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("SALESETL_LOAD_BATCH_SIZE", "250")
		t.Setenv("SALESETL_LOAD_CONFLICT_MODE", "skip")
		t.Setenv("SALESETL_LOAD_TOLERANCE", "0.02")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "postgres://etl:secret@db:5432/sales?sslmode=disable", cfg.Database.DSN())
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 250, cfg.Load.BatchSize)
		assert.Equal(t, "skip", cfg.Load.ConflictMode)

		tol, err := cfg.Load.ToleranceAmount()
		require.NoError(t, err)
		assert.True(t, tol.Equal(decimal.RequireFromString("0.02")))
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("SALESETL_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown conflict mode", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_LOAD_CONFLICT_MODE", "merge")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load.conflictmode")
	})

	t.Run("rejects non numeric tolerance", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_LOAD_TOLERANCE", "one cent")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load.tolerance")
	})

	t.Run("rejects hard ceiling below tolerance", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_LOAD_TOLERANCE", "0.50")
		t.Setenv("SALESETL_LOAD_HARD_CEILING", "0.10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be below load.tolerance")
	})

	t.Run("rejects failure rate above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_LOAD_MAX_FAILURE_RATE", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maxfailurerate")
	})

	t.Run("requires bucket when archiving", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_STORAGE_ARCHIVE", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket is required")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_TELEMETRY_SAMPLING_RATIO", "2")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SALESETL_APP_ENV", "production")
		t.Setenv("SALESETL_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("reads toml and lets env override it", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "salesetl.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[database]
url = "sqlite:///tmp/sales.db"

[load]
batch_size = 500
workers = 2
`), 0o600))
		t.Setenv("SALESETL_LOAD_WORKERS", "8")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "sqlite:///tmp/sales.db", cfg.Database.URL)
		assert.Equal(t, 500, cfg.Load.BatchSize)
		assert.Equal(t, 8, cfg.Load.Workers)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		clearEnv(t)
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
		require.Error(t, err)
	})

	t.Run("reads dot env from the working directory", func(t *testing.T) {
		clearEnv(t)
		os.Unsetenv("SALESETL_DATABASE_URL")
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
			[]byte("SALESETL_DATABASE_URL=sqlite://from-dotenv.db\n"), 0o600))
		t.Chdir(dir)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "sqlite://from-dotenv.db", cfg.Database.URL)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("zero batch size after override", func(t *testing.T) {
		cfg := valid()
		cfg.Load.BatchSize = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load.batchsize")
	})

	t.Run("negative tolerance", func(t *testing.T) {
		cfg := valid()
		cfg.Load.Tolerance = "-0.01"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be negative")
	})

	t.Run("equal tolerance and ceiling", func(t *testing.T) {
		cfg := valid()
		cfg.Load.Tolerance = "0.25"
		cfg.Load.HardCeiling = "0.25"
		assert.NoError(t, cfg.Validate())
	})
}
