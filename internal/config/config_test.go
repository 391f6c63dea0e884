package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "IMPORT_BATCH_SIZE", "REDIS_RUN_TTL", "OPERATOR_API_KEY", "RESEND_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.True(t, cfg.Import.Recursive)
	assert.Equal(t, 7*24*time.Hour, cfg.Redis.RunTTL)
	assert.False(t, cfg.EmailEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", "/tmp/nfe.db")
	t.Setenv("IMPORT_BATCH_SIZE", "250")
	t.Setenv("IMPORT_RECURSIVE", "false")
	t.Setenv("REDIS_RUN_TTL", "2h")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:/tmp/nfe.db?_foreign_keys=on&_busy_timeout=5000", cfg.GetSQLiteDSN())
	assert.Equal(t, 250, cfg.Import.BatchSize)
	assert.False(t, cfg.Import.Recursive)
	assert.Equal(t, 2*time.Hour, cfg.Redis.RunTTL)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadInvalidValuesUseDefaults(t *testing.T) {
	t.Setenv("IMPORT_BATCH_SIZE", "-5")
	t.Setenv("REDIS_RUN_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.Equal(t, 7*24*time.Hour, cfg.Redis.RunTTL)
}

func TestDSNs(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", Name: "nfe", SSLMode: "disable", Path: ":memory:",
	}}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=nfe sslmode=disable", cfg.GetDSN())
	assert.Equal(t, ":memory:?_foreign_keys=on", cfg.GetSQLiteDSN())
}
