package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "refresh"

[providers]
alphavantage_key = "demo"
fetch_timeout = "3s"

[refresh]
interval = "1m"
batch_size = 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "refresh", cfg.Mode)
	require.Equal(t, "demo", cfg.Providers.AlphaVantageKey)
	require.Equal(t, 3*time.Second, cfg.Providers.FetchTimeout.Duration)
	require.Equal(t, time.Minute, cfg.Refresh.Interval.Duration)
	require.Equal(t, 2, cfg.Refresh.BatchSize)

	// Untouched values keep their defaults.
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, time.Minute, cfg.Refresh.BatchDelay.Duration)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `mode = "serve"`)

	t.Setenv("STOCKFOLIO_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("STOCKFOLIO_PROVIDERS_ALPHAVANTAGE_KEY", "from-env")
	t.Setenv("STOCKFOLIO_REFRESH_INTERVAL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	require.Equal(t, "from-env", cfg.Providers.AlphaVantageKey)
	require.Equal(t, 90*time.Second, cfg.Refresh.Interval.Duration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "dance"
	cfg.Refresh.BatchSize = 0
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown mode")
	require.Contains(t, err.Error(), "batch_size")
	require.Contains(t, err.Error(), "redis: addr")
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.AlphaVantageKey = "super-secret"
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "bot-token"

	red := RedactedConfig(&cfg)

	require.Equal(t, "***", red.Providers.AlphaVantageKey)
	require.Equal(t, "***", red.Postgres.Password)
	require.Equal(t, "***", red.Notify.TelegramToken)
	// The original is untouched.
	require.Equal(t, "super-secret", cfg.Providers.AlphaVantageKey)
	// Empty secrets stay empty rather than becoming placeholders.
	require.Empty(t, red.Redis.Password)
}
