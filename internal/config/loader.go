package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STOCKFOLIO_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known STOCKFOLIO_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Providers ──
	setStr(&cfg.Providers.AlphaVantageKey, "STOCKFOLIO_PROVIDERS_ALPHAVANTAGE_KEY")
	setStr(&cfg.Providers.AlphaVantageKey, "ALPHA_VANTAGE_API_KEY") // compatibility alias
	setStr(&cfg.Providers.AlphaVantageBaseURL, "STOCKFOLIO_PROVIDERS_ALPHAVANTAGE_BASE_URL")
	setStr(&cfg.Providers.YahooBaseURL, "STOCKFOLIO_PROVIDERS_YAHOO_BASE_URL")
	setDuration(&cfg.Providers.FetchTimeout, "STOCKFOLIO_PROVIDERS_FETCH_TIMEOUT")
	setInt(&cfg.Providers.RateLimit, "STOCKFOLIO_PROVIDERS_RATE_LIMIT")
	setDuration(&cfg.Providers.RateWindow, "STOCKFOLIO_PROVIDERS_RATE_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "STOCKFOLIO_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "STOCKFOLIO_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "STOCKFOLIO_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "STOCKFOLIO_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "STOCKFOLIO_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "STOCKFOLIO_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "STOCKFOLIO_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "STOCKFOLIO_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "STOCKFOLIO_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "STOCKFOLIO_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "STOCKFOLIO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STOCKFOLIO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STOCKFOLIO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STOCKFOLIO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STOCKFOLIO_REDIS_MAX_RETRIES")

	// ── Refresh ──
	setBool(&cfg.Refresh.Enabled, "STOCKFOLIO_REFRESH_ENABLED")
	setDuration(&cfg.Refresh.Interval, "STOCKFOLIO_REFRESH_INTERVAL")
	setInt(&cfg.Refresh.BatchSize, "STOCKFOLIO_REFRESH_BATCH_SIZE")
	setDuration(&cfg.Refresh.BatchDelay, "STOCKFOLIO_REFRESH_BATCH_DELAY")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "STOCKFOLIO_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "STOCKFOLIO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "STOCKFOLIO_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "STOCKFOLIO_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "STOCKFOLIO_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "STOCKFOLIO_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "STOCKFOLIO_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "STOCKFOLIO_MODE")
	setStr(&cfg.LogLevel, "STOCKFOLIO_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
