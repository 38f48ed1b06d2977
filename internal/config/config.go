// Package config defines the top-level configuration for the stockfolio
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by STOCKFOLIO_* environment variables.
type Config struct {
	Providers ProvidersConfig `toml:"providers"`
	Market    MarketConfig    `toml:"market"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Refresh   RefreshConfig   `toml:"refresh"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ProvidersConfig holds upstream market-data provider settings.
type ProvidersConfig struct {
	AlphaVantageKey     string   `toml:"alphavantage_key"`
	AlphaVantageBaseURL string   `toml:"alphavantage_base_url"`
	YahooBaseURL        string   `toml:"yahoo_base_url"`
	FetchTimeout        duration `toml:"fetch_timeout"`
	// RateLimit / RateWindow bound outbound calls per provider. A zero
	// RateLimit disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// MarketConfig holds symbol-routing parameters.
type MarketConfig struct {
	// SymbolTable maps canonical tickers to provider identifiers
	// (e.g. "INFY" -> "INFY.NS"). Empty means the built-in NSE table.
	SymbolTable map[string]string `toml:"symbol_table"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// RefreshConfig holds background refresh scheduler parameters.
type RefreshConfig struct {
	Enabled    bool     `toml:"enabled"`
	Interval   duration `toml:"interval"`
	BatchSize  int      `toml:"batch_size"`
	BatchDelay duration `toml:"batch_delay"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Providers: ProvidersConfig{
			AlphaVantageBaseURL: "https://www.alphavantage.co",
			YahooBaseURL:        "https://query1.finance.yahoo.com",
			FetchTimeout:        duration{10 * time.Second},
			RateLimit:           5,
			RateWindow:          duration{time.Minute},
		},
		Market: MarketConfig{
			SymbolTable: map[string]string{},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "stockfolio",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Refresh: RefreshConfig{
			Enabled:    true,
			Interval:   duration{5 * time.Minute},
			BatchSize:  5,
			BatchDelay: duration{time.Minute},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"refresh_failed", "error"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"refresh": true,
	"seed":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, refresh, seed)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Providers
	if c.Providers.FetchTimeout.Duration <= 0 {
		errs = append(errs, "providers: fetch_timeout must be > 0")
	}
	if c.Providers.RateLimit < 0 {
		errs = append(errs, "providers: rate_limit must be >= 0")
	}
	if c.Providers.RateLimit > 0 && c.Providers.RateWindow.Duration <= 0 {
		errs = append(errs, "providers: rate_window must be > 0 when rate_limit is set")
	}

	// Market — provider identifiers must not be blank.
	for ticker, mapped := range c.Market.SymbolTable {
		if strings.TrimSpace(ticker) == "" || strings.TrimSpace(mapped) == "" {
			errs = append(errs, "market: symbol_table entries must not be empty")
			break
		}
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Refresh
	if c.Refresh.Enabled || c.Mode == "refresh" {
		if c.Refresh.Interval.Duration <= 0 {
			errs = append(errs, "refresh: interval must be > 0")
		}
		if c.Refresh.BatchSize < 1 {
			errs = append(errs, "refresh: batch_size must be >= 1")
		}
		if c.Refresh.BatchDelay.Duration < 0 {
			errs = append(errs, "refresh: batch_delay must be >= 0")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify — chat id without a token is a misconfiguration.
	if c.Notify.TelegramChatID != "" && c.Notify.TelegramToken == "" {
		errs = append(errs, "notify: telegram_token is required when telegram_chat_id is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
