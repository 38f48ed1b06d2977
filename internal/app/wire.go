package app

import (
	"context"
	"fmt"
	"log/slog"

	"stockfolio/internal/cache/redis"
	"stockfolio/internal/config"
	"stockfolio/internal/domain"
	"stockfolio/internal/market"
	"stockfolio/internal/market/alphavantage"
	"stockfolio/internal/market/yahoo"
	"stockfolio/internal/notify"
	"stockfolio/internal/service"
	"stockfolio/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores and caches
	PositionStore domain.PositionStore
	QuoteCache    domain.QuoteCache
	Publisher     *redis.Publisher
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager

	// Market data
	Adapter *market.Adapter

	// Services
	Quotes    *service.QuoteService
	Portfolio *service.PortfolioService

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that touch positions.
func needsPostgres(mode string) bool {
	return mode == "serve"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (cache, pub/sub, locks, limiter — every mode needs it) ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.QuoteCache = redis.NewQuoteCache(redisClient)
	deps.Publisher = redis.NewPublisher(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- PostgreSQL (only for modes that serve the portfolio) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.PositionStore = postgres.NewPositionStore(pgClient.Pool())
	}

	// --- Provider adapter ---
	table := cfg.Market.SymbolTable
	if len(table) == 0 {
		table = market.DefaultSymbolTable()
	}
	deps.Adapter = market.NewAdapter(
		market.NewNormalizer(table),
		alphavantage.New(cfg.Providers.AlphaVantageBaseURL, cfg.Providers.AlphaVantageKey),
		yahoo.New(cfg.Providers.YahooBaseURL),
		deps.RateLimiter,
		market.AdapterConfig{
			FetchTimeout: cfg.Providers.FetchTimeout.Duration,
			RateLimit:    cfg.Providers.RateLimit,
			RateWindow:   cfg.Providers.RateWindow.Duration,
		},
		logger,
	)

	// --- Services ---
	deps.Quotes = service.NewQuoteService(deps.Adapter, deps.QuoteCache, deps.Publisher, logger)
	if deps.PositionStore != nil {
		deps.Portfolio = service.NewPortfolioService(deps.PositionStore, deps.QuoteCache, deps.LockManager, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
