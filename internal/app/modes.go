package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"stockfolio/internal/domain"
	"stockfolio/internal/server"
	"stockfolio/internal/server/handler"
	"stockfolio/internal/server/ws"
	"stockfolio/internal/service"
)

// ServeMode runs the full service: HTTP API, WebSocket hub, and the
// background refresh scheduler. It blocks until the context is cancelled or
// one of the subsystems fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	// Background refresher.
	if a.cfg.Refresh.Enabled {
		refresher := service.NewRefresher(
			deps.Adapter,
			deps.QuoteCache,
			deps.Publisher,
			deps.Notifier,
			service.RefresherConfig{
				Interval:   a.cfg.Refresh.Interval.Duration,
				BatchSize:  a.cfg.Refresh.BatchSize,
				BatchDelay: a.cfg.Refresh.BatchDelay.Duration,
			},
			a.logger,
		)
		g.Go(func() error {
			return refresher.Run(ctx)
		})
	}

	// WebSocket hub bridging the quotes channel to browser clients.
	hub := ws.NewHub(deps.Publisher, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// HTTP API.
	if a.cfg.Server.Enabled {
		srv := server.NewServer(
			server.Config{
				Port:        a.cfg.Server.Port,
				CORSOrigins: a.cfg.Server.CORSOrigins,
			},
			server.Handlers{
				Health:    handler.NewHealthHandler(a.logger),
				Stocks:    handler.NewStockHandler(deps.Quotes, a.logger),
				Portfolio: handler.NewPortfolioHandler(deps.Portfolio, a.logger),
			},
			hub,
			deps.RateLimiter,
			a.logger,
		)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	return g.Wait()
}

// RefreshMode runs exactly one refresh cycle over every tracked symbol and
// exits. Useful from cron or for manual catch-up.
func (a *App) RefreshMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting refresh mode")

	refresher := service.NewRefresher(
		deps.Adapter,
		deps.QuoteCache,
		deps.Publisher,
		deps.Notifier,
		service.RefresherConfig{
			Interval:   a.cfg.Refresh.Interval.Duration,
			BatchSize:  a.cfg.Refresh.BatchSize,
			BatchDelay: a.cfg.Refresh.BatchDelay.Duration,
		},
		a.logger,
	)

	refreshed, failed := refresher.RunCycle(ctx)
	a.logger.InfoContext(ctx, "refresh cycle finished",
		slog.Int("refreshed", refreshed),
		slog.Int("failed", failed),
	)
	return ctx.Err()
}

// SeedMode loads a handful of sample NSE quotes into the cache so the
// dashboard has data before the first refresh cycle, then exits.
func (a *App) SeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting seed mode")

	quotes := sampleQuotes(time.Now().UTC())
	if err := deps.Quotes.Seed(ctx, quotes); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "seeded sample quotes", slog.Int("count", len(quotes)))
	return nil
}

// sampleQuotes returns the seed data set.
func sampleQuotes(now time.Time) []domain.Quote {
	vol := func(v int64) *int64 { return &v }
	return []domain.Quote{
		{
			Symbol:       "RELIANCE",
			CurrentPrice: 2450.75,
			DayHigh:      2460.00,
			DayLow:       2435.50,
			Volume:       vol(1245678),
			CompanyName:  "Reliance Industries Ltd",
			ObservedAt:   now,
			Source:       domain.QuoteSourceCached,
		},
		{
			Symbol:       "TCS",
			CurrentPrice: 3250.80,
			DayHigh:      3275.25,
			DayLow:       3240.00,
			Volume:       vol(987654),
			CompanyName:  "Tata Consultancy Services Ltd",
			ObservedAt:   now,
			Source:       domain.QuoteSourceCached,
		},
		{
			Symbol:       "INFY",
			CurrentPrice: 1475.60,
			DayHigh:      1480.00,
			DayLow:       1470.25,
			Volume:       vol(876543),
			CompanyName:  "Infosys Ltd",
			ObservedAt:   now,
			Source:       domain.QuoteSourceCached,
		},
	}
}
