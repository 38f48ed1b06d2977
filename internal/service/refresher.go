package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"stockfolio/internal/domain"
)

// RefresherConfig tunes the batch refresh scheduler. The defaults mirror the
// provider quota the tracker was built around: five symbols per batch, one
// minute between batches, a full sweep every five minutes.
type RefresherConfig struct {
	Interval   time.Duration
	BatchSize  int
	BatchDelay time.Duration
}

// withDefaults fills in zero fields.
func (c RefresherConfig) withDefaults() RefresherConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	} else if c.BatchDelay == 0 {
		c.BatchDelay = time.Minute
	}
	return c
}

// Alerter receives operational alerts; see the notify package.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Refresher periodically sweeps all tracked symbols, refreshing each through
// the provider adapter in rate-limited batches, writing results back to the
// quote cache, and publishing change events.
type Refresher struct {
	fetcher   QuoteFetcher
	cache     domain.QuoteCache
	publisher domain.QuotePublisher
	alerter   Alerter // optional
	cfg       RefresherConfig
	logger    *slog.Logger
}

// NewRefresher creates a Refresher. alerter may be nil.
func NewRefresher(
	fetcher QuoteFetcher,
	cache domain.QuoteCache,
	publisher domain.QuotePublisher,
	alerter Alerter,
	cfg RefresherConfig,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		fetcher:   fetcher,
		cache:     cache,
		publisher: publisher,
		alerter:   alerter,
		cfg:       cfg.withDefaults(),
		logger:    logger.With(slog.String("component", "refresher")),
	}
}

// Run executes refresh cycles until the context is cancelled. The first cycle
// starts immediately; each subsequent cycle starts once Interval has elapsed
// since the previous cycle began. Cancellation is honored between batches, so
// an in-flight batch always finishes before the loop exits.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "refresher starting",
		slog.Duration("interval", r.cfg.Interval),
		slog.Int("batch_size", r.cfg.BatchSize),
		slog.Duration("batch_delay", r.cfg.BatchDelay),
	)

	for {
		cycleStart := time.Now()
		r.RunCycle(ctx)

		if err := sleepUntil(ctx, cycleStart.Add(r.cfg.Interval)); err != nil {
			r.logger.InfoContext(ctx, "refresher stopping")
			return err
		}
	}
}

// RunCycle performs one full sweep over all tracked symbols. A failure to
// enumerate symbols aborts only this cycle; per-symbol failures are logged
// and skipped. It reports how many symbols refreshed and how many failed.
func (r *Refresher) RunCycle(ctx context.Context) (refreshed, failed int) {
	symbols, err := r.cache.ListTrackedSymbols(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "cycle aborted: cannot list tracked symbols",
			slog.String("error", err.Error()),
		)
		return 0, 0
	}
	if len(symbols) == 0 {
		return 0, 0
	}

	batches := partition(symbols, r.cfg.BatchSize)
	var failedSymbols []string

	for i, batch := range batches {
		// The stop signal is only checked between batches; an in-flight
		// batch always runs to completion.
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := sleep(ctx, r.cfg.BatchDelay); err != nil {
				break
			}
		}

		okCount, bad := r.refreshBatch(ctx, batch)
		refreshed += okCount
		failedSymbols = append(failedSymbols, bad...)
	}

	failed = len(failedSymbols)
	r.logger.InfoContext(ctx, "refresh cycle complete",
		slog.Int("symbols", len(symbols)),
		slog.Int("refreshed", refreshed),
		slog.Int("failed", failed),
	)
	r.alertFailures(ctx, failedSymbols)
	return refreshed, failed
}

// refreshBatch fetches all symbols of one batch concurrently and waits for
// every fetch to resolve. One symbol's failure never aborts the batch.
func (r *Refresher) refreshBatch(ctx context.Context, batch []string) (ok int, failedSymbols []string) {
	results := make([]bool, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range batch {
		g.Go(func() error {
			if err := r.refreshOne(gctx, symbol); err != nil {
				r.logger.WarnContext(gctx, "symbol refresh failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
				return nil // recorded, never propagated
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i, refreshed := range results {
		if refreshed {
			ok++
		} else {
			failedSymbols = append(failedSymbols, batch[i])
		}
	}
	return ok, failedSymbols
}

// refreshOne fetches, persists, and publishes a single symbol.
func (r *Refresher) refreshOne(ctx context.Context, symbol string) error {
	quote, err := r.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		return err
	}

	// Descriptive fields are not re-fetched on scheduled refreshes; keep
	// whatever the cache already knows.
	if prev, cacheErr := r.cache.Get(ctx, symbol); cacheErr == nil {
		quote = quote.MergeCompanyInfo(domain.CompanyInfo{
			CompanyName: prev.CompanyName,
			Sector:      prev.Sector,
			Industry:    prev.Industry,
		})
	}

	if err := r.cache.Upsert(ctx, quote); err != nil {
		return err
	}
	if err := r.publisher.Publish(ctx, quote); err != nil {
		r.logger.WarnContext(ctx, "quote publish failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// alertFailures notifies operators when a cycle left symbols unrefreshed.
func (r *Refresher) alertFailures(ctx context.Context, failedSymbols []string) {
	if r.alerter == nil || len(failedSymbols) == 0 {
		return
	}
	msg := fmt.Sprintf("%d symbol(s) failed to refresh: %s",
		len(failedSymbols), strings.Join(failedSymbols, ", "))
	if err := r.alerter.Notify(ctx, "refresh_failed", "Quote refresh failures", msg); err != nil {
		r.logger.WarnContext(ctx, "alert dispatch failed",
			slog.String("error", err.Error()),
		)
	}
}

// partition splits symbols into batches of at most size elements.
func partition(symbols []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sleepUntil waits until deadline or context cancellation.
func sleepUntil(ctx context.Context, deadline time.Time) error {
	return sleep(ctx, time.Until(deadline))
}
