package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stockfolio/internal/domain"
	"stockfolio/internal/market"
)

// QuoteFetcher is the provider adapter contract the quote service depends on.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (domain.Quote, error)
	FetchCompanyInfo(ctx context.Context, symbol string) (domain.CompanyInfo, error)
}

// QuoteService composes the provider adapter and the quote cache into the
// resolve-with-fallback policy: live data when the provider answers, cached
// data when it does not, an error only when neither exists.
type QuoteService struct {
	fetcher   QuoteFetcher
	cache     domain.QuoteCache
	publisher domain.QuotePublisher
	logger    *slog.Logger
}

// NewQuoteService creates a QuoteService with all required dependencies.
func NewQuoteService(
	fetcher QuoteFetcher,
	cache domain.QuoteCache,
	publisher domain.QuotePublisher,
	logger *slog.Logger,
) *QuoteService {
	return &QuoteService{
		fetcher:   fetcher,
		cache:     cache,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "quote_service")),
	}
}

// Resolve returns a quote for the symbol. It tries a live fetch first; on
// success the quote is enriched with company info (best effort), persisted,
// published, and returned tagged live. On any provider failure it falls back
// to the cache, returning the entry tagged cached; a transient outage is
// never surfaced while cached data exists. With no live data and no cache
// entry it fails with domain.ErrNoData.
func (s *QuoteService) Resolve(ctx context.Context, symbol string) (domain.Quote, error) {
	canonical := market.Canonical(symbol)

	quote, fetchErr := s.fetcher.FetchQuote(ctx, canonical)
	if fetchErr == nil {
		quote = s.enrich(ctx, quote)
		s.persistAndPublish(ctx, quote)
		return quote, nil
	}
	if errors.Is(fetchErr, context.Canceled) {
		return domain.Quote{}, fetchErr
	}

	s.logger.WarnContext(ctx, "live fetch failed, trying cache",
		slog.String("symbol", canonical),
		slog.String("error", fetchErr.Error()),
	)

	cached, cacheErr := s.cache.Get(ctx, canonical)
	if cacheErr == nil {
		return cached, nil
	}
	if !errors.Is(cacheErr, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, "cache read failed",
			slog.String("symbol", canonical),
			slog.String("error", cacheErr.Error()),
		)
	}

	return domain.Quote{}, fmt.Errorf("quote_service: resolve %s: %w", canonical, domain.ErrNoData)
}

// RefreshSymbol re-fetches one tracked symbol, persists the result, and
// publishes the change. Unlike Resolve it does not fall back to the cache:
// the caller wants a fresh observation or an error. It returns
// domain.ErrNotFound when the symbol is not tracked.
func (s *QuoteService) RefreshSymbol(ctx context.Context, symbol string) (domain.Quote, error) {
	canonical := market.Canonical(symbol)

	prev, err := s.cache.Get(ctx, canonical)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Quote{}, fmt.Errorf("quote_service: refresh %s: %w", canonical, domain.ErrNotFound)
		}
		return domain.Quote{}, fmt.Errorf("quote_service: refresh %s: %w", canonical, err)
	}

	quote, err := s.fetcher.FetchQuote(ctx, canonical)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("quote_service: refresh %s: %w", canonical, err)
	}

	// Carry descriptive fields forward; the quote endpoint is the only
	// place that re-fetches company info.
	quote = quote.MergeCompanyInfo(domain.CompanyInfo{
		CompanyName: prev.CompanyName,
		Sector:      prev.Sector,
		Industry:    prev.Industry,
	})
	s.persistAndPublish(ctx, quote)
	return quote, nil
}

// ListCached returns all cached quotes.
func (s *QuoteService) ListCached(ctx context.Context) ([]domain.Quote, error) {
	quotes, err := s.cache.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("quote_service: list cached: %w", err)
	}
	return quotes, nil
}

// Remove stops tracking a symbol and drops its cache entry.
func (s *QuoteService) Remove(ctx context.Context, symbol string) error {
	canonical := market.Canonical(symbol)
	if _, err := s.cache.Get(ctx, canonical); err != nil {
		return fmt.Errorf("quote_service: remove %s: %w", canonical, err)
	}
	if err := s.cache.Remove(ctx, canonical); err != nil {
		return fmt.Errorf("quote_service: remove %s: %w", canonical, err)
	}
	return nil
}

// Seed loads the given quotes into the cache without touching providers.
func (s *QuoteService) Seed(ctx context.Context, quotes []domain.Quote) error {
	for _, q := range quotes {
		if err := s.cache.Upsert(ctx, q); err != nil {
			return fmt.Errorf("quote_service: seed %s: %w", q.Symbol, err)
		}
	}
	return nil
}

// enrich merges company info into a live quote, best effort: a metadata
// failure never fails the quote. When the provider has no metadata the
// previously cached descriptive fields are kept.
func (s *QuoteService) enrich(ctx context.Context, quote domain.Quote) domain.Quote {
	info, err := s.fetcher.FetchCompanyInfo(ctx, quote.Symbol)
	if err == nil {
		return quote.MergeCompanyInfo(info)
	}

	s.logger.DebugContext(ctx, "company info unavailable",
		slog.String("symbol", quote.Symbol),
		slog.String("error", err.Error()),
	)
	if prev, cacheErr := s.cache.Get(ctx, quote.Symbol); cacheErr == nil {
		quote = quote.MergeCompanyInfo(domain.CompanyInfo{
			CompanyName: prev.CompanyName,
			Sector:      prev.Sector,
			Industry:    prev.Industry,
		})
	}
	return quote
}

// persistAndPublish upserts the quote and emits a change event. Both are best
// effort from the caller's point of view: a cache or publish failure is
// logged, not propagated, so a storage hiccup never hides a good live quote.
func (s *QuoteService) persistAndPublish(ctx context.Context, quote domain.Quote) {
	if err := s.cache.Upsert(ctx, quote); err != nil {
		s.logger.ErrorContext(ctx, "quote upsert failed",
			slog.String("symbol", quote.Symbol),
			slog.String("error", err.Error()),
		)
	}
	if err := s.publisher.Publish(ctx, quote); err != nil {
		s.logger.WarnContext(ctx, "quote publish failed",
			slog.String("symbol", quote.Symbol),
			slog.String("error", err.Error()),
		)
	}
}
