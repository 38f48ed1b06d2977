package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stockfolio/internal/domain"
)

// nseSuffix marks symbols served by Yahoo Finance instead of Alpha Vantage.
const nseSuffix = ".NS"

// defaultFetchTimeout bounds a single provider call so one slow upstream
// cannot stall a whole refresh batch.
const defaultFetchTimeout = 10 * time.Second

// providerClient is the shape both upstream REST clients share.
type providerClient interface {
	GetQuote(ctx context.Context, symbol string) (domain.Quote, error)
	GetCompanyInfo(ctx context.Context, symbol string) (domain.CompanyInfo, error)
}

// AdapterConfig tunes the provider adapter.
type AdapterConfig struct {
	// FetchTimeout bounds each upstream call. Zero means the default.
	FetchTimeout time.Duration
	// RateLimit / RateWindow gate outbound calls via the limiter. A zero
	// RateLimit disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Adapter routes each symbol to exactly one upstream provider based on its
// normalized form and maps the response into the canonical Quote shape. It is
// stateless: persisting successful fetches is the caller's job.
type Adapter struct {
	norm         *Normalizer
	alphavantage providerClient
	yahoo        providerClient
	limiter      domain.RateLimiter
	cfg          AdapterConfig
	logger       *slog.Logger
}

// NewAdapter creates an Adapter. limiter may be nil to disable rate limiting.
func NewAdapter(
	norm *Normalizer,
	alphavantage providerClient,
	yahoo providerClient,
	limiter domain.RateLimiter,
	cfg AdapterConfig,
	logger *slog.Logger,
) *Adapter {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	return &Adapter{
		norm:         norm,
		alphavantage: alphavantage,
		yahoo:        yahoo,
		limiter:      limiter,
		cfg:          cfg,
		logger:       logger.With(slog.String("component", "market_adapter")),
	}
}

// FetchQuote fetches a live quote for the given ticker. The returned quote
// carries the canonical symbol (no provider suffix) and Source=live. Provider
// timeouts and rate-limit denials surface as domain.ErrQuoteUnavailable.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	canonical := Canonical(symbol)
	provider, name, providerSymbol := a.route(canonical)

	if err := a.allow(ctx, name); err != nil {
		return domain.Quote{}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	q, err := provider.GetQuote(fetchCtx, providerSymbol)
	if err != nil {
		return domain.Quote{}, mapProviderErr(fetchCtx, err)
	}

	// The provider response is keyed by its own identifier; callers only
	// ever see the canonical ticker.
	q.Symbol = canonical
	return q, nil
}

// FetchCompanyInfo fetches descriptive metadata for the given ticker.
func (a *Adapter) FetchCompanyInfo(ctx context.Context, symbol string) (domain.CompanyInfo, error) {
	canonical := Canonical(symbol)
	provider, name, providerSymbol := a.route(canonical)

	if err := a.allow(ctx, name); err != nil {
		return domain.CompanyInfo{}, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	info, err := provider.GetCompanyInfo(fetchCtx, providerSymbol)
	if err != nil {
		return domain.CompanyInfo{}, mapProviderErr(fetchCtx, err)
	}

	info.Symbol = canonical
	if info.CompanyName == "" {
		info.CompanyName = canonical
	}
	return info, nil
}

// route picks the single upstream for a canonical ticker.
func (a *Adapter) route(canonical string) (providerClient, string, string) {
	providerSymbol := a.norm.Normalize(canonical)
	if strings.HasSuffix(providerSymbol, nseSuffix) {
		return a.yahoo, "yahoo", providerSymbol
	}
	return a.alphavantage, "alphavantage", providerSymbol
}

// allow consults the rate limiter for the named provider. A denial is folded
// into ErrQuoteUnavailable so callers take the cache-fallback path; a limiter
// backend error is logged and the call proceeds rather than blocking quotes
// on limiter availability.
func (a *Adapter) allow(ctx context.Context, provider string) error {
	if a.limiter == nil || a.cfg.RateLimit <= 0 {
		return nil
	}
	ok, err := a.limiter.Allow(ctx, "provider:"+provider, a.cfg.RateLimit, a.cfg.RateWindow)
	if err != nil {
		a.logger.WarnContext(ctx, "rate limiter unavailable, allowing call",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !ok {
		return fmt.Errorf("market: provider %s rate limited: %w", provider, domain.ErrQuoteUnavailable)
	}
	return nil
}

// mapProviderErr folds timeouts into ErrQuoteUnavailable per the error
// taxonomy, leaving caller-initiated cancellation intact.
func mapProviderErr(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrQuoteUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("market: provider timeout: %w", domain.ErrQuoteUnavailable)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("market: %v: %w", err, domain.ErrQuoteUnavailable)
}
