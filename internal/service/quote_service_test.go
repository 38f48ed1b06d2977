package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockfolio/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQuoteService_ResolveLive(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.quotes["TCS"] = domain.Quote{
		Symbol: "TCS", CurrentPrice: 3250.80, DayHigh: 3275.25, DayLow: 3240.00,
		ObservedAt: time.Now().UTC(), Source: domain.QuoteSourceLive,
	}
	fetcher.infos["TCS"] = domain.CompanyInfo{
		Symbol: "TCS", CompanyName: "Tata Consultancy Services Ltd.",
		Sector: "Technology", Industry: "IT Services",
	}
	cache := newFakeCache()
	pub := &fakePublisher{}
	svc := NewQuoteService(fetcher, cache, pub, discardLogger())

	q, err := svc.Resolve(context.Background(), "tcs")
	require.NoError(t, err)
	require.Equal(t, domain.QuoteSourceLive, q.Source)
	require.Equal(t, "TCS", q.Symbol)
	require.Equal(t, "Tata Consultancy Services Ltd.", q.CompanyName)

	// The live quote was persisted and published.
	cached, err := cache.Get(context.Background(), "TCS")
	require.NoError(t, err)
	require.Equal(t, 3250.80, cached.CurrentPrice)
	require.Equal(t, 1, pub.count())
}

func TestQuoteService_ResolveFallsBackToCache(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["TCS"] = domain.ErrQuoteUnavailable
	cache := newFakeCache()
	require.NoError(t, cache.Upsert(context.Background(), domain.Quote{
		Symbol: "TCS", CurrentPrice: 3200, ObservedAt: time.Now().UTC(),
	}))
	pub := &fakePublisher{}
	svc := NewQuoteService(fetcher, cache, pub, discardLogger())

	q, err := svc.Resolve(context.Background(), "TCS")
	require.NoError(t, err, "a transient outage must never surface while cached data exists")
	require.Equal(t, domain.QuoteSourceCached, q.Source)
	require.Equal(t, 3200.0, q.CurrentPrice)
	require.Equal(t, 0, pub.count(), "cached responses are not republished")
}

func TestQuoteService_ResolveNoDataAnywhere(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["GHOST"] = domain.ErrQuoteUnavailable
	svc := NewQuoteService(fetcher, newFakeCache(), &fakePublisher{}, discardLogger())

	_, err := svc.Resolve(context.Background(), "GHOST")
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestQuoteService_ResolveKeepsCachedCompanyInfo(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.quotes["INFY"] = domain.Quote{
		Symbol: "INFY", CurrentPrice: 1475.60, ObservedAt: time.Now().UTC(),
		Source: domain.QuoteSourceLive,
	}
	// No company info from the provider this time.
	cache := newFakeCache()
	require.NoError(t, cache.Upsert(context.Background(), domain.Quote{
		Symbol: "INFY", CurrentPrice: 1400, CompanyName: "Infosys Ltd.",
		Sector: "Technology", ObservedAt: time.Now().UTC().Add(-time.Hour),
	}))
	svc := NewQuoteService(fetcher, cache, &fakePublisher{}, discardLogger())

	q, err := svc.Resolve(context.Background(), "INFY")
	require.NoError(t, err)
	require.Equal(t, "Infosys Ltd.", q.CompanyName)
	require.Equal(t, "Technology", q.Sector)
	require.Equal(t, 1475.60, q.CurrentPrice)
}

func TestQuoteService_RefreshSymbolUntracked(t *testing.T) {
	t.Parallel()

	svc := NewQuoteService(newFakeFetcher(), newFakeCache(), &fakePublisher{}, discardLogger())

	_, err := svc.RefreshSymbol(context.Background(), "TCS")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteService_RefreshSymbolNoCacheFallback(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["TCS"] = domain.ErrQuoteUnavailable
	cache := newFakeCache()
	require.NoError(t, cache.Upsert(context.Background(), domain.Quote{
		Symbol: "TCS", CurrentPrice: 3200, ObservedAt: time.Now().UTC(),
	}))
	svc := NewQuoteService(fetcher, cache, &fakePublisher{}, discardLogger())

	_, err := svc.RefreshSymbol(context.Background(), "TCS")
	require.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestQuoteService_RemoveUnknown(t *testing.T) {
	t.Parallel()

	svc := NewQuoteService(newFakeFetcher(), newFakeCache(), &fakePublisher{}, discardLogger())

	err := svc.Remove(context.Background(), "NOPE")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteService_Seed(t *testing.T) {
	t.Parallel()

	cache := newFakeCache()
	svc := NewQuoteService(newFakeFetcher(), cache, &fakePublisher{}, discardLogger())

	err := svc.Seed(context.Background(), []domain.Quote{
		{Symbol: "RELIANCE", CurrentPrice: 2450.75, ObservedAt: time.Now().UTC()},
		{Symbol: "TCS", CurrentPrice: 3250.80, ObservedAt: time.Now().UTC()},
	})
	require.NoError(t, err)

	symbols, err := cache.ListTrackedSymbols(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"RELIANCE", "TCS"}, symbols)
}

func TestQuoteService_ResolveContextCanceled(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["TCS"] = context.Canceled
	cache := newFakeCache()
	require.NoError(t, cache.Upsert(context.Background(), domain.Quote{
		Symbol: "TCS", CurrentPrice: 3200, ObservedAt: time.Now().UTC(),
	}))
	svc := NewQuoteService(fetcher, cache, &fakePublisher{}, discardLogger())

	_, err := svc.Resolve(context.Background(), "TCS")
	require.True(t, errors.Is(err, context.Canceled), "cancellation is not a provider outage")
}
