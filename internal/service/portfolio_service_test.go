package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockfolio/internal/domain"
)

func newPortfolioService(store *fakeStore, cache *fakeCache) *PortfolioService {
	return NewPortfolioService(store, cache, newFakeLocks(), discardLogger())
}

func TestPortfolioService_BuyOpensThenAverages(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newPortfolioService(store, newFakeCache())
	ctx := context.Background()

	p, err := svc.Buy(ctx, "alice", "tcs", 10, 100)
	require.NoError(t, err)
	require.Equal(t, "TCS", p.Symbol)
	require.Equal(t, 10.0, p.Quantity)
	require.Equal(t, 100.0, p.AverageCost)
	require.NotEmpty(t, p.ID)

	p, err = svc.Buy(ctx, "alice", "TCS", 10, 200)
	require.NoError(t, err)
	require.Equal(t, 20.0, p.Quantity)
	require.Equal(t, 150.0, p.AverageCost)

	// A partial sell leaves the cost basis untouched.
	qty := 5.0
	p, closed, err := svc.Sell(ctx, p.ID, &qty)
	require.NoError(t, err)
	require.False(t, closed)
	require.Equal(t, 15.0, p.Quantity)
	require.Equal(t, 150.0, p.AverageCost)
}

func TestPortfolioService_BuyValidation(t *testing.T) {
	t.Parallel()

	svc := newPortfolioService(newFakeStore(), newFakeCache())
	ctx := context.Background()

	_, err := svc.Buy(ctx, "alice", "TCS", 0, 100)
	require.Error(t, err)
	_, err = svc.Buy(ctx, "alice", "TCS", -1, 100)
	require.Error(t, err)
	_, err = svc.Buy(ctx, "alice", "TCS", 10, 0)
	require.Error(t, err)
}

func TestPortfolioService_SellAllCloses(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newPortfolioService(store, newFakeCache())
	ctx := context.Background()

	p, err := svc.Buy(ctx, "alice", "INFY", 8, 1450)
	require.NoError(t, err)

	// Omitted quantity means full close.
	_, closed, err := svc.Sell(ctx, p.ID, nil)
	require.NoError(t, err)
	require.True(t, closed)

	// Closed positions are removed, not retained at zero.
	_, err = store.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPortfolioService_SellExactQuantityCloses(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newPortfolioService(store, newFakeCache())
	ctx := context.Background()

	p, err := svc.Buy(ctx, "alice", "INFY", 8, 1450)
	require.NoError(t, err)

	qty := 8.0
	_, closed, err := svc.Sell(ctx, p.ID, &qty)
	require.NoError(t, err)
	require.True(t, closed)
}

func TestPortfolioService_OversellFailsUnchanged(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newPortfolioService(store, newFakeCache())
	ctx := context.Background()

	p, err := svc.Buy(ctx, "alice", "INFY", 8, 1450)
	require.NoError(t, err)

	qty := 9.0
	_, _, err = svc.Sell(ctx, p.ID, &qty)
	require.ErrorIs(t, err, domain.ErrInsufficientQuantity)

	// The position is untouched by a failed sell.
	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 8.0, got.Quantity)
	require.Equal(t, 1450.0, got.AverageCost)
}

func TestPortfolioService_SellUnknownPosition(t *testing.T) {
	t.Parallel()

	svc := newPortfolioService(newFakeStore(), newFakeCache())

	_, _, err := svc.Sell(context.Background(), "missing-id", nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPortfolioService_SummaryUsesCachedQuotes(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	cache := newFakeCache()
	svc := newPortfolioService(store, cache)
	ctx := context.Background()

	_, err := svc.Buy(ctx, "alice", "TCS", 10, 100)
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "alice", "INFY", 2, 500)
	require.NoError(t, err)
	require.NoError(t, cache.Upsert(ctx, domain.Quote{
		Symbol: "TCS", CurrentPrice: 120, ObservedAt: time.Now().UTC(),
	}))

	s, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, 2000.0, s.TotalInvestment)
	require.Equal(t, 2200.0, s.CurrentValue)
	require.Len(t, s.Items, 2)
}

func TestPortfolioService_SummaryEmpty(t *testing.T) {
	t.Parallel()

	svc := newPortfolioService(newFakeStore(), newFakeCache())

	s, err := svc.Summary(context.Background(), "nobody")
	require.NoError(t, err)
	require.Equal(t, 0.0, s.TotalInvestment)
	require.Equal(t, 0.0, s.CurrentValue)
	require.Empty(t, s.Items)
}

func TestPortfolioService_OwnersAreIsolated(t *testing.T) {
	t.Parallel()

	svc := newPortfolioService(newFakeStore(), newFakeCache())
	ctx := context.Background()

	_, err := svc.Buy(ctx, "alice", "TCS", 10, 100)
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "bob", "TCS", 3, 110)
	require.NoError(t, err)

	alice, err := svc.ListOpen(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	require.Equal(t, 10.0, alice[0].Quantity)

	bob, err := svc.ListOpen(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	require.Equal(t, 3.0, bob[0].Quantity)
}
