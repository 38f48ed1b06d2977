package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stockfolio/internal/domain"
)

func TestWeightedAverageCost_MatchesGlobalMean(t *testing.T) {
	t.Parallel()

	// Applying fills one at a time must equal the mean over all fills at
	// once, regardless of how many buys there were.
	fills := []struct{ qty, price float64 }{
		{10, 100}, {10, 200}, {5, 80}, {25, 132.5}, {1, 999},
	}

	var qty, avg float64
	var totalCost, totalQty float64
	for _, f := range fills {
		avg = weightedAverageCost(qty, avg, f.qty, f.price)
		qty += f.qty

		totalCost += f.qty * f.price
		totalQty += f.qty
		require.InEpsilon(t, totalCost/totalQty, avg, 1e-12)
	}
}

func TestValuePosition_WithQuote(t *testing.T) {
	t.Parallel()

	p := domain.Position{Symbol: "TCS", Quantity: 10, AverageCost: 100}
	q := domain.Quote{Symbol: "TCS", CurrentPrice: 120}

	v := ValuePosition(p, &q)
	require.Equal(t, 1000.0, v.Investment)
	require.Equal(t, 1200.0, v.CurrentValue)
	require.Equal(t, 200.0, v.ProfitLoss)
	require.True(t, v.PLPercentValid)
	require.InDelta(t, 20.0, v.PLPercent, 1e-9)
}

func TestValuePosition_NoQuoteDegradesToCostBasis(t *testing.T) {
	t.Parallel()

	p := domain.Position{Symbol: "INFY", Quantity: 4, AverageCost: 50}

	v := ValuePosition(p, nil)
	require.Equal(t, 200.0, v.Investment)
	require.Equal(t, 200.0, v.CurrentValue)
	require.Equal(t, 0.0, v.ProfitLoss)
	require.True(t, v.PLPercentValid)
	require.Equal(t, 0.0, v.PLPercent)
}

func TestValuePosition_ZeroInvestmentPercentageInvalid(t *testing.T) {
	t.Parallel()

	p := domain.Position{Symbol: "X", Quantity: 0, AverageCost: 0}
	q := domain.Quote{Symbol: "X", CurrentPrice: 10}

	v := ValuePosition(p, &q)
	require.False(t, v.PLPercentValid)
	require.Equal(t, 0.0, v.PLPercent)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := Summarize(nil, nil)
	require.Equal(t, 0.0, s.TotalInvestment)
	require.Equal(t, 0.0, s.CurrentValue)
	require.Empty(t, s.Items)
	require.NotNil(t, s.Items)
}

func TestSummarize_MixedQuoteAvailability(t *testing.T) {
	t.Parallel()

	positions := []domain.Position{
		{Symbol: "TCS", Quantity: 10, AverageCost: 100},
		{Symbol: "INFY", Quantity: 2, AverageCost: 500},
	}
	quotes := map[string]domain.Quote{
		"TCS": {Symbol: "TCS", CurrentPrice: 120},
		// INFY has no quote and falls back to cost basis.
	}

	s := Summarize(positions, quotes)
	require.Equal(t, 2000.0, s.TotalInvestment)
	require.Equal(t, 2200.0, s.CurrentValue)
	require.Len(t, s.Items, 2)
	require.Equal(t, 200.0, s.Items[0].ProfitLoss)
	require.Equal(t, 0.0, s.Items[1].ProfitLoss)
}
