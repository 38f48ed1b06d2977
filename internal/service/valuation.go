// Package service contains the application services: on-demand quote
// resolution, the batch refresh scheduler, and the position valuation engine.
package service

import "stockfolio/internal/domain"

// weightedAverageCost folds a new buy fill into an existing cost basis. Full
// float64 precision; any rounding is display-side only.
func weightedAverageCost(oldQty, oldAvg, fillQty, fillPrice float64) float64 {
	newQty := oldQty + fillQty
	return (oldQty*oldAvg + fillQty*fillPrice) / newQty
}

// ValuePosition computes the derived worth of a position against a quote.
// quote may be nil: valuation then degrades to cost basis instead of failing,
// which makes profit/loss flat rather than wrong. The P&L percentage is
// marked invalid when investment is zero instead of dividing by it.
func ValuePosition(p domain.Position, quote *domain.Quote) domain.PositionValuation {
	price := p.AverageCost
	if quote != nil {
		price = quote.CurrentPrice
	}

	investment := p.Quantity * p.AverageCost
	currentValue := p.Quantity * price
	profitLoss := currentValue - investment

	v := domain.PositionValuation{
		Position:     p,
		CurrentPrice: price,
		Investment:   investment,
		CurrentValue: currentValue,
		ProfitLoss:   profitLoss,
	}
	if investment != 0 {
		v.PLPercent = profitLoss / investment * 100
		v.PLPercentValid = true
	}
	return v
}

// Summarize folds ValuePosition over all positions. Totals are plain sums;
// summation order is not significant.
func Summarize(positions []domain.Position, quotes map[string]domain.Quote) domain.PortfolioSummary {
	summary := domain.PortfolioSummary{
		Items: make([]domain.PositionValuation, 0, len(positions)),
	}
	for _, p := range positions {
		var quote *domain.Quote
		if q, ok := quotes[p.Symbol]; ok {
			quote = &q
		}
		v := ValuePosition(p, quote)
		summary.TotalInvestment += v.Investment
		summary.CurrentValue += v.CurrentValue
		summary.Items = append(summary.Items, v)
	}
	return summary
}
