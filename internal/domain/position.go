package domain

import "time"

// Position is an open holding of one symbol for one owner. AverageCost is the
// quantity-weighted mean of all buy fills that have not been offset by sells;
// a position whose quantity reaches zero is deleted, never kept at zero.
type Position struct {
	ID          string    `json:"id"`
	Owner       string    `json:"owner"`
	Symbol      string    `json:"symbol"`
	Quantity    float64   `json:"quantity"`
	AverageCost float64   `json:"averageCost"`
	OpenedAt    time.Time `json:"openedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PositionValuation is the derived worth of a single position against a
// quote. PLPercentValid is false when investment is zero, in which case
// PLPercent must be ignored rather than read as 0.
type PositionValuation struct {
	Position       Position `json:"position"`
	CurrentPrice   float64  `json:"currentPrice"`
	Investment     float64  `json:"investment"`
	CurrentValue   float64  `json:"currentValue"`
	ProfitLoss     float64  `json:"profitLoss"`
	PLPercent      float64  `json:"profitLossPercentage"`
	PLPercentValid bool     `json:"profitLossPercentageValid"`
}

// PortfolioSummary is the roll-up over all open positions. It is derived on
// demand and never persisted.
type PortfolioSummary struct {
	TotalInvestment float64             `json:"totalInvestment"`
	CurrentValue    float64             `json:"currentValue"`
	Items           []PositionValuation `json:"items"`
}
