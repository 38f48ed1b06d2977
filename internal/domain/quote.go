// Package domain defines the core types and contracts shared by every layer
// of the stock tracker: quotes, positions, portfolio valuations, and the
// store/cache/publisher interfaces they flow through.
package domain

import "time"

// QuoteSource tags where a quote came from.
type QuoteSource string

const (
	// QuoteSourceLive marks a quote freshly fetched from an upstream provider.
	QuoteSourceLive QuoteSource = "live"
	// QuoteSourceCached marks a quote served from the cache after a provider
	// failure.
	QuoteSourceCached QuoteSource = "cached"
)

// Quote is an immutable snapshot of one symbol's market data at one instant.
// Volume is a pointer because some providers omit it; descriptive fields are
// best-effort and may be empty.
type Quote struct {
	Symbol       string      `json:"symbol"`
	CurrentPrice float64     `json:"currentPrice"`
	DayHigh      float64     `json:"dayHigh"`
	DayLow       float64     `json:"dayLow"`
	Volume       *int64      `json:"volume,omitempty"`
	CompanyName  string      `json:"companyName,omitempty"`
	Sector       string      `json:"sector,omitempty"`
	Industry     string      `json:"industry,omitempty"`
	ObservedAt   time.Time   `json:"observedAt"`
	Source       QuoteSource `json:"source"`
}

// CompanyInfo holds the descriptive metadata a provider returns alongside
// quotes.
type CompanyInfo struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Description string `json:"description,omitempty"`
	Sector      string `json:"sector,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

// MergeCompanyInfo returns a copy of q with the descriptive fields filled in
// from info. Price fields are never touched.
func (q Quote) MergeCompanyInfo(info CompanyInfo) Quote {
	if info.CompanyName != "" {
		q.CompanyName = info.CompanyName
	}
	if info.Sector != "" {
		q.Sector = info.Sector
	}
	if info.Industry != "" {
		q.Industry = info.Industry
	}
	return q
}
