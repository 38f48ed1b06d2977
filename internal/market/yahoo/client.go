// Package yahoo is the REST client for the Yahoo Finance quote API, used for
// NSE-suffixed symbols.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stockfolio/internal/domain"
)

// DefaultBaseURL is the production Yahoo Finance endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client talks to the Yahoo Finance v7/v10 APIs.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client. baseURL falls back to DefaultBaseURL when empty.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type quoteResult struct {
	Symbol               string   `json:"symbol"`
	RegularMarketPrice   *float64 `json:"regularMarketPrice"`
	RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  *int64   `json:"regularMarketVolume"`
	LongName             string   `json:"longName"`
}

type quoteEnvelope struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
	} `json:"quoteResponse"`
}

type summaryProfile struct {
	Sector              string `json:"sector"`
	Industry            string `json:"industry"`
	LongBusinessSummary string `json:"longBusinessSummary"`
}

type summaryEnvelope struct {
	QuoteSummary struct {
		Result []struct {
			SummaryProfile summaryProfile `json:"summaryProfile"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// GetQuote fetches the regular-market quote for the given provider symbol.
// RegularMarketPrice is mandatory; an empty result set or a missing price
// yields domain.ErrQuoteUnavailable.
func (c *Client) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	body, err := c.doGet(ctx, "/v7/finance/quote?"+params.Encode())
	if err != nil {
		return domain.Quote{}, fmt.Errorf("yahoo: get quote %s: %w", symbol, err)
	}

	var env quoteEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Quote{}, fmt.Errorf("yahoo: decode quote %s: %w", symbol, err)
	}
	if len(env.QuoteResponse.Result) == 0 {
		return domain.Quote{}, fmt.Errorf("yahoo: quote %s: %w", symbol, domain.ErrQuoteUnavailable)
	}

	res := env.QuoteResponse.Result[0]
	if res.RegularMarketPrice == nil {
		return domain.Quote{}, fmt.Errorf("yahoo: quote %s has no price: %w", symbol, domain.ErrQuoteUnavailable)
	}

	q := domain.Quote{
		Symbol:       symbol,
		CurrentPrice: *res.RegularMarketPrice,
		CompanyName:  res.LongName,
		ObservedAt:   time.Now().UTC(),
		Source:       domain.QuoteSourceLive,
	}
	if res.RegularMarketDayHigh != nil {
		q.DayHigh = *res.RegularMarketDayHigh
	}
	if res.RegularMarketDayLow != nil {
		q.DayLow = *res.RegularMarketDayLow
	}
	if res.RegularMarketVolume != nil {
		v := *res.RegularMarketVolume
		q.Volume = &v
	}

	return q, nil
}

// GetCompanyInfo fetches the summaryProfile module for the given provider
// symbol.
func (c *Client) GetCompanyInfo(ctx context.Context, symbol string) (domain.CompanyInfo, error) {
	params := url.Values{}
	params.Set("modules", "summaryProfile")

	path := fmt.Sprintf("/v10/finance/quoteSummary/%s?%s", url.PathEscape(symbol), params.Encode())
	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.CompanyInfo{}, fmt.Errorf("yahoo: get profile %s: %w", symbol, err)
	}

	var env summaryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.CompanyInfo{}, fmt.Errorf("yahoo: decode profile %s: %w", symbol, err)
	}
	if len(env.QuoteSummary.Result) == 0 {
		return domain.CompanyInfo{}, fmt.Errorf("yahoo: profile %s: %w", symbol, domain.ErrQuoteUnavailable)
	}

	profile := env.QuoteSummary.Result[0].SummaryProfile
	return domain.CompanyInfo{
		Symbol:      symbol,
		Description: profile.LongBusinessSummary,
		Sector:      profile.Sector,
		Industry:    profile.Industry,
	}, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "stockfolio/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return body, nil
}
