// Package alphavantage is the REST client for the Alpha Vantage API, used
// for quotes and company overviews of non-NSE symbols.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stockfolio/internal/domain"
)

// DefaultBaseURL is the production Alpha Vantage endpoint.
const DefaultBaseURL = "https://www.alphavantage.co"

// Client talks to the Alpha Vantage query API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. baseURL falls back to DefaultBaseURL when empty.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// globalQuoteEnvelope mirrors the GLOBAL_QUOTE response. Alpha Vantage keys
// every field with a numeric prefix and returns all values as strings.
type globalQuoteEnvelope struct {
	GlobalQuote map[string]string `json:"Global Quote"`
}

// overviewResponse mirrors the OVERVIEW response.
type overviewResponse struct {
	Symbol      string `json:"Symbol"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	Sector      string `json:"Sector"`
	Industry    string `json:"Industry"`
	Note        string `json:"Note"`
}

// GetQuote fetches the GLOBAL_QUOTE for the given provider symbol and maps it
// into a domain.Quote. The price field is mandatory; its absence or
// unparseability yields domain.ErrQuoteUnavailable. High, low, and volume are
// optional: a parse failure leaves the field unset.
func (c *Client) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	body, err := c.doGet(ctx, "/query?"+params.Encode())
	if err != nil {
		return domain.Quote{}, fmt.Errorf("alphavantage: get quote %s: %w", symbol, err)
	}

	var env globalQuoteEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Quote{}, fmt.Errorf("alphavantage: decode quote %s: %w", symbol, err)
	}
	if len(env.GlobalQuote) == 0 {
		return domain.Quote{}, fmt.Errorf("alphavantage: quote %s: %w", symbol, domain.ErrQuoteUnavailable)
	}

	price, err := strconv.ParseFloat(env.GlobalQuote["05. price"], 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("alphavantage: quote %s has no price: %w", symbol, domain.ErrQuoteUnavailable)
	}

	q := domain.Quote{
		Symbol:       symbol,
		CurrentPrice: price,
		ObservedAt:   time.Now().UTC(),
		Source:       domain.QuoteSourceLive,
	}
	if high, err := strconv.ParseFloat(env.GlobalQuote["03. high"], 64); err == nil {
		q.DayHigh = high
	}
	if low, err := strconv.ParseFloat(env.GlobalQuote["04. low"], 64); err == nil {
		q.DayLow = low
	}
	if vol, err := strconv.ParseInt(env.GlobalQuote["06. volume"], 10, 64); err == nil {
		q.Volume = &vol
	}

	return q, nil
}

// GetCompanyInfo fetches the OVERVIEW for the given provider symbol. A
// response carrying a rate-limit Note or no Name is treated as unavailable.
func (c *Client) GetCompanyInfo(ctx context.Context, symbol string) (domain.CompanyInfo, error) {
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	body, err := c.doGet(ctx, "/query?"+params.Encode())
	if err != nil {
		return domain.CompanyInfo{}, fmt.Errorf("alphavantage: get overview %s: %w", symbol, err)
	}

	var resp overviewResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.CompanyInfo{}, fmt.Errorf("alphavantage: decode overview %s: %w", symbol, err)
	}
	if resp.Note != "" || resp.Name == "" {
		return domain.CompanyInfo{}, fmt.Errorf("alphavantage: overview %s: %w", symbol, domain.ErrQuoteUnavailable)
	}

	return domain.CompanyInfo{
		Symbol:      symbol,
		CompanyName: resp.Name,
		Description: resp.Description,
		Sector:      resp.Sector,
		Industry:    resp.Industry,
	}, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
