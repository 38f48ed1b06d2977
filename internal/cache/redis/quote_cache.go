package redis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stockfolio/internal/domain"
)

//go:embed scripts/upsert_quote.lua
var upsertQuoteLua string

// trackedSetKey holds the set of all symbols with a cache entry. Membership
// in this set is what makes a symbol eligible for scheduled refresh.
const trackedSetKey = "symbols"

// QuoteCache implements domain.QuoteCache using Redis hashes. Each symbol's
// last-known quote is stored at "quote:{SYMBOL}"; the tracked-symbol set
// lives at "symbols".
//
// Upsert runs an atomic Lua script that keeps the entry with the newer
// observed_at, so two racing writers (an on-demand fetch and a scheduled
// refresh) always leave the fresher observation behind. This is stronger
// than the last-write-wins minimum the rest of the system assumes.
type QuoteCache struct {
	rdb    *redis.Client
	upsert *redis.Script
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{
		rdb:    c.Underlying(),
		upsert: redis.NewScript(upsertQuoteLua),
	}
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}

// Upsert stores the quote and marks its symbol as tracked.
func (qc *QuoteCache) Upsert(ctx context.Context, q domain.Quote) error {
	args := []interface{}{
		strconv.FormatInt(q.ObservedAt.UnixNano(), 10),
		q.Symbol,
		"symbol", q.Symbol,
		"price", strconv.FormatFloat(q.CurrentPrice, 'f', -1, 64),
		"high", strconv.FormatFloat(q.DayHigh, 'f', -1, 64),
		"low", strconv.FormatFloat(q.DayLow, 'f', -1, 64),
		"observed_at", strconv.FormatInt(q.ObservedAt.UnixNano(), 10),
	}
	if q.Volume != nil {
		args = append(args, "volume", strconv.FormatInt(*q.Volume, 10))
	}
	if q.CompanyName != "" {
		args = append(args, "name", q.CompanyName)
	}
	if q.Sector != "" {
		args = append(args, "sector", q.Sector)
	}
	if q.Industry != "" {
		args = append(args, "industry", q.Industry)
	}

	keys := []string{quoteKey(q.Symbol), trackedSetKey}
	if err := qc.upsert.Run(ctx, qc.rdb, keys, args...).Err(); err != nil {
		return fmt.Errorf("redis: upsert quote %s: %w", q.Symbol, err)
	}
	return nil
}

// Get returns the cached quote for symbol, tagged as cached. It returns
// domain.ErrNotFound when no entry exists.
func (qc *QuoteCache) Get(ctx context.Context, symbol string) (domain.Quote, error) {
	vals, err := qc.rdb.HGetAll(ctx, quoteKey(symbol)).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", symbol, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, domain.ErrNotFound
	}
	q, err := quoteFromHash(vals)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", symbol, err)
	}
	return q, nil
}

// ListTrackedSymbols returns every symbol with a cache entry, sorted for
// deterministic refresh batching.
func (qc *QuoteCache) ListTrackedSymbols(ctx context.Context) ([]string, error) {
	symbols, err := qc.rdb.SMembers(ctx, trackedSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list tracked symbols: %w", err)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ListAll returns all cached quotes using a pipeline. Symbols whose hash has
// vanished (e.g. concurrent Remove) are silently omitted.
func (qc *QuoteCache) ListAll(ctx context.Context) ([]domain.Quote, error) {
	symbols, err := qc.ListTrackedSymbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}

	pipe := qc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(symbols))
	for _, s := range symbols {
		cmds[s] = pipe.HGetAll(ctx, quoteKey(s))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: list quotes pipeline: %w", err)
	}

	quotes := make([]domain.Quote, 0, len(symbols))
	for _, s := range symbols {
		vals, err := cmds[s].Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		q, err := quoteFromHash(vals)
		if err != nil {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Remove drops the symbol from the cache and the tracked set.
func (qc *QuoteCache) Remove(ctx context.Context, symbol string) error {
	pipe := qc.rdb.TxPipeline()
	pipe.Del(ctx, quoteKey(symbol))
	pipe.SRem(ctx, trackedSetKey, symbol)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: remove quote %s: %w", symbol, err)
	}
	return nil
}

// quoteFromHash rebuilds a Quote from its hash representation. The price and
// observed_at fields are mandatory; everything else is optional.
func quoteFromHash(vals map[string]string) (domain.Quote, error) {
	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse price: %w", err)
	}
	tsNano, err := strconv.ParseInt(vals["observed_at"], 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse observed_at: %w", err)
	}

	q := domain.Quote{
		Symbol:       vals["symbol"],
		CurrentPrice: price,
		CompanyName:  vals["name"],
		Sector:       vals["sector"],
		Industry:     vals["industry"],
		ObservedAt:   time.Unix(0, tsNano),
		Source:       domain.QuoteSourceCached,
	}
	if high, err := strconv.ParseFloat(vals["high"], 64); err == nil {
		q.DayHigh = high
	}
	if low, err := strconv.ParseFloat(vals["low"], 64); err == nil {
		q.DayLow = low
	}
	if volStr, ok := vals["volume"]; ok {
		if vol, err := strconv.ParseInt(volStr, 10, 64); err == nil {
			q.Volume = &vol
		}
	}
	return q, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
