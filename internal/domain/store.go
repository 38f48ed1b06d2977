package domain

import (
	"context"
	"time"
)

// QuoteCache is the durable keyed store holding the last-known quote per
// symbol. It must offer read-after-write consistency for a single symbol.
type QuoteCache interface {
	// Get returns the cached quote for symbol, or ErrNotFound.
	Get(ctx context.Context, symbol string) (Quote, error)
	// Upsert stores the quote and marks its symbol as tracked.
	Upsert(ctx context.Context, q Quote) error
	// ListTrackedSymbols returns every symbol with a cache entry.
	ListTrackedSymbols(ctx context.Context) ([]string, error)
	// ListAll returns all cached quotes.
	ListAll(ctx context.Context) ([]Quote, error)
	// Remove drops the symbol from the cache and the tracked set.
	Remove(ctx context.Context, symbol string) error
}

// PositionStore persists positions keyed by (owner, symbol).
type PositionStore interface {
	Get(ctx context.Context, owner, symbol string) (Position, error)
	GetByID(ctx context.Context, id string) (Position, error)
	ListOpen(ctx context.Context, owner string) ([]Position, error)
	Create(ctx context.Context, p Position) error
	Update(ctx context.Context, p Position) error
	Delete(ctx context.Context, id string) error
}

// QuotePublisher delivers quote-changed events to subscribers. Consumers are
// expected to tolerate duplicate and out-of-order delivery.
type QuotePublisher interface {
	Publish(ctx context.Context, q Quote) error
}

// RateLimiter gates outbound provider calls.
type RateLimiter interface {
	// Allow reports whether one more request under key is permitted within
	// the window, counting the request when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides keyed mutual exclusion for read-modify-write paths.
type LockManager interface {
	// Acquire obtains the lock for key, returning an unlock function. It
	// returns ErrLockHeld when another party holds the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
