package domain

import "errors"

var (
	// ErrNotFound is returned by stores and caches on a miss.
	ErrNotFound = errors.New("not found")
	// ErrQuoteUnavailable means the upstream provider returned no usable
	// price. Recoverable: callers with a cache entry fall back to it.
	// Provider timeouts and rate-limit denials are folded into this error.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrNoData means there is no live quote and no cache entry. Terminal
	// for the call.
	ErrNoData = errors.New("no data available")
	// ErrInsufficientQuantity means a sell exceeds the held quantity.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	// ErrLockHeld means a keyed lock is already held by another party.
	ErrLockHeld = errors.New("lock already held")
)
