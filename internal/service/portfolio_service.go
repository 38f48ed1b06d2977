package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stockfolio/internal/domain"
	"stockfolio/internal/market"
)

const (
	// positionLockTTL bounds how long a crashed holder can block a
	// position before the lock expires on its own.
	positionLockTTL = 10 * time.Second
	// lockPollInterval is how often a blocked mutation retries the lock.
	lockPollInterval = 50 * time.Millisecond
)

// PortfolioService owns position mutations and portfolio valuation. Every
// buy/sell is a read-modify-write serialized per (owner, symbol) through the
// lock manager, so concurrent requests on the same position cannot lose
// updates.
type PortfolioService struct {
	store  domain.PositionStore
	cache  domain.QuoteCache
	locks  domain.LockManager
	logger *slog.Logger
}

// NewPortfolioService creates a PortfolioService with all required
// dependencies.
func NewPortfolioService(
	store domain.PositionStore,
	cache domain.QuoteCache,
	locks domain.LockManager,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		store:  store,
		cache:  cache,
		locks:  locks,
		logger: logger.With(slog.String("component", "portfolio_service")),
	}
}

// Buy applies a buy fill. The first buy of a symbol opens a position at the
// fill price; subsequent buys fold into the weighted-average cost basis.
func (s *PortfolioService) Buy(ctx context.Context, owner, symbol string, quantity, price float64) (domain.Position, error) {
	canonical := market.Canonical(symbol)
	if quantity <= 0 {
		return domain.Position{}, fmt.Errorf("portfolio_service: buy %s: quantity must be positive", canonical)
	}
	if price <= 0 {
		return domain.Position{}, fmt.Errorf("portfolio_service: buy %s: price must be positive", canonical)
	}

	unlock, err := s.acquire(ctx, owner, canonical)
	if err != nil {
		return domain.Position{}, err
	}
	defer unlock()

	now := time.Now().UTC()

	existing, err := s.store.Get(ctx, owner, canonical)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p := domain.Position{
			ID:          uuid.NewString(),
			Owner:       owner,
			Symbol:      canonical,
			Quantity:    quantity,
			AverageCost: price,
			OpenedAt:    now,
			UpdatedAt:   now,
		}
		if err := s.store.Create(ctx, p); err != nil {
			return domain.Position{}, fmt.Errorf("portfolio_service: buy %s: %w", canonical, err)
		}
		return p, nil

	case err != nil:
		return domain.Position{}, fmt.Errorf("portfolio_service: buy %s: %w", canonical, err)

	default:
		existing.AverageCost = weightedAverageCost(existing.Quantity, existing.AverageCost, quantity, price)
		existing.Quantity += quantity
		existing.UpdatedAt = now
		if err := s.store.Update(ctx, existing); err != nil {
			return domain.Position{}, fmt.Errorf("portfolio_service: buy %s: %w", canonical, err)
		}
		return existing, nil
	}
}

// Sell disposes quantity from the position with the given ID. A nil quantity
// closes the whole position. The cost basis never changes on a sell; a sell
// that brings the quantity to zero deletes the position. Selling more than
// held fails with domain.ErrInsufficientQuantity and leaves the position
// untouched.
func (s *PortfolioService) Sell(ctx context.Context, positionID string, quantity *float64) (domain.Position, bool, error) {
	// Look the position up first to learn its lock key, then re-read under
	// the lock so the mutation sees the latest state.
	peek, err := s.store.GetByID(ctx, positionID)
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("portfolio_service: sell %s: %w", positionID, err)
	}

	unlock, err := s.acquire(ctx, peek.Owner, peek.Symbol)
	if err != nil {
		return domain.Position{}, false, err
	}
	defer unlock()

	p, err := s.store.GetByID(ctx, positionID)
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("portfolio_service: sell %s: %w", positionID, err)
	}

	sellQty := p.Quantity
	if quantity != nil {
		sellQty = *quantity
	}
	if sellQty <= 0 {
		return domain.Position{}, false, fmt.Errorf("portfolio_service: sell %s: quantity must be positive", positionID)
	}
	if sellQty > p.Quantity {
		return domain.Position{}, false, fmt.Errorf(
			"portfolio_service: sell %s: %.4f exceeds held %.4f: %w",
			positionID, sellQty, p.Quantity, domain.ErrInsufficientQuantity,
		)
	}

	p.Quantity -= sellQty
	p.UpdatedAt = time.Now().UTC()

	if p.Quantity == 0 {
		if err := s.store.Delete(ctx, positionID); err != nil {
			return domain.Position{}, false, fmt.Errorf("portfolio_service: sell %s: %w", positionID, err)
		}
		return p, true, nil
	}

	if err := s.store.Update(ctx, p); err != nil {
		return domain.Position{}, false, fmt.Errorf("portfolio_service: sell %s: %w", positionID, err)
	}
	return p, false, nil
}

// ListOpen returns the owner's open positions.
func (s *PortfolioService) ListOpen(ctx context.Context, owner string) ([]domain.Position, error) {
	positions, err := s.store.ListOpen(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("portfolio_service: list positions: %w", err)
	}
	return positions, nil
}

// Summary values all of the owner's open positions against the latest cached
// quotes. A missing quote degrades that position to cost-basis valuation; it
// never fails the summary.
func (s *PortfolioService) Summary(ctx context.Context, owner string) (domain.PortfolioSummary, error) {
	positions, err := s.store.ListOpen(ctx, owner)
	if err != nil {
		return domain.PortfolioSummary{}, fmt.Errorf("portfolio_service: summary: %w", err)
	}

	quotes := make(map[string]domain.Quote, len(positions))
	for _, p := range positions {
		if _, ok := quotes[p.Symbol]; ok {
			continue
		}
		q, err := s.cache.Get(ctx, p.Symbol)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "quote lookup failed, using cost basis",
					slog.String("symbol", p.Symbol),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		quotes[p.Symbol] = q
	}

	return Summarize(positions, quotes), nil
}

// acquire blocks until the (owner, symbol) lock is obtained or the context is
// done, polling at a fixed interval while another holder has it.
func (s *PortfolioService) acquire(ctx context.Context, owner, symbol string) (func(), error) {
	key := fmt.Sprintf("position:%s:%s", owner, symbol)
	for {
		unlock, err := s.locks.Acquire(ctx, key, positionLockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("portfolio_service: lock %s: %w", key, err)
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("portfolio_service: lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}
