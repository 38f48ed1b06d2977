package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"stockfolio/internal/domain"
)

// PortfolioService defines the position operations the portfolio handler
// requires.
type PortfolioService interface {
	Buy(ctx context.Context, owner, symbol string, quantity, price float64) (domain.Position, error)
	Sell(ctx context.Context, positionID string, quantity *float64) (domain.Position, bool, error)
	ListOpen(ctx context.Context, owner string) ([]domain.Position, error)
	Summary(ctx context.Context, owner string) (domain.PortfolioSummary, error)
}

// PortfolioHandler serves the portfolio HTTP endpoints.
type PortfolioHandler struct {
	portfolio PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given service and
// logger.
func NewPortfolioHandler(portfolio PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		logger:    logger,
	}
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions []domain.Position `json:"positions"`
}

// ListPositions returns the owner's open positions.
// GET /api/portfolio?owner=...
func (h *PortfolioHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	owner := ownerParam(r)

	positions, err := h.portfolio.ListOpen(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: positions})
}

// buyRequest is the body of a buy order.
type buyRequest struct {
	Owner    string  `json:"owner"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// Buy records a buy fill, opening a new position or folding into the
// weighted-average cost basis of an existing one.
// POST /api/portfolio
func (h *PortfolioHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}
	owner := req.Owner
	if owner == "" {
		owner = defaultOwner
	}

	position, err := h.portfolio.Buy(r.Context(), owner, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: buy failed",
			slog.String("owner", owner),
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to record buy")
		return
	}

	writeJSON(w, http.StatusCreated, position)
}

// sellRequest is the body of a sell order. A missing quantity closes the
// whole position.
type sellRequest struct {
	Quantity *float64 `json:"quantity"`
}

// sellResponse reports the post-sell state of the position.
type sellResponse struct {
	Position domain.Position `json:"position"`
	Closed   bool            `json:"closed"`
}

// Sell disposes quantity from a position. Selling the full quantity (or
// omitting it) closes the position.
// POST /api/portfolio/{id}/sell
func (h *PortfolioHandler) Sell(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id path parameter required")
		return
	}

	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	position, closed, err := h.portfolio.Sell(r.Context(), id, req.Quantity)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "position not found")
		return
	case errors.Is(err, domain.ErrInsufficientQuantity):
		writeError(w, http.StatusBadRequest, "sell quantity exceeds held quantity")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "handler: sell failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to record sell")
		return
	}

	writeJSON(w, http.StatusOK, sellResponse{Position: position, Closed: closed})
}

// Summary values the owner's open positions against the latest cached quotes.
// GET /api/portfolio/summary?owner=...
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	owner := ownerParam(r)

	summary, err := h.portfolio.Summary(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: summary failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	if summary.Items == nil {
		summary.Items = []domain.PositionValuation{}
	}
	writeJSON(w, http.StatusOK, summary)
}
