package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"stockfolio/internal/domain"
)

// StockService defines the quote operations the stock handler requires.
type StockService interface {
	Resolve(ctx context.Context, symbol string) (domain.Quote, error)
	RefreshSymbol(ctx context.Context, symbol string) (domain.Quote, error)
	ListCached(ctx context.Context) ([]domain.Quote, error)
	Remove(ctx context.Context, symbol string) error
}

// StockHandler serves the tracked-stock HTTP endpoints.
type StockHandler struct {
	quotes StockService
	logger *slog.Logger
}

// NewStockHandler creates a StockHandler with the given service and logger.
func NewStockHandler(quotes StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		quotes: quotes,
		logger: logger,
	}
}

// listStocksResponse wraps the list stocks response.
type listStocksResponse struct {
	Stocks []domain.Quote `json:"stocks"`
}

// ListStocks returns the latest cached quote for every tracked symbol.
// GET /api/stocks
func (h *StockHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.quotes.ListCached(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list stocks failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list stocks")
		return
	}

	if quotes == nil {
		quotes = []domain.Quote{}
	}
	writeJSON(w, http.StatusOK, listStocksResponse{Stocks: quotes})
}

// GetStock resolves a quote for one symbol, fetching live data when possible
// and falling back to the cache. The response's source field tells the caller
// which one it got.
// GET /api/stocks/{symbol}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol path parameter required")
		return
	}

	quote, err := h.quotes.Resolve(r.Context(), symbol)
	switch {
	case errors.Is(err, domain.ErrNoData):
		writeError(w, http.StatusNotFound, "no data available for symbol")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "handler: get stock failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve quote")
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// RefreshStock forces a live re-fetch of one tracked symbol and returns the
// refreshed quote. Unlike GetStock there is no cache fallback: a provider
// failure surfaces as 502 so the caller knows the refresh did not happen.
// POST /api/stocks/{symbol}/refresh
func (h *StockHandler) RefreshStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol path parameter required")
		return
	}

	quote, err := h.quotes.RefreshSymbol(r.Context(), symbol)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "symbol is not tracked")
		return
	case errors.Is(err, domain.ErrQuoteUnavailable):
		writeError(w, http.StatusBadGateway, "provider unavailable")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "handler: refresh stock failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to refresh quote")
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// DeleteStock stops tracking a symbol and drops its cached quote.
// DELETE /api/stocks/{symbol}
func (h *StockHandler) DeleteStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol path parameter required")
		return
	}

	if err := h.quotes.Remove(r.Context(), symbol); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "symbol is not tracked")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete stock failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete stock")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
