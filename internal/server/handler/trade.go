package handler

import (
	"log/slog"
	"net/http"

	"github.com/openpredict/settler/internal/domain"
)

// TradeHandler serves trade history endpoints.
type TradeHandler struct {
	trades domain.TradeStore
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given store and logger.
func NewTradeHandler(trades domain.TradeStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

// listTradesResponse wraps the list trades response.
type listTradesResponse struct {
	Trades []domain.Trade `json:"trades"`
}

// ListMarketTrades returns trades executed in one market, newest first.
// GET /api/markets/{id}/trades
func (h *TradeHandler) ListMarketTrades(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	trades, err := h.trades.ListByMarket(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market trades failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades})
}

// ListTrades returns trades where an owner was a leg counterparty.
// GET /api/trades?owner=0x...
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter required")
		return
	}

	trades, err := h.trades.ListByOwner(r.Context(), owner, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades})
}
