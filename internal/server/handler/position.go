package handler

import (
	"log/slog"
	"net/http"

	"github.com/openpredict/settler/internal/domain"
)

// PositionHandler serves position-related HTTP endpoints.
type PositionHandler struct {
	positions domain.PositionStore
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given store and logger.
func NewPositionHandler(positions domain.PositionStore, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions []domain.Position `json:"positions"`
}

// ListPositions returns all positions held by an owner.
// GET /api/positions?owner=0x...
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter required")
		return
	}

	positions, err := h.positions.ListByOwner(r.Context(), owner)
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

// ListMarketPositions returns every position in one market.
// GET /api/markets/{id}/positions
func (h *PositionHandler) ListMarketPositions(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	positions, err := h.positions.ListByMarket(r.Context(), marketID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market positions failed",
			slog.Uint64("market_id", marketID),
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
