package handler

import (
	"log/slog"
	"net/http"

	"github.com/openpredict/settler/internal/domain"
)

// EventHandler serves the per-market event journal.
type EventHandler struct {
	events domain.EventStore
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler with the given store and logger.
func NewEventHandler(events domain.EventStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		logger: logger,
	}
}

// ListMarketEvents returns the journal for one market in chronological
// order.
// GET /api/markets/{id}/events
func (h *EventHandler) ListMarketEvents(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	events, err := h.events.ListByMarket(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market events failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
