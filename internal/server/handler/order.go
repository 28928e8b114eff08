package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/openpredict/settler/internal/domain"
)

// OrderHandler serves order-related HTTP endpoints. Orders are read-only
// over HTTP: placement and cancellation go through the signed instruction
// endpoint.
type OrderHandler struct {
	orders domain.OrderStore
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given store and logger.
func NewOrderHandler(orders domain.OrderStore, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// listOrdersResponse wraps the list endpoint output.
type listOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// ListOrders returns orders for an owner across all markets.
// GET /api/orders?owner=0x...&limit=50&offset=0
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter required")
		return
	}

	orders, err := h.orders.ListByOwner(r.Context(), owner, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list orders failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}

// ListMarketOrders returns orders in one market. With open=true only resting
// orders are returned.
// GET /api/markets/{id}/orders?open=true
func (h *OrderHandler) ListMarketOrders(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var (
		orders []domain.Order
		err    error
	)
	if r.URL.Query().Get("open") == "true" {
		orders, err = h.orders.ListOpen(r.Context(), marketID)
	} else {
		orders, err = h.orders.ListByMarket(r.Context(), marketID, parseListOpts(r))
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market orders failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}

// GetOrder returns a single order by its per-market ID.
// GET /api/markets/{id}/orders/{orderID}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	orderID, ok := pathID(r, "orderID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orders.GetByID(r.Context(), marketID, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get order failed",
			slog.Uint64("market_id", marketID),
			slog.Uint64("order_id", orderID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}
