package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/openpredict/settler/internal/domain"
)

// RegistryView exposes the engine's registry snapshot to the status
// endpoint.
type RegistryView interface {
	Registry() (domain.Registry, error)
	FeePoolBalance() uint64
}

// StatusHandler serves the protocol status snapshot for dashboards.
type StatusHandler struct {
	engine    RegistryView
	mode      string
	startedAt time.Time
}

// NewStatusHandler creates a StatusHandler over the given engine view.
func NewStatusHandler(engine RegistryView, mode string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		engine:    engine,
		mode:      mode,
		startedAt: startedAt,
	}
}

// GetStatus responds with the registry snapshot, fee pool balance, and
// process metadata. Before Initialize has run it reports initialized=false.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	uptime := int64(time.Since(h.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	reg, err := h.engine.Registry()
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"mode":           h.mode,
				"uptime_seconds": uptime,
				"initialized":    false,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read registry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":             h.mode,
		"uptime_seconds":   uptime,
		"initialized":      true,
		"registry":         reg,
		"fee_pool_balance": h.engine.FeePoolBalance(),
	})
}
