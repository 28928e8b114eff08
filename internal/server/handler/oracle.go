package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/openpredict/settler/internal/domain"
)

// OracleHandler serves oracle proposal endpoints.
type OracleHandler struct {
	proposals domain.ProposalStore
	logger    *slog.Logger
}

// NewOracleHandler creates an OracleHandler with the given store and logger.
func NewOracleHandler(proposals domain.ProposalStore, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		proposals: proposals,
		logger:    logger,
	}
}

// GetProposal returns the result proposal for one market.
// GET /api/markets/{id}/proposal
func (h *OracleHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	proposal, err := h.proposals.GetByMarket(r.Context(), marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no proposal for market")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get proposal failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get proposal")
		return
	}

	writeJSON(w, http.StatusOK, proposal)
}

// ListProposals returns proposals in a given status, defaulting to pending.
// GET /api/proposals?status=pending
func (h *OracleHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	status := domain.ProposalStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.ProposalStatusPending
	}

	proposals, err := h.proposals.ListByStatus(r.Context(), status)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list proposals failed",
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list proposals")
		return
	}

	if proposals == nil {
		proposals = []domain.OracleProposal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}
