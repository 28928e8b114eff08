package handler

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openpredict/settler/internal/domain"
)

// InstructionService defines the ingestion method the handler requires.
type InstructionService interface {
	Submit(ctx context.Context, payload, sig []byte) (*domain.Event, error)
}

// InstructionHandler accepts signed instruction envelopes over HTTP.
type InstructionHandler struct {
	instructions InstructionService
	logger       *slog.Logger
}

// NewInstructionHandler creates an InstructionHandler with the given service
// and logger.
func NewInstructionHandler(instructions InstructionService, logger *slog.Logger) *InstructionHandler {
	return &InstructionHandler{
		instructions: instructions,
		logger:       logger,
	}
}

// instructionRequest is the submission envelope: the hex-encoded instruction
// bytes and a hex-encoded 65-byte recoverable signature over them.
type instructionRequest struct {
	Instruction string `json:"instruction"`
	Signature   string `json:"signature"`
}

// SubmitInstruction decodes, authenticates and applies one instruction.
// POST /api/instructions
func (h *InstructionHandler) SubmitInstruction(w http.ResponseWriter, r *http.Request) {
	var req instructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := decodeHexField(req.Instruction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "instruction is not valid hex")
		return
	}
	sig, err := decodeHexField(req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, "signature is not valid hex")
		return
	}

	ev, err := h.instructions.Submit(r.Context(), payload, sig)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: submit instruction failed",
				slog.String("error", err.Error()),
			)
			writeError(w, status, "failed to apply instruction")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"event": ev})
}

// decodeHexField decodes a hex string with or without a 0x prefix.
func decodeHexField(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, hex.ErrLength
	}
	return hex.DecodeString(s)
}

// statusForError maps the engine failure taxonomy onto HTTP status codes.
// Malformed input is 400, authorization 403, unknown records 404, and every
// state-dependent rejection 409: the instruction was well formed but the
// current state refuses it.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidTimeWindow),
		errors.Is(err, domain.ErrDuplicateOutcome),
		errors.Is(err, domain.ErrPriceConstraintViolated):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrMarketNotActive),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrProtocolPaused),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientUnfilledAmount),
		errors.Is(err, domain.ErrOrderNotCancellable),
		errors.Is(err, domain.ErrNothingToClaim),
		errors.Is(err, domain.ErrTooEarly),
		errors.Is(err, domain.ErrChallengeWindowOpen),
		errors.Is(err, domain.ErrChallengeWindowClosed),
		errors.Is(err, domain.ErrProposalPending),
		errors.Is(err, domain.ErrDisputePending):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
