// Package service contains the orchestration layer between the engine, the
// read-model stores, and the outside world: instruction ingestion, event
// projection, query services, and operator alerts.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openpredict/settler/internal/crypto"
	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/engine"
	"github.com/openpredict/settler/internal/wire"
)

// InstructionService ingests signed instruction envelopes: it decodes the
// wire payload, recovers the signer address, and applies the instruction to
// the engine. The signature covers the exact encoded payload, so the signer
// is the instruction's caller.
type InstructionService struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewInstructionService creates an InstructionService over the given engine.
func NewInstructionService(eng *engine.Engine, logger *slog.Logger) *InstructionService {
	return &InstructionService{
		engine: eng,
		logger: logger.With(slog.String("component", "instructions")),
	}
}

// Submit applies one signed instruction. payload is the encoded instruction
// bytes, sig the 65-byte recoverable signature over those bytes. On success
// the returned event describes the committed state transition.
func (s *InstructionService) Submit(ctx context.Context, payload, sig []byte) (*domain.Event, error) {
	in, err := wire.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("service: decode instruction: %w: %v", domain.ErrInvalidArgument, err)
	}

	caller, err := crypto.Recover(payload, sig)
	if err != nil {
		return nil, fmt.Errorf("service: recover signer: %w: %v", domain.ErrUnauthorized, err)
	}

	ev, err := s.engine.Apply(ctx, caller, in)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "instruction accepted",
		slog.String("op", in.Op().String()),
		slog.String("caller", caller.Hex()),
	)
	return ev, nil
}
