package engine

import (
	"fmt"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// createMarket allocates the next market id and derives the outcome mints
// and vault from it. The market starts Pending; trading opens on
// ActivateMarket.
func (e *Engine) createMarket(u *uow, in *wire.CreateMarket) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireUnpaused(reg); err != nil {
		return err
	}
	if in.OutcomeCount < domain.MinOutcomes || in.OutcomeCount > domain.MaxOutcomes {
		return fmt.Errorf("engine: outcome count %d: %w", in.OutcomeCount, domain.ErrInvalidArgument)
	}
	if !in.Multi && in.OutcomeCount != 2 {
		return fmt.Errorf("engine: binary create with %d outcomes: %w", in.OutcomeCount, domain.ErrInvalidArgument)
	}
	if !(in.FinalizationDeadline > in.ResolutionTime && in.ResolutionTime > u.now) {
		return fmt.Errorf("engine: create market: %w", domain.ErrInvalidTimeWindow)
	}
	if in.FeeBps > 10_000 {
		return fmt.Errorf("engine: fee %d bps: %w", in.FeeBps, domain.ErrInvalidArgument)
	}

	id := reg.NextMarketID
	reg.NextMarketID++
	reg.TotalMarkets++
	u.tx.Put(ledger.RegistryAddress(), reg)

	feeBps := in.FeeBps
	if feeBps == 0 {
		feeBps = reg.DefaultFeeBps
	}

	m := &ledger.Market{
		ID:                   id,
		Creator:              u.caller,
		QuestionHash:         in.QuestionHash,
		SpecHash:             in.SpecHash,
		OutcomeCount:         in.OutcomeCount,
		Status:               ledger.MarketPending,
		ResolutionTime:       in.ResolutionTime,
		FinalizationDeadline: in.FinalizationDeadline,
		CreatorFeeBps:        feeBps,
		NextOrderID:          1,
		CreatedAt:            u.now,
		UpdatedAt:            u.now,
	}
	u.tx.Put(ledger.MarketAddress(id), m)

	u.emit(domain.Event{
		Type:     domain.EventMarketCreated,
		MarketID: id,
		Market:   marketModel(m),
	})
	return nil
}

// activateMarket opens a Pending market for trading.
func (e *Engine) activateMarket(u *uow, in *wire.ActivateMarket) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if m.Status != ledger.MarketPending {
		return fmt.Errorf("engine: activate market %d in %d: %w", m.ID, m.Status, domain.ErrInvalidStatusTransition)
	}

	m.Status = ledger.MarketActive
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	reg.ActiveMarkets++
	u.tx.Put(ledger.RegistryAddress(), reg)

	u.emit(domain.Event{
		Type:     domain.EventMarketActivated,
		MarketID: m.ID,
		Market:   marketModel(m),
	})
	return nil
}

func (e *Engine) pauseMarket(u *uow, in *wire.PauseMarket) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if m.Status != ledger.MarketActive {
		return fmt.Errorf("engine: pause market %d in %d: %w", m.ID, m.Status, domain.ErrInvalidStatusTransition)
	}

	m.Status = ledger.MarketPaused
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	u.emit(domain.Event{
		Type:     domain.EventMarketPaused,
		MarketID: m.ID,
		Market:   marketModel(m),
	})
	return nil
}

func (e *Engine) resumeMarket(u *uow, in *wire.ResumeMarket) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if m.Status != ledger.MarketPaused {
		return fmt.Errorf("engine: resume market %d in %d: %w", m.ID, m.Status, domain.ErrInvalidStatusTransition)
	}

	m.Status = ledger.MarketActive
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	u.emit(domain.Event{
		Type:     domain.EventMarketResumed,
		MarketID: m.ID,
		Market:   marketModel(m),
	})
	return nil
}

// cancelMarket cancels any pre-Resolved market, opening the 1:1 refund
// path for complete-set holders.
func (e *Engine) cancelMarket(u *uow, in *wire.CancelMarket) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}

	switch m.Status {
	case ledger.MarketPending, ledger.MarketActive, ledger.MarketPaused:
	default:
		return fmt.Errorf("engine: cancel market %d in %d: %w", m.ID, m.Status, domain.ErrInvalidStatusTransition)
	}

	// Pause does not touch the counter, so a Paused market still occupies
	// an ActiveMarkets slot until it reaches a terminal status.
	if m.Status == ledger.MarketActive || m.Status == ledger.MarketPaused {
		reg.ActiveMarkets--
		u.tx.Put(ledger.RegistryAddress(), reg)
	}

	m.Status = ledger.MarketCancelled
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	u.emit(domain.Event{
		Type:     domain.EventMarketCancelled,
		MarketID: m.ID,
		Market:   marketModel(m),
	})
	return nil
}

// flagMarket sets the moderation flag. Trading status is untouched.
func (e *Engine) flagMarket(u *uow, in *wire.FlagMarket) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if in.Review > uint8(ledger.ReviewReviewed) {
		return fmt.Errorf("engine: review status %d: %w", in.Review, domain.ErrInvalidArgument)
	}

	m.Review = ledger.ReviewStatus(in.Review)
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	u.emit(domain.Event{
		Type:     domain.EventMarketFlagged,
		MarketID: m.ID,
		Market:   marketModel(m),
	})
	return nil
}

// requireBinaryOp rejects binary-opcode instructions aimed at multi-outcome
// markets. The multi-outcome opcodes accept any outcome count.
func requireBinaryOp(m *ledger.Market, multi bool) error {
	if !multi && m.OutcomeCount != 2 {
		return fmt.Errorf("engine: market %d has %d outcomes: %w", m.ID, m.OutcomeCount, domain.ErrInvalidArgument)
	}
	return nil
}
