package engine

import (
	"fmt"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// mintCompleteSet converts amount collateral into amount units of every
// outcome token. The vault gains exactly what the new supply requires.
func (e *Engine) mintCompleteSet(u *uow, in *wire.MintCompleteSet) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireUnpaused(reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if err := requireBinaryOp(m, in.Multi); err != nil {
		return err
	}
	if in.Amount == 0 {
		return fmt.Errorf("engine: mint zero: %w", domain.ErrInvalidArgument)
	}
	if m.Status != ledger.MarketActive {
		return fmt.Errorf("engine: mint on market %d: %w", m.ID, domain.ErrMarketNotActive)
	}

	vault := ledger.VaultAddress(m.ID)
	if err := u.ct.Transfer(u.caller, vault, in.Amount); err != nil {
		return err
	}
	for i := uint8(0); i < m.OutcomeCount; i++ {
		u.tx.Credit(ledger.MintAddress(m.ID, i), u.caller, in.Amount)
	}

	m.MintedSets += in.Amount
	m.OpenInterest += in.Amount
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	reg.TotalMintedSets += in.Amount
	u.tx.Put(ledger.RegistryAddress(), reg)

	pos := loadPosition(u, m.ID, u.caller)
	pos.MintedSets += in.Amount
	putPosition(u, pos)

	if err := e.checkConservation(u, m); err != nil {
		return err
	}

	u.emit(domain.Event{
		Type:     domain.EventSetsMinted,
		MarketID: m.ID,
		Market:   marketModel(m),
		Position: positionModel(pos),
		Amount:   in.Amount,
	})
	return nil
}

// redeemCompleteSet burns amount units of every outcome token and pays the
// caller amount collateral from the vault. Cancelled markets stay
// redeemable so holders can always exit 1:1.
func (e *Engine) redeemCompleteSet(u *uow, in *wire.RedeemCompleteSet) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireUnpaused(reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if err := requireBinaryOp(m, in.Multi); err != nil {
		return err
	}
	if in.Amount == 0 {
		return fmt.Errorf("engine: redeem zero: %w", domain.ErrInvalidArgument)
	}
	if m.Status != ledger.MarketActive && m.Status != ledger.MarketCancelled {
		return fmt.Errorf("engine: redeem on market %d: %w", m.ID, domain.ErrMarketNotActive)
	}

	for i := uint8(0); i < m.OutcomeCount; i++ {
		if err := u.tx.Debit(ledger.MintAddress(m.ID, i), u.caller, in.Amount); err != nil {
			return fmt.Errorf("engine: redeem outcome %d: %w", i, err)
		}
	}
	if err := u.ct.Transfer(ledger.VaultAddress(m.ID), u.caller, in.Amount); err != nil {
		return err
	}

	m.RedeemedSets += in.Amount
	m.OpenInterest -= in.Amount
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	pos := loadPosition(u, m.ID, u.caller)
	pos.RedeemedSets += in.Amount
	putPosition(u, pos)

	if err := e.checkConservation(u, m); err != nil {
		return err
	}

	u.emit(domain.Event{
		Type:     domain.EventSetsRedeemed,
		MarketID: m.ID,
		Market:   marketModel(m),
		Position: positionModel(pos),
		Amount:   in.Amount,
	})
	return nil
}
