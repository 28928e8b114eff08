package engine

import (
	"fmt"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// claimWinnings pays out the caller's stake after a market reaches a
// terminal state.
//
// Resolved with a winning outcome: every winning token pays 1.0 collateral
// and is burned; losing tokens stay where they are, worth nothing.
//
// Resolved invalid, or cancelled: holders exit by complete set. The number
// of sets is the minimum balance across all outcomes, each set refunding
// 1.0 collateral. Escrowed tokens are not counted; cancel the order first.
func (e *Engine) claimWinnings(u *uow, in *wire.ClaimWinnings) error {
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if err := requireBinaryOp(m, in.Multi); err != nil {
		return err
	}

	var payout uint64
	switch {
	case m.Status == ledger.MarketResolved && m.Result != ledger.ResultInvalid:
		payout = u.tx.Balance(ledger.MintAddress(m.ID, m.Result), u.caller)
		if payout == 0 {
			return fmt.Errorf("engine: claim on market %d: %w", m.ID, domain.ErrNothingToClaim)
		}
		if err := u.tx.Debit(ledger.MintAddress(m.ID, m.Result), u.caller, payout); err != nil {
			return err
		}

	case m.Status == ledger.MarketCancelled,
		m.Status == ledger.MarketResolved && m.Result == ledger.ResultInvalid:
		sets := u.tx.Balance(ledger.MintAddress(m.ID, 0), u.caller)
		for i := uint8(1); i < m.OutcomeCount; i++ {
			if b := u.tx.Balance(ledger.MintAddress(m.ID, i), u.caller); b < sets {
				sets = b
			}
		}
		if sets == 0 {
			return fmt.Errorf("engine: claim on market %d: %w", m.ID, domain.ErrNothingToClaim)
		}
		for i := uint8(0); i < m.OutcomeCount; i++ {
			if err := u.tx.Debit(ledger.MintAddress(m.ID, i), u.caller, sets); err != nil {
				return err
			}
		}
		payout = sets

	default:
		return fmt.Errorf("engine: claim on market %d in %d: %w", m.ID, m.Status, domain.ErrMarketNotResolved)
	}

	if err := u.ct.Transfer(ledger.VaultAddress(m.ID), u.caller, payout); err != nil {
		return err
	}

	m.ClaimedAmount += payout
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	pos := loadPosition(u, m.ID, u.caller)
	pos.ClaimedAmount += payout
	pos.Claimed = true
	putPosition(u, pos)

	if err := e.checkConservation(u, m); err != nil {
		return err
	}

	u.emit(domain.Event{
		Type:     domain.EventWinningsClaimed,
		MarketID: m.ID,
		Market:   marketModel(m),
		Position: positionModel(pos),
		Amount:   payout,
	})
	return nil
}
