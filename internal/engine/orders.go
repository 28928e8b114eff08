package engine

import (
	"fmt"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// placeOrder opens a limit order. A sell order moves the pledged tokens out
// of the caller's free balance into a fresh escrow keyed by the order id,
// so the same tokens can never back two matches.
func (e *Engine) placeOrder(u *uow, in *wire.PlaceOrder) error {
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
	if m.Status != ledger.MarketActive {
		return fmt.Errorf("engine: place order on market %d: %w", m.ID, domain.ErrMarketNotActive)
	}
	if in.Price == 0 || in.Price >= domain.PriceScale {
		return fmt.Errorf("engine: price %d: %w", in.Price, domain.ErrInvalidArgument)
	}
	if in.Amount == 0 {
		return fmt.Errorf("engine: zero amount: %w", domain.ErrInvalidArgument)
	}
	if in.OutcomeIndex >= m.OutcomeCount {
		return fmt.Errorf("engine: outcome %d of %d: %w", in.OutcomeIndex, m.OutcomeCount, domain.ErrInvalidArgument)
	}
	if in.Side != uint8(ledger.SideBuy) && in.Side != uint8(ledger.SideSell) {
		return fmt.Errorf("engine: side %d: %w", in.Side, domain.ErrInvalidArgument)
	}
	if in.Kind != uint8(ledger.OrderLimit) {
		return fmt.Errorf("engine: order kind %d: %w", in.Kind, domain.ErrInvalidArgument)
	}
	if in.ExpiresAt != 0 && in.ExpiresAt <= u.now {
		return fmt.Errorf("engine: expiry in the past: %w", domain.ErrInvalidTimeWindow)
	}

	id := m.NextOrderID
	m.NextOrderID++
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	o := &ledger.Order{
		ID:           id,
		MarketID:     m.ID,
		Owner:        u.caller,
		Side:         ledger.OrderSide(in.Side),
		OutcomeIndex: in.OutcomeIndex,
		Price:        in.Price,
		Amount:       in.Amount,
		Status:       ledger.OrderOpen,
		Kind:         ledger.OrderKind(in.Kind),
		ExpiresAt:    in.ExpiresAt,
		CreatedAt:    u.now,
		UpdatedAt:    u.now,
	}

	if o.Side == ledger.SideSell {
		mint := ledger.MintAddress(m.ID, o.OutcomeIndex)
		if err := u.tx.Debit(mint, u.caller, in.Amount); err != nil {
			return fmt.Errorf("engine: escrow for order %d: %w", id, err)
		}
		esc := &ledger.Escrow{
			MarketID:     m.ID,
			OrderID:      id,
			Owner:        u.caller,
			OutcomeIndex: o.OutcomeIndex,
			Amount:       in.Amount,
			CreatedAt:    u.now,
		}
		u.tx.Put(ledger.EscrowAddress(m.ID, id), esc)
		// The escrow sub-account keeps the tokens on the mint's books.
		u.tx.Credit(mint, ledger.EscrowAddress(m.ID, id), in.Amount)
	}

	u.tx.Put(ledger.OrderAddress(m.ID, id), o)

	// Touch the position so the owner shows up in market listings.
	pos := loadPosition(u, m.ID, u.caller)
	putPosition(u, pos)

	u.emit(domain.Event{
		Type:     domain.EventOrderPlaced,
		MarketID: m.ID,
		Orders:   []domain.Order{orderModel(o)},
	})
	return nil
}

// cancelOrder cancels the caller's open order and releases any escrowed
// tokens back to the free balance. Expired orders cancel the same way.
func (e *Engine) cancelOrder(u *uow, in *wire.CancelOrder) error {
	o, err := getOrder(u, in.MarketID, in.OrderID)
	if err != nil {
		return err
	}
	if o.Owner != u.caller {
		return fmt.Errorf("engine: cancel order %d: %w", o.ID, domain.ErrUnauthorized)
	}
	switch o.Status {
	case ledger.OrderOpen, ledger.OrderPartiallyFilled:
	default:
		return fmt.Errorf("engine: cancel order %d in %d: %w", o.ID, o.Status, domain.ErrOrderNotCancellable)
	}

	if o.Side == ledger.SideSell {
		esc, err := getEscrow(u, o.MarketID, o.ID)
		if err != nil {
			return err
		}
		if esc.Amount > 0 {
			mint := ledger.MintAddress(o.MarketID, o.OutcomeIndex)
			escrowAddr := ledger.EscrowAddress(o.MarketID, o.ID)
			if err := u.tx.Debit(mint, escrowAddr, esc.Amount); err != nil {
				return err
			}
			u.tx.Credit(mint, o.Owner, esc.Amount)
			esc.Amount = 0
			u.tx.Put(escrowAddr, esc)
		}
	}

	if o.ExpiresAt != 0 && u.now >= o.ExpiresAt {
		o.Status = ledger.OrderExpired
	} else {
		o.Status = ledger.OrderCancelled
	}
	o.UpdatedAt = u.now
	u.tx.Put(ledger.OrderAddress(o.MarketID, o.ID), o)

	u.emit(domain.Event{
		Type:     domain.EventOrderCancelled,
		MarketID: o.MarketID,
		Orders:   []domain.Order{orderModel(o)},
	})
	return nil
}

// liveOrder re-validates an order's capacity at match time. Races between
// two matches naming the same order surface here as
// ErrInsufficientUnfilledAmount; the caller retries with refreshed state.
func liveOrder(u *uow, o *ledger.Order, amount uint64) error {
	switch o.Status {
	case ledger.OrderOpen, ledger.OrderPartiallyFilled:
	default:
		return fmt.Errorf("engine: order %d in %d: %w", o.ID, o.Status, domain.ErrInsufficientUnfilledAmount)
	}
	if o.ExpiresAt != 0 && u.now >= o.ExpiresAt {
		return fmt.Errorf("engine: order %d expired: %w", o.ID, domain.ErrInsufficientUnfilledAmount)
	}
	if o.Unfilled() < amount {
		return fmt.Errorf("engine: order %d unfilled %d < %d: %w", o.ID, o.Unfilled(), amount, domain.ErrInsufficientUnfilledAmount)
	}
	return nil
}

// fill applies amount to an order, flipping status when fully filled.
func fill(u *uow, o *ledger.Order, amount uint64) {
	o.Filled += amount
	if o.Filled >= o.Amount {
		o.Status = ledger.OrderFilled
	} else {
		o.Status = ledger.OrderPartiallyFilled
	}
	o.UpdatedAt = u.now
	u.tx.Put(ledger.OrderAddress(o.MarketID, o.ID), o)
}

// consumeEscrow burns amount tokens out of a sell order's escrow.
func consumeEscrow(u *uow, o *ledger.Order, amount uint64) error {
	esc, err := getEscrow(u, o.MarketID, o.ID)
	if err != nil {
		return err
	}
	if esc.Amount < amount {
		return fmt.Errorf("engine: escrow %d holds %d < %d: %w", o.ID, esc.Amount, amount, domain.ErrInsufficientUnfilledAmount)
	}
	mint := ledger.MintAddress(o.MarketID, o.OutcomeIndex)
	escrowAddr := ledger.EscrowAddress(o.MarketID, o.ID)
	if err := u.tx.Debit(mint, escrowAddr, amount); err != nil {
		return err
	}
	esc.Amount -= amount
	u.tx.Put(escrowAddr, esc)
	return nil
}
