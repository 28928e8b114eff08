package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// matchLeg pairs one resting order with its caller-supplied execution
// price for a multi-leg match.
type matchLeg struct {
	order *ledger.Order
	price uint64
}

func newTrade(u *uow, leg matchLeg, amount uint64, kind domain.TradeKind) domain.Trade {
	side := domain.OrderSideBuy
	if leg.order.Side == ledger.SideSell {
		side = domain.OrderSideSell
	}
	return domain.Trade{
		ID:           uuid.NewString(),
		MarketID:     leg.order.MarketID,
		OrderID:      leg.order.ID,
		Owner:        leg.order.Owner.Hex(),
		Side:         side,
		OutcomeIndex: leg.order.OutcomeIndex,
		PriceTicks:   leg.price,
		Amount:       amount,
		Kind:         kind,
		ExecutedAt:   time.Unix(u.now, 0).UTC(),
	}
}

// matchBinary handles MatchMint and MatchBurn: leg A is the YES (outcome
// 0) leg, leg B the NO (outcome 1) leg.
func (e *Engine) matchBinary(u *uow, in *wire.MatchBinary) error {
	m, legs, err := e.matchSetup(u, in.MarketID, []uint64{in.OrderA, in.OrderB},
		[]uint64{in.PriceA, in.PriceB}, in.Amount, in.Mint, false)
	if err != nil {
		return err
	}
	return e.applyMatch(u, m, legs, in.Amount, in.Mint)
}

// matchMulti handles MatchMintMulti and MatchBurnMulti.
func (e *Engine) matchMulti(u *uow, in *wire.MatchMulti) error {
	m, legs, err := e.matchSetup(u, in.MarketID, in.OrderIDs, in.Prices, in.Amount, in.Mint, true)
	if err != nil {
		return err
	}
	return e.applyMatch(u, m, legs, in.Amount, in.Mint)
}

// matchSetup validates everything common to mint and burn matches: caller
// authority, market status, price-sum bound, leg coverage, and per-order
// capacity. Legs are returned indexed by outcome.
func (e *Engine) matchSetup(u *uow, marketID uint64, orderIDs, prices []uint64, amount uint64, mint, multi bool) (*ledger.Market, []matchLeg, error) {
	reg, err := getRegistry(u)
	if err != nil {
		return nil, nil, err
	}
	if err := requireUnpaused(reg); err != nil {
		return nil, nil, err
	}
	if err := requireMatcher(u, reg); err != nil {
		return nil, nil, err
	}
	m, err := getMarket(u, marketID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireBinaryOp(m, multi); err != nil {
		return nil, nil, err
	}
	if m.Status != ledger.MarketActive {
		return nil, nil, fmt.Errorf("engine: match on market %d: %w", m.ID, domain.ErrMarketNotActive)
	}
	if amount == 0 {
		return nil, nil, fmt.Errorf("engine: zero match amount: %w", domain.ErrInvalidArgument)
	}
	if len(orderIDs) != len(prices) {
		return nil, nil, fmt.Errorf("engine: %d orders, %d prices: %w", len(orderIDs), len(prices), domain.ErrInvalidArgument)
	}
	// Every outcome needs exactly one leg: a mint cannot leave an outcome
	// unminted and a burn cannot retire a set it only partially holds.
	if len(orderIDs) != int(m.OutcomeCount) {
		return nil, nil, fmt.Errorf("engine: %d legs for %d outcomes: %w", len(orderIDs), m.OutcomeCount, domain.ErrInvalidArgument)
	}

	var sum uint64
	for _, p := range prices {
		if p == 0 || p >= domain.PriceScale {
			return nil, nil, fmt.Errorf("engine: leg price %d: %w", p, domain.ErrInvalidArgument)
		}
		sum += p
	}
	if mint && sum > domain.PriceScale {
		return nil, nil, fmt.Errorf("engine: mint price sum %d: %w", sum, domain.ErrPriceConstraintViolated)
	}
	if !mint && sum < domain.PriceScale {
		return nil, nil, fmt.Errorf("engine: burn price sum %d: %w", sum, domain.ErrPriceConstraintViolated)
	}

	wantSide := ledger.SideBuy
	if !mint {
		wantSide = ledger.SideSell
	}

	legs := make([]matchLeg, m.OutcomeCount)
	seen := make(map[uint8]bool, m.OutcomeCount)
	for i, id := range orderIDs {
		o, err := getOrder(u, m.ID, id)
		if err != nil {
			return nil, nil, err
		}
		if o.Side != wantSide {
			return nil, nil, fmt.Errorf("engine: order %d side: %w", o.ID, domain.ErrInvalidArgument)
		}
		if seen[o.OutcomeIndex] {
			return nil, nil, fmt.Errorf("engine: outcome %d twice: %w", o.OutcomeIndex, domain.ErrDuplicateOutcome)
		}
		seen[o.OutcomeIndex] = true
		if err := liveOrder(u, o, amount); err != nil {
			return nil, nil, err
		}

		p := prices[i]
		// Execution prices must respect the resting limits: buyers never
		// pay above, sellers never quote below.
		if mint && p > o.Price {
			return nil, nil, fmt.Errorf("engine: leg price %d above buy limit %d: %w", p, o.Price, domain.ErrPriceConstraintViolated)
		}
		if !mint && p < o.Price {
			return nil, nil, fmt.Errorf("engine: leg price %d below sell limit %d: %w", p, o.Price, domain.ErrPriceConstraintViolated)
		}
		legs[o.OutcomeIndex] = matchLeg{order: o, price: p}
	}

	return m, legs, nil
}

// applyMatch settles a validated mint or burn.
//
// Mint: each buyer pays amount*price/1e6 into the vault and receives
// amount tokens of their outcome. The vault must gain the full amount to
// stay collateralized; the spread (the gap below a 1.0 price sum) is drawn
// from the protocol fee pool, where burn spreads and trade fees accrue.
//
// Burn: the vault releases amount, split across sellers proportionally to
// their leg prices. Asks summing above 1.0 are a haircut the sellers bear
// pro rata; rounding dust lands in the fee pool. Each seller's escrow is
// consumed and the tokens are burned.
func (e *Engine) applyMatch(u *uow, m *ledger.Market, legs []matchLeg, amount uint64, mint bool) error {
	vault := ledger.VaultAddress(m.ID)
	feePool := ledger.FeePoolAddress()

	var sum uint64
	for _, leg := range legs {
		sum += leg.price
	}

	trades := make([]domain.Trade, 0, len(legs))

	if mint {
		var paid uint64
		for _, leg := range legs {
			cost := amount * leg.price / domain.PriceScale
			if err := u.ct.Transfer(leg.order.Owner, vault, cost); err != nil {
				return err
			}
			paid += cost
			u.tx.Credit(ledger.MintAddress(m.ID, leg.order.OutcomeIndex), leg.order.Owner, amount)
		}
		if paid < amount {
			// Spread subsidy out of accumulated protocol revenue.
			if err := u.ct.Transfer(feePool, vault, amount-paid); err != nil {
				return err
			}
		}
		m.MintedSets += amount
		m.OpenInterest += amount
	} else {
		var out uint64
		for _, leg := range legs {
			if err := consumeEscrow(u, leg.order, amount); err != nil {
				return err
			}
			payout := amount * leg.price / sum
			if err := u.ct.Transfer(vault, leg.order.Owner, payout); err != nil {
				return err
			}
			out += payout
		}
		if out < amount {
			// Rounding residue, at most one tick per leg.
			if err := u.ct.Transfer(vault, feePool, amount-out); err != nil {
				return err
			}
		}
		m.RedeemedSets += amount
		m.OpenInterest -= amount
	}

	kind := domain.TradeKindBurn
	if mint {
		kind = domain.TradeKindMint
	}
	for _, leg := range legs {
		fill(u, leg.order, amount)
		pos := loadPosition(u, m.ID, leg.order.Owner)
		pos.Volume += amount
		putPosition(u, pos)
		trades = append(trades, newTrade(u, leg, amount, kind))
	}

	m.Volume += amount
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	reg.CumulativeVolume += amount
	u.tx.Put(ledger.RegistryAddress(), reg)

	if err := e.checkConservation(u, m); err != nil {
		return err
	}

	orders := make([]domain.Order, 0, len(legs))
	for _, leg := range legs {
		orders = append(orders, orderModel(leg.order))
	}
	u.emit(domain.Event{
		Type:     domain.EventTradeMatched,
		MarketID: m.ID,
		Orders:   orders,
		Trades:   trades,
		Amount:   amount,
	})
	return nil
}

// executeTrade crosses a buy and a sell order on the same outcome at the
// resting sell order's price. The creator fee comes out of the seller's
// proceeds and accrues to the protocol fee pool.
func (e *Engine) executeTrade(u *uow, in *wire.ExecuteTrade) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireUnpaused(reg); err != nil {
		return err
	}
	if err := requireMatcher(u, reg); err != nil {
		return err
	}
	m, err := getMarket(u, in.MarketID)
	if err != nil {
		return err
	}
	if m.Status != ledger.MarketActive {
		return fmt.Errorf("engine: trade on market %d: %w", m.ID, domain.ErrMarketNotActive)
	}
	if in.Amount == 0 {
		return fmt.Errorf("engine: zero trade amount: %w", domain.ErrInvalidArgument)
	}

	buy, err := getOrder(u, m.ID, in.BuyOrderID)
	if err != nil {
		return err
	}
	sell, err := getOrder(u, m.ID, in.SellOrderID)
	if err != nil {
		return err
	}
	if buy.Side != ledger.SideBuy || sell.Side != ledger.SideSell {
		return fmt.Errorf("engine: trade sides: %w", domain.ErrInvalidArgument)
	}
	if buy.OutcomeIndex != sell.OutcomeIndex {
		return fmt.Errorf("engine: trade outcomes %d/%d: %w", buy.OutcomeIndex, sell.OutcomeIndex, domain.ErrInvalidArgument)
	}
	if buy.Price < sell.Price {
		return fmt.Errorf("engine: buy %d below sell %d: %w", buy.Price, sell.Price, domain.ErrPriceConstraintViolated)
	}
	if err := liveOrder(u, buy, in.Amount); err != nil {
		return err
	}
	if err := liveOrder(u, sell, in.Amount); err != nil {
		return err
	}

	notional := in.Amount * sell.Price / domain.PriceScale
	fee := notional * uint64(m.CreatorFeeBps) / 10_000

	if err := u.ct.Transfer(buy.Owner, sell.Owner, notional-fee); err != nil {
		return err
	}
	if fee > 0 {
		if err := u.ct.Transfer(buy.Owner, ledger.FeePoolAddress(), fee); err != nil {
			return err
		}
	}
	if err := consumeEscrow(u, sell, in.Amount); err != nil {
		return err
	}
	u.tx.Credit(ledger.MintAddress(m.ID, buy.OutcomeIndex), buy.Owner, in.Amount)

	fill(u, buy, in.Amount)
	fill(u, sell, in.Amount)

	for _, owner := range []ledger.Address{buy.Owner, sell.Owner} {
		pos := loadPosition(u, m.ID, owner)
		pos.Volume += in.Amount
		putPosition(u, pos)
	}

	m.Volume += in.Amount
	m.UpdatedAt = u.now
	u.tx.Put(ledger.MarketAddress(m.ID), m)

	reg.CumulativeVolume += in.Amount
	u.tx.Put(ledger.RegistryAddress(), reg)

	u.emit(domain.Event{
		Type:     domain.EventTradeMatched,
		MarketID: m.ID,
		Orders:   []domain.Order{orderModel(buy), orderModel(sell)},
		Trades: []domain.Trade{
			newTrade(u, matchLeg{order: buy, price: sell.Price}, in.Amount, domain.TradeKindCross),
			newTrade(u, matchLeg{order: sell, price: sell.Price}, in.Amount, domain.TradeKindCross),
		},
		Amount: in.Amount,
	})
	return nil
}
