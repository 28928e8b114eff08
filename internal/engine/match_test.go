package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

func (env *testEnv) place(owner ledger.Address, marketID uint64, side ledger.OrderSide, outcome uint8, price, amount uint64, multi bool) uint64 {
	env.t.Helper()
	ev := env.apply(owner, &wire.PlaceOrder{
		MarketID:     marketID,
		Side:         uint8(side),
		OutcomeIndex: outcome,
		Price:        price,
		Amount:       amount,
		Kind:         uint8(ledger.OrderLimit),
		Multi:        multi,
	})
	return ev.Orders[0].ID
}

func TestMatchMintBinary(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)
	aliceStart := env.cust.Balance(env.alice)
	bobStart := env.cust.Balance(env.bob)

	yes := env.place(env.alice, id, ledger.SideBuy, 0, 600_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 400_000, 10*unit, false)

	ev := env.apply(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 600_000, PriceB: 400_000, Mint: true,
	})

	// Complementary buys at 0.60/0.40: 6.0 + 4.0 collateral in, 10 sets out.
	assert.Equal(t, aliceStart-6*unit, env.cust.Balance(env.alice))
	assert.Equal(t, bobStart-4*unit, env.cust.Balance(env.bob))
	assert.Equal(t, uint64(10*unit), env.balance(id, 0, env.alice))
	assert.Equal(t, uint64(10*unit), env.balance(id, 1, env.bob))
	assert.Zero(t, env.balance(id, 1, env.alice))
	assert.Equal(t, uint64(10*unit), env.cust.Balance(ledger.VaultAddress(id)))
	env.requireConserved(id)

	require.Len(t, ev.Trades, 2)
	assert.Equal(t, domain.TradeKindMint, ev.Trades[0].Kind)

	m := env.market(id)
	assert.Equal(t, uint64(10*unit), m.MintedSets)
	assert.Equal(t, uint64(10*unit), m.Volume)

	// Both orders fully filled; a second match finds no capacity.
	env.applyErr(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: unit, PriceA: 600_000, PriceB: 400_000, Mint: true,
	}, domain.ErrInsufficientUnfilledAmount)
}

func TestMatchMintPartialFill(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	yes := env.place(env.alice, id, ledger.SideBuy, 0, 500_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 500_000, 4*unit, false)

	env.apply(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 4 * unit, PriceA: 500_000, PriceB: 500_000, Mint: true,
	})

	rec, ok := env.store.Get(ledger.OrderAddress(id, yes))
	require.True(t, ok)
	o := rec.(*ledger.Order)
	assert.Equal(t, ledger.OrderPartiallyFilled, o.Status)
	assert.Equal(t, uint64(6*unit), o.Unfilled())

	// Asking past the smaller order's remaining size fails.
	env.applyErr(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: unit, PriceA: 500_000, PriceB: 500_000, Mint: true,
	}, domain.ErrInsufficientUnfilledAmount)
}

func TestMatchMintPriceBound(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	yes := env.place(env.alice, id, ledger.SideBuy, 0, 700_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 400_000, 10*unit, false)

	// 0.70 + 0.40 > 1.00: minting would print uncovered value.
	env.applyErr(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 700_000, PriceB: 400_000, Mint: true,
	}, domain.ErrPriceConstraintViolated)

	// Execution price above a buyer's limit is rejected too.
	env.applyErr(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 550_000, PriceB: 410_000, Mint: true,
	}, domain.ErrPriceConstraintViolated)
}

func TestMatchMintBelowParDrawsOnFeePool(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	yes := env.place(env.alice, id, ledger.SideBuy, 0, 550_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 400_000, 10*unit, false)

	match := &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 550_000, PriceB: 400_000, Mint: true,
	}

	// 0.55 + 0.40 leaves a 0.50 gap per ten sets; with an empty fee pool
	// the vault cannot be made whole.
	env.applyErr(env.admin, match, domain.ErrInsufficientBalance)

	env.cust.Deposit(ledger.FeePoolAddress(), unit)
	env.apply(env.admin, match)

	assert.Equal(t, uint64(unit)-unit/2, env.cust.Balance(ledger.FeePoolAddress()))
	assert.Equal(t, uint64(10*unit), env.cust.Balance(ledger.VaultAddress(id)))
	env.requireConserved(id)
}

func TestMatchBurnBinary(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	env.apply(env.bob, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	aliceStart := env.cust.Balance(env.alice)
	bobStart := env.cust.Balance(env.bob)

	yes := env.place(env.alice, id, ledger.SideSell, 0, 600_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideSell, 1, 400_000, 10*unit, false)

	env.apply(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 600_000, PriceB: 400_000, Mint: false,
	})

	// Ten sets burned at 0.60/0.40: the vault releases exactly 10.0.
	assert.Equal(t, aliceStart+6*unit, env.cust.Balance(env.alice))
	assert.Equal(t, bobStart+4*unit, env.cust.Balance(env.bob))
	assert.Equal(t, uint64(10*unit), env.cust.Balance(ledger.VaultAddress(id)))
	env.requireConserved(id)

	// Escrowed tokens were burned; the sellers keep their other side.
	assert.Zero(t, env.store.Balance(ledger.MintAddress(id, 0), ledger.EscrowAddress(id, yes)))
	assert.Equal(t, uint64(10*unit), env.balance(id, 1, env.alice))
	assert.Equal(t, uint64(10*unit), env.balance(id, 0, env.bob))
}

func TestMatchBurnAbovePar(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	env.apply(env.bob, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	aliceStart := env.cust.Balance(env.alice)
	bobStart := env.cust.Balance(env.bob)

	yes := env.place(env.alice, id, ledger.SideSell, 0, 660_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideSell, 1, 440_000, 10*unit, false)

	// Asks sum to 1.10 but only 10.0 leaves the vault; the haircut is
	// borne 6/4 pro rata.
	env.apply(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 660_000, PriceB: 440_000, Mint: false,
	})

	assert.Equal(t, aliceStart+6*unit, env.cust.Balance(env.alice))
	assert.Equal(t, bobStart+4*unit, env.cust.Balance(env.bob))
	env.requireConserved(id)

	// Asks below par never burn.
	env.applyErr(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: unit, PriceA: 400_000, PriceB: 400_000, Mint: false,
	}, domain.ErrPriceConstraintViolated)
}

func TestMatchRequiresAuthorizedCaller(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	yes := env.place(env.alice, id, ledger.SideBuy, 0, 600_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 400_000, 10*unit, false)

	match := &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 600_000, PriceB: 400_000, Mint: true,
	}
	env.applyErr(env.carol, match, domain.ErrUnauthorized)

	env.apply(env.admin, &wire.AddAuthorizedCaller{Caller: env.carol})
	env.apply(env.carol, match)
	env.requireConserved(id)
}

func TestMatchMintMulti(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(3, 0)

	a := env.place(env.alice, id, ledger.SideBuy, 0, 400_000, 9*unit, true)
	b := env.place(env.bob, id, ledger.SideBuy, 1, 300_000, 9*unit, true)
	c := env.place(env.carol, id, ledger.SideBuy, 2, 300_000, 9*unit, true)

	env.apply(env.admin, &wire.MatchMulti{
		MarketID: id,
		OrderIDs: []uint64{a, b, c},
		Amount:   9 * unit,
		Prices:   []uint64{400_000, 300_000, 300_000},
		Mint:     true,
	})

	assert.Equal(t, uint64(9*unit), env.balance(id, 0, env.alice))
	assert.Equal(t, uint64(9*unit), env.balance(id, 1, env.bob))
	assert.Equal(t, uint64(9*unit), env.balance(id, 2, env.carol))
	assert.Equal(t, uint64(9*unit), env.cust.Balance(ledger.VaultAddress(id)))
	env.requireConserved(id)
}

func TestMatchMultiRejectsDuplicateOutcome(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(3, 0)

	a := env.place(env.alice, id, ledger.SideBuy, 0, 400_000, 9*unit, true)
	b := env.place(env.bob, id, ledger.SideBuy, 1, 300_000, 9*unit, true)
	dup := env.place(env.carol, id, ledger.SideBuy, 1, 300_000, 9*unit, true)

	env.applyErr(env.admin, &wire.MatchMulti{
		MarketID: id,
		OrderIDs: []uint64{a, b, dup},
		Amount:   9 * unit,
		Prices:   []uint64{400_000, 300_000, 300_000},
		Mint:     true,
	}, domain.ErrDuplicateOutcome)

	// A leg set that skips an outcome cannot mint complete sets.
	env.applyErr(env.admin, &wire.MatchMulti{
		MarketID: id,
		OrderIDs: []uint64{a, b},
		Amount:   9 * unit,
		Prices:   []uint64{400_000, 300_000},
		Mint:     true,
	}, domain.ErrInvalidArgument)
}

func TestExecuteTrade(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 200) // 2% creator fee

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	aliceStart := env.cust.Balance(env.alice)
	bobStart := env.cust.Balance(env.bob)

	sell := env.place(env.alice, id, ledger.SideSell, 0, 600_000, 10*unit, false)
	buy := env.place(env.bob, id, ledger.SideBuy, 0, 650_000, 10*unit, false)

	env.apply(env.admin, &wire.ExecuteTrade{
		MarketID: id, BuyOrderID: buy, SellOrderID: sell, Amount: 10 * unit,
	})

	// Crossed at the resting ask 0.60: notional 6.0, fee 2% = 0.12.
	assert.Equal(t, uint64(10*unit), env.balance(id, 0, env.bob))
	assert.Equal(t, aliceStart+6*unit-120_000, env.cust.Balance(env.alice))
	assert.Equal(t, bobStart-6*unit, env.cust.Balance(env.bob))
	assert.Equal(t, uint64(120_000), env.cust.Balance(ledger.FeePoolAddress()))

	// Token supply and vault are untouched by a secondary trade.
	assert.Equal(t, uint64(10*unit), env.store.TotalSupply(ledger.MintAddress(id, 0)))
	env.requireConserved(id)
}

func TestExecuteTradeValidation(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	sellYes := env.place(env.alice, id, ledger.SideSell, 0, 600_000, 10*unit, false)
	buyNo := env.place(env.bob, id, ledger.SideBuy, 1, 500_000, 10*unit, false)
	buyLow := env.place(env.carol, id, ledger.SideBuy, 0, 550_000, 10*unit, false)

	// Different outcomes never cross.
	env.applyErr(env.admin, &wire.ExecuteTrade{
		MarketID: id, BuyOrderID: buyNo, SellOrderID: sellYes, Amount: unit,
	}, domain.ErrInvalidArgument)

	// Bid below ask never crosses.
	env.applyErr(env.admin, &wire.ExecuteTrade{
		MarketID: id, BuyOrderID: buyLow, SellOrderID: sellYes, Amount: unit,
	}, domain.ErrPriceConstraintViolated)
}
