package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

func TestPlaceOrderValidation(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	base := wire.PlaceOrder{
		MarketID: id, Side: uint8(ledger.SideBuy), OutcomeIndex: 0,
		Price: 500_000, Amount: unit, Kind: uint8(ledger.OrderLimit),
	}

	in := base
	in.Price = 0
	env.applyErr(env.alice, &in, domain.ErrInvalidArgument)

	in = base
	in.Price = unit // 1.0 is outside the open interval
	env.applyErr(env.alice, &in, domain.ErrInvalidArgument)

	in = base
	in.Amount = 0
	env.applyErr(env.alice, &in, domain.ErrInvalidArgument)

	in = base
	in.OutcomeIndex = 2
	env.applyErr(env.alice, &in, domain.ErrInvalidArgument)

	in = base
	in.ExpiresAt = env.now.Add(-time.Minute).Unix()
	env.applyErr(env.alice, &in, domain.ErrInvalidTimeWindow)

	// Selling without tokens fails at escrow time.
	in = base
	in.Side = uint8(ledger.SideSell)
	env.applyErr(env.alice, &in, domain.ErrInsufficientBalance)
}

func TestSellOrderEscrowRoundTrip(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	oid := env.place(env.alice, id, ledger.SideSell, 0, 600_000, 8*unit, false)

	// Escrow moved the tokens off the free balance but not off the books.
	escrowAddr := ledger.EscrowAddress(id, oid)
	assert.Equal(t, uint64(2*unit), env.balance(id, 0, env.alice))
	assert.Equal(t, uint64(8*unit), env.store.Balance(ledger.MintAddress(id, 0), escrowAddr))
	assert.Equal(t, uint64(10*unit), env.store.TotalSupply(ledger.MintAddress(id, 0)))

	env.apply(env.alice, &wire.CancelOrder{MarketID: id, OrderID: oid})

	assert.Equal(t, uint64(10*unit), env.balance(id, 0, env.alice))
	assert.Zero(t, env.store.Balance(ledger.MintAddress(id, 0), escrowAddr))

	rec, ok := env.store.Get(ledger.OrderAddress(id, oid))
	require.True(t, ok)
	assert.Equal(t, ledger.OrderCancelled, rec.(*ledger.Order).Status)
}

func TestCancelOrderAuthorization(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	oid := env.place(env.alice, id, ledger.SideBuy, 0, 500_000, unit, false)

	env.applyErr(env.bob, &wire.CancelOrder{MarketID: id, OrderID: oid}, domain.ErrUnauthorized)
	env.apply(env.alice, &wire.CancelOrder{MarketID: id, OrderID: oid})
	env.applyErr(env.alice, &wire.CancelOrder{MarketID: id, OrderID: oid}, domain.ErrOrderNotCancellable)
}

func TestCancelFilledOrder(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	yes := env.place(env.alice, id, ledger.SideBuy, 0, 500_000, unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 500_000, unit, false)
	env.apply(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: unit, PriceA: 500_000, PriceB: 500_000, Mint: true,
	})

	env.applyErr(env.alice, &wire.CancelOrder{MarketID: id, OrderID: yes}, domain.ErrOrderNotCancellable)
}

func TestExpiredOrderNeverMatches(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	yes := env.apply(env.alice, &wire.PlaceOrder{
		MarketID: id, Side: uint8(ledger.SideBuy), OutcomeIndex: 0,
		Price: 500_000, Amount: unit, Kind: uint8(ledger.OrderLimit),
		ExpiresAt: env.now.Add(time.Minute).Unix(),
	}).Orders[0].ID
	no := env.place(env.bob, id, ledger.SideBuy, 1, 500_000, unit, false)

	env.advance(time.Hour)

	env.applyErr(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: unit, PriceA: 500_000, PriceB: 500_000, Mint: true,
	}, domain.ErrInsufficientUnfilledAmount)

	// Cancelling an expired order records the expiry.
	env.apply(env.alice, &wire.CancelOrder{MarketID: id, OrderID: yes})
	rec, ok := env.store.Get(ledger.OrderAddress(id, yes))
	require.True(t, ok)
	assert.Equal(t, ledger.OrderExpired, rec.(*ledger.Order).Status)
}

func TestOrderIDsMonotonicPerMarket(t *testing.T) {
	env := initialized(t)
	a := env.activeMarket(2, 0)
	b := env.activeMarket(2, 0)

	require.Equal(t, uint64(1), env.place(env.alice, a, ledger.SideBuy, 0, 500_000, unit, false))
	require.Equal(t, uint64(2), env.place(env.alice, a, ledger.SideBuy, 0, 500_000, unit, false))
	require.Equal(t, uint64(1), env.place(env.alice, b, ledger.SideBuy, 0, 500_000, unit, false))
}

func TestMatchRejectsWrongSide(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	sell := env.place(env.alice, id, ledger.SideSell, 0, 600_000, 10*unit, false)
	buyNo := env.place(env.bob, id, ledger.SideBuy, 1, 400_000, 10*unit, false)

	// A mint needs two buys; a sell leg is a different instrument.
	env.applyErr(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: sell, OrderB: buyNo,
		Amount: 10 * unit, PriceA: 600_000, PriceB: 400_000, Mint: true,
	}, domain.ErrInvalidArgument)
}
