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

// resolve drives a market through propose and finalize to the given result.
func (env *testEnv) resolve(id uint64, result uint8, multi bool) {
	env.t.Helper()
	env.cust.Deposit(env.admin, 100*unit)
	env.advance(3 * time.Hour)
	env.apply(env.admin, &wire.ProposeResult{MarketID: id, Result: result, Multi: multi})
	env.advance(2 * time.Hour)
	env.apply(env.alice, &wire.FinalizeResult{MarketID: id})
}

func TestClaimAfterResolution(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)
	aliceStart := env.cust.Balance(env.alice)
	bobStart := env.cust.Balance(env.bob)

	// Alice ends up all-in on YES, Bob all-in on NO, via a matched mint.
	yes := env.place(env.alice, id, ledger.SideBuy, 0, 600_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 400_000, 10*unit, false)
	env.apply(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 600_000, PriceB: 400_000, Mint: true,
	})

	env.applyErr(env.alice, &wire.ClaimWinnings{MarketID: id}, domain.ErrMarketNotResolved)

	env.resolve(id, 0, false)

	env.apply(env.alice, &wire.ClaimWinnings{MarketID: id})

	// YES pays 1.0: Alice paid 6.0 for 10 sets, nets +4.0.
	assert.Equal(t, aliceStart+4*unit, env.cust.Balance(env.alice))
	assert.Zero(t, env.balance(id, 0, env.alice))
	assert.Zero(t, env.cust.Balance(ledger.VaultAddress(id)))
	env.requireConserved(id)

	// Claims are idempotent and losers hold nothing claimable.
	env.applyErr(env.alice, &wire.ClaimWinnings{MarketID: id}, domain.ErrNothingToClaim)
	env.applyErr(env.bob, &wire.ClaimWinnings{MarketID: id}, domain.ErrNothingToClaim)
	assert.Equal(t, bobStart-4*unit, env.cust.Balance(env.bob))
}

func TestClaimOnCancelledMarket(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)
	start := env.cust.Balance(env.alice)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	env.apply(env.admin, &wire.CancelMarket{MarketID: id, Reason: "void"})

	env.apply(env.alice, &wire.ClaimWinnings{MarketID: id})

	// Complete sets refund 1:1.
	assert.Equal(t, start, env.cust.Balance(env.alice))
	assert.Zero(t, env.balance(id, 0, env.alice))
	assert.Zero(t, env.balance(id, 1, env.alice))
	env.requireConserved(id)

	env.applyErr(env.alice, &wire.ClaimWinnings{MarketID: id}, domain.ErrNothingToClaim)
}

func TestClaimOnInvalidResult(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(3, 0)
	start := env.cust.Balance(env.alice)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 6 * unit, Multi: true})
	env.resolve(id, ledger.ResultInvalid, true)

	env.apply(env.alice, &wire.ClaimWinnings{MarketID: id, Multi: true})
	assert.Equal(t, start, env.cust.Balance(env.alice))
	env.requireConserved(id)
}

func TestClaimRefundUsesMinimumAcrossOutcomes(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	// Alice mints ten sets but sells four YES away to Bob, leaving an
	// uneven 6/10 book at cancellation.
	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 10 * unit})
	sell := env.place(env.alice, id, ledger.SideSell, 0, 500_000, 4*unit, false)
	buy := env.place(env.bob, id, ledger.SideBuy, 0, 500_000, 4*unit, false)
	env.apply(env.admin, &wire.ExecuteTrade{MarketID: id, BuyOrderID: buy, SellOrderID: sell, Amount: 4 * unit})

	env.apply(env.admin, &wire.CancelMarket{MarketID: id, Reason: "void"})
	env.apply(env.alice, &wire.ClaimWinnings{MarketID: id})

	// Only six complete sets were refundable; the stranded NO stays put.
	assert.Zero(t, env.balance(id, 0, env.alice))
	assert.Equal(t, uint64(4*unit), env.balance(id, 1, env.alice))
	env.requireConserved(id)

	// Bob holds YES only, no complete set, nothing to refund.
	env.applyErr(env.bob, &wire.ClaimWinnings{MarketID: id}, domain.ErrNothingToClaim)
}

func TestClaimAfterDispute(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)
	env.cust.Deposit(env.admin, 200*unit)
	bobStart := env.cust.Balance(env.bob)

	yes := env.place(env.alice, id, ledger.SideBuy, 0, 500_000, 10*unit, false)
	no := env.place(env.bob, id, ledger.SideBuy, 1, 500_000, 10*unit, false)
	env.apply(env.admin, &wire.MatchBinary{
		MarketID: id, OrderA: yes, OrderB: no,
		Amount: 10 * unit, PriceA: 500_000, PriceB: 500_000, Mint: true,
	})

	env.advance(3 * time.Hour)
	env.apply(env.admin, &wire.ProposeResult{MarketID: id, Result: 0})
	env.apply(env.carol, &wire.ChallengeResult{MarketID: id, CounterResult: 1})
	env.apply(env.admin, &wire.ResolveDispute{MarketID: id, ChallengerWins: true})

	// NO won on the ruling; Bob paid 5.0 for 10 sets.
	env.apply(env.bob, &wire.ClaimWinnings{MarketID: id})
	require.Equal(t, bobStart+5*unit, env.cust.Balance(env.bob))
	env.requireConserved(id)
}

func TestClaimPermittedWhilePaused(t *testing.T) {
	env := initialized(t)
	id := env.activeMarket(2, 0)

	env.apply(env.alice, &wire.MintCompleteSet{MarketID: id, Amount: 5 * unit})
	env.resolve(id, 0, false)
	env.apply(env.admin, &wire.SetPaused{Paused: true})

	// A protocol halt never locks settled funds.
	env.apply(env.alice, &wire.ClaimWinnings{MarketID: id})
	env.requireConserved(id)
}
