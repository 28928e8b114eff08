package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/openpredict/settler/internal/custody"
	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// TestMatchMintPriceSumProperty drives matched mints across random outcome
// counts and leg prices: a mint must succeed exactly when the prices sum to
// at most 1.0, and every success must leave the vault holding one unit of
// collateral per outstanding set.
func TestMatchMintPriceSumProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outcomes := rapid.Uint8Range(domain.MinOutcomes, domain.MaxOutcomes).Draw(t, "outcomes").(uint8)
		amount := rapid.Uint64Range(1, 100*unit).Draw(t, "amount").(uint64)

		prices := make([]uint64, outcomes)
		var sum uint64
		for i := range prices {
			prices[i] = rapid.Uint64Range(1, domain.PriceScale-1).Draw(t, "price").(uint64)
			sum += prices[i]
		}

		store := ledger.NewStore()
		cust := custody.New()
		now := testBase
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		eng := New(store, cust, logger, WithClock(func() time.Time { return now }))

		ctx := context.Background()
		admin := testAddr(0xA1)
		mustApply := func(caller ledger.Address, in wire.Instruction) *domain.Event {
			ev, err := eng.Apply(ctx, caller, in)
			if err != nil {
				t.Fatalf("%s: %v", in.Op(), err)
			}
			return ev
		}

		mustApply(admin, &wire.Initialize{ChallengeWindowSecs: 3600})
		ev := mustApply(admin, &wire.CreateMarket{
			ResolutionTime:       now.Add(time.Hour).Unix(),
			FinalizationDeadline: now.Add(24 * time.Hour).Unix(),
			OutcomeCount:         outcomes,
			Multi:                outcomes != 2,
		})
		marketID := ev.MarketID
		mustApply(admin, &wire.ActivateMarket{MarketID: marketID})

		// Trade fees have accrued in a live deployment; a below-par mint
		// draws its gap from there.
		cust.Deposit(ledger.FeePoolAddress(), amount)

		orderIDs := make([]uint64, outcomes)
		buyers := make([]ledger.Address, outcomes)
		for i := range orderIDs {
			buyers[i] = testAddr(byte(10 + i))
			cust.Deposit(buyers[i], amount)
			ev := mustApply(buyers[i], &wire.PlaceOrder{
				MarketID:     marketID,
				Side:         uint8(ledger.SideBuy),
				OutcomeIndex: uint8(i),
				Price:        prices[i],
				Amount:       amount,
				Kind:         uint8(ledger.OrderLimit),
				Multi:        outcomes != 2,
			})
			orderIDs[i] = ev.Orders[0].ID
		}

		_, err := eng.Apply(ctx, admin, &wire.MatchMulti{
			MarketID: marketID,
			OrderIDs: orderIDs,
			Amount:   amount,
			Prices:   prices,
			Mint:     true,
		})

		if sum > domain.PriceScale {
			if err == nil {
				t.Fatalf("mint accepted with price sum %d", sum)
			}
			return
		}
		if err != nil {
			t.Fatalf("mint rejected with price sum %d: %v", sum, err)
		}

		rec, ok := store.Get(ledger.MarketAddress(marketID))
		if !ok {
			t.Fatalf("market record missing")
		}
		m := rec.(*ledger.Market)
		if vault := cust.Balance(ledger.VaultAddress(marketID)); vault != m.Outstanding() {
			t.Fatalf("vault %d != outstanding %d", vault, m.Outstanding())
		}
		for i, buyer := range buyers {
			if got := store.Balance(ledger.MintAddress(marketID, uint8(i)), buyer); got != amount {
				t.Fatalf("buyer %d holds %d, want %d", i, got, amount)
			}
		}
	})
}

// TestRedeemNeverExceedsMintProperty mints and redeems random amounts and
// checks conservation plus supply symmetry after every step.
func TestRedeemNeverExceedsMintProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outcomes := rapid.Uint8Range(domain.MinOutcomes, 8).Draw(t, "outcomes").(uint8)

		store := ledger.NewStore()
		cust := custody.New()
		now := testBase
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		eng := New(store, cust, logger, WithClock(func() time.Time { return now }))

		ctx := context.Background()
		admin := testAddr(0xA1)
		user := testAddr(0x07)
		cust.Deposit(user, 1_000*unit)

		mustApply := func(caller ledger.Address, in wire.Instruction) *domain.Event {
			ev, err := eng.Apply(ctx, caller, in)
			if err != nil {
				t.Fatalf("%s: %v", in.Op(), err)
			}
			return ev
		}
		mustApply(admin, &wire.Initialize{ChallengeWindowSecs: 3600})
		ev := mustApply(admin, &wire.CreateMarket{
			ResolutionTime:       now.Add(time.Hour).Unix(),
			FinalizationDeadline: now.Add(24 * time.Hour).Unix(),
			OutcomeCount:         outcomes,
			Multi:                outcomes != 2,
		})
		marketID := ev.MarketID
		mustApply(admin, &wire.ActivateMarket{MarketID: marketID})

		var minted, redeemed uint64
		steps := rapid.IntRange(1, 20).Draw(t, "steps").(int)
		for s := 0; s < steps; s++ {
			multi := outcomes != 2
			if rapid.Bool().Draw(t, "mint").(bool) {
				amt := rapid.Uint64Range(1, 10*unit).Draw(t, "mint_amount").(uint64)
				if minted-redeemed+amt > 500*unit {
					continue
				}
				mustApply(user, &wire.MintCompleteSet{MarketID: marketID, Amount: amt, Multi: multi})
				minted += amt
			} else {
				held := minted - redeemed
				if held == 0 {
					continue
				}
				amt := rapid.Uint64Range(1, held).Draw(t, "redeem_amount").(uint64)
				mustApply(user, &wire.RedeemCompleteSet{MarketID: marketID, Amount: amt, Multi: multi})
				redeemed += amt
			}

			vault := cust.Balance(ledger.VaultAddress(marketID))
			if vault != minted-redeemed {
				t.Fatalf("vault %d after mint %d redeem %d", vault, minted, redeemed)
			}
			first := store.TotalSupply(ledger.MintAddress(marketID, 0))
			for i := uint8(1); i < outcomes; i++ {
				if sup := store.TotalSupply(ledger.MintAddress(marketID, i)); sup != first {
					t.Fatalf("outcome %d supply %d != %d", i, sup, first)
				}
			}
		}
	})
}
