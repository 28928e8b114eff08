package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/settler/internal/domain"
)

func newTestProjector(deps ProjectorDeps) *Projector {
	return NewProjector(deps, discardLogger())
}

func TestApplyPersistsEventPayload(t *testing.T) {
	ctx := context.Background()
	journal := &fakeEventStore{}
	markets := newFakeMarketStore()
	orders := &fakeOrderStore{}
	trades := &fakeTradeStore{}
	positions := &fakePositionStore{}
	proposals := &fakeProposalStore{}
	cache := newFakeMarketCache()
	cache.entries[5] = domain.Market{ID: 5}

	p := newTestProjector(ProjectorDeps{
		Journal:   journal,
		Markets:   markets,
		Orders:    orders,
		Trades:    trades,
		Positions: positions,
		Proposals: proposals,
		Cache:     cache,
	})

	ev := domain.Event{
		ID:       "ev-1",
		Type:     domain.EventTradeMatched,
		MarketID: 5,
		At:       time.Now().UTC(),
		Market:   &domain.Market{ID: 5, Status: domain.MarketStatusActive, Volume: 100},
		Orders: []domain.Order{
			{ID: 1, MarketID: 5, Owner: "0xaa"},
			{ID: 2, MarketID: 5, Owner: "0xbb"},
		},
		Trades:   []domain.Trade{{ID: "t-1", MarketID: 5}},
		Position: &domain.Position{MarketID: 5, Owner: "0xaa"},
	}

	require.NoError(t, p.apply(ctx, ev))

	assert.Len(t, journal.events, 1)
	assert.Equal(t, uint64(100), markets.markets[5].Volume)
	assert.Len(t, orders.orders, 2)
	assert.Len(t, trades.trades, 1)
	assert.Len(t, positions.positions, 1)
	// The touched market was evicted from the cache.
	assert.Equal(t, 1, cache.invalidates)
}

func TestApplyArchivesOnResolution(t *testing.T) {
	ctx := context.Background()
	arch := &fakeArchiver{}

	p := newTestProjector(ProjectorDeps{
		Journal:   &fakeEventStore{},
		Markets:   newFakeMarketStore(),
		Orders:    &fakeOrderStore{},
		Trades:    &fakeTradeStore{},
		Positions: &fakePositionStore{},
		Proposals: &fakeProposalStore{},
		Archiver:  arch,
		Locks:     newFakeLockManager(),
	})

	resolved := domain.Event{
		ID:       "ev-2",
		Type:     domain.EventMarketResolved,
		MarketID: 9,
		Market:   &domain.Market{ID: 9, Status: domain.MarketStatusResolved},
	}
	require.NoError(t, p.apply(ctx, resolved))
	assert.Equal(t, []uint64{9}, arch.calls)

	// Non-settling events never archive.
	placed := domain.Event{ID: "ev-3", Type: domain.EventOrderPlaced, MarketID: 9}
	require.NoError(t, p.apply(ctx, placed))
	assert.Len(t, arch.calls, 1)
}

func TestArchiveSkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	arch := &fakeArchiver{}
	locks := newFakeLockManager()

	// Simulate another instance holding the lock.
	_, err := locks.Acquire(ctx, "archive:market:4", time.Minute)
	require.NoError(t, err)

	p := newTestProjector(ProjectorDeps{
		Journal:   &fakeEventStore{},
		Markets:   newFakeMarketStore(),
		Orders:    &fakeOrderStore{},
		Trades:    &fakeTradeStore{},
		Positions: &fakePositionStore{},
		Proposals: &fakeProposalStore{},
		Archiver:  arch,
		Locks:     locks,
	})

	p.archive(ctx, 4)
	assert.Empty(t, arch.calls)
}

func TestApplyProposalEvent(t *testing.T) {
	ctx := context.Background()
	proposals := &fakeProposalStore{}

	p := newTestProjector(ProjectorDeps{
		Journal:   &fakeEventStore{},
		Markets:   newFakeMarketStore(),
		Orders:    &fakeOrderStore{},
		Trades:    &fakeTradeStore{},
		Positions: &fakePositionStore{},
		Proposals: proposals,
	})

	ev := domain.Event{
		ID:       "ev-4",
		Type:     domain.EventResultProposed,
		MarketID: 2,
		Proposal: &domain.OracleProposal{
			MarketID: 2,
			Proposer: "0xcc",
			Result:   domain.Result{Outcome: 1},
			Status:   domain.ProposalStatusPending,
		},
	}
	require.NoError(t, p.apply(ctx, ev))
	require.Len(t, proposals.proposals, 1)
	assert.Equal(t, domain.ProposalStatusPending, proposals.proposals[0].Status)
}
