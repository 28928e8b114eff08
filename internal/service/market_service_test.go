package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/settler/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetMarketReadThrough(t *testing.T) {
	ctx := context.Background()
	store := newFakeMarketStore()
	cache := newFakeMarketCache()
	store.markets[7] = domain.Market{ID: 7, Status: domain.MarketStatusActive}

	svc := NewMarketService(store, cache, discardLogger())

	// First read misses the cache, hits the store, and populates the cache.
	m, err := svc.GetMarket(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), m.ID)
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache.
	_, err = svc.GetMarket(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, store.gets)
}

func TestGetMarketCacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newFakeMarketStore()
	cache := newFakeMarketCache()
	cache.getErr = errCacheDown
	store.markets[3] = domain.Market{ID: 3}

	svc := NewMarketService(store, cache, discardLogger())

	m, err := svc.GetMarket(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.ID)
}

func TestGetMarketNilCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeMarketStore()
	store.markets[1] = domain.Market{ID: 1}

	svc := NewMarketService(store, nil, discardLogger())

	m, err := svc.GetMarket(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.ID)

	_, err = svc.GetMarket(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListMarketsStatusFilter(t *testing.T) {
	ctx := context.Background()
	store := newFakeMarketStore()
	store.markets[1] = domain.Market{ID: 1, Status: domain.MarketStatusActive}
	store.markets[2] = domain.Market{ID: 2, Status: domain.MarketStatusResolved}

	svc := NewMarketService(store, nil, discardLogger())

	all, err := svc.ListMarkets(ctx, "", domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.ListMarkets(ctx, domain.MarketStatusActive, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(1), active[0].ID)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
