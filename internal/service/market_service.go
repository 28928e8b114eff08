package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openpredict/settler/internal/domain"
)

// MarketService serves market queries with a short-TTL cache in front of the
// read-model store. Cache failures degrade to store reads; they are never
// surfaced to callers.
type MarketService struct {
	markets domain.MarketStore
	cache   domain.MarketCache // may be nil
	logger  *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil, in which case
// every read goes to the store.
func NewMarketService(markets domain.MarketStore, cache domain.MarketCache, logger *slog.Logger) *MarketService {
	return &MarketService{
		markets: markets,
		cache:   cache,
		logger:  logger.With(slog.String("component", "markets")),
	}
}

// GetMarket returns one market, consulting the cache first.
func (s *MarketService) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	if s.cache != nil {
		m, err := s.cache.Get(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market cache read failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "market cache write failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return m, nil
}

// ListMarkets returns markets, optionally filtered by status. An empty
// status lists everything.
func (s *MarketService) ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	if status == "" {
		return s.markets.List(ctx, opts)
	}
	return s.markets.ListByStatus(ctx, status, opts)
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	return s.markets.Count(ctx)
}
