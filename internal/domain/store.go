package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists the market read model.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id uint64) (Market, error)
	ListByStatus(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// OrderStore persists the order read model.
type OrderStore interface {
	Upsert(ctx context.Context, order Order) error
	GetByID(ctx context.Context, marketID, orderID uint64) (Order, error)
	ListOpen(ctx context.Context, marketID uint64) ([]Order, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Order, error)
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]Order, error)
}

// TradeStore persists executed match legs.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) error
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]Trade, error)
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]Trade, error)
}

// PositionStore persists per (market, owner) position aggregates.
type PositionStore interface {
	Upsert(ctx context.Context, pos Position) error
	Get(ctx context.Context, marketID uint64, owner string) (Position, error)
	ListByOwner(ctx context.Context, owner string) ([]Position, error)
	ListByMarket(ctx context.Context, marketID uint64) ([]Position, error)
}

// ProposalStore persists the oracle proposal read model.
type ProposalStore interface {
	Upsert(ctx context.Context, p OracleProposal) error
	GetByMarket(ctx context.Context, marketID uint64) (OracleProposal, error)
	ListByStatus(ctx context.Context, status ProposalStatus) ([]OracleProposal, error)
}

// EventStore persists an append-only journal of engine events.
type EventStore interface {
	Append(ctx context.Context, ev Event) error
	ListByMarket(ctx context.Context, marketID uint64, opts ListOpts) ([]Event, error)
}
