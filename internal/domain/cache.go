package domain

import (
	"context"
	"time"
)

// EventBus publishes engine events for downstream consumers (the projector,
// the websocket hub, external subscribers). Publish is fire-and-forget from
// the engine's point of view: a bus failure never rolls back an instruction.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter applies sliding-window rate limits keyed by caller identity.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// MarketCache is a short-TTL read-through cache in front of the market read
// model. A cache miss or failure falls back to the store; it is never an
// instruction failure.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id uint64) (Market, error)
	Invalidate(ctx context.Context, id uint64) error
}

// LockManager provides coarse distributed locks so exactly one instance runs
// a given job (archiving a resolved market, replaying the journal) at a time.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
