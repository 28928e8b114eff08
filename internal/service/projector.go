package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openpredict/settler/internal/domain"
)

// projectorChannels are the event-bus channels the projector consumes. Every
// engine event publishes on exactly one of these.
var projectorChannels = []string{
	"ch:market",
	"ch:order",
	"ch:trade",
	"ch:oracle",
	"ch:claim",
}

// archiveLockTTL bounds how long an archive job may hold the per-market
// lock before another instance can take over.
const archiveLockTTL = 5 * time.Minute

// Projector consumes engine events from the bus and maintains the read
// model: the event journal, market/order/trade/position/proposal tables, and
// the market cache. When a market settles it also triggers report archiving.
//
// Projection is idempotent. Upserts and ON CONFLICT inserts make replaying
// an event a no-op, so a crashed projector can restart from the journal
// without double counting.
type Projector struct {
	bus       domain.EventBus
	journal   domain.EventStore
	markets   domain.MarketStore
	orders    domain.OrderStore
	trades    domain.TradeStore
	positions domain.PositionStore
	proposals domain.ProposalStore
	cache     domain.MarketCache // may be nil
	archiver  domain.Archiver    // may be nil
	locks     domain.LockManager // may be nil; required when archiver is set
	logger    *slog.Logger
}

// ProjectorDeps bundles the projector's collaborators.
type ProjectorDeps struct {
	Bus       domain.EventBus
	Journal   domain.EventStore
	Markets   domain.MarketStore
	Orders    domain.OrderStore
	Trades    domain.TradeStore
	Positions domain.PositionStore
	Proposals domain.ProposalStore
	Cache     domain.MarketCache
	Archiver  domain.Archiver
	Locks     domain.LockManager
}

// NewProjector creates a Projector from its dependencies.
func NewProjector(deps ProjectorDeps, logger *slog.Logger) *Projector {
	return &Projector{
		bus:       deps.Bus,
		journal:   deps.Journal,
		markets:   deps.Markets,
		orders:    deps.Orders,
		trades:    deps.Trades,
		positions: deps.Positions,
		proposals: deps.Proposals,
		cache:     deps.Cache,
		archiver:  deps.Archiver,
		locks:     deps.Locks,
		logger:    logger.With(slog.String("component", "projector")),
	}
}

// Run subscribes to every engine channel and projects events until the
// context is cancelled.
func (p *Projector) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, channel := range projectorChannels {
		msgCh, err := p.bus.Subscribe(ctx, channel)
		if err != nil {
			return err
		}
		ch := channel
		g.Go(func() error {
			return p.consume(ctx, ch, msgCh)
		})
	}

	p.logger.InfoContext(ctx, "projector started",
		slog.Int("channels", len(projectorChannels)),
	)
	return g.Wait()
}

func (p *Projector) consume(ctx context.Context, channel string, msgCh <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgCh:
			if !ok {
				return nil
			}

			var ev domain.Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				p.logger.WarnContext(ctx, "malformed event dropped",
					slog.String("channel", channel),
					slog.String("error", err.Error()),
				)
				continue
			}

			if err := p.apply(ctx, ev); err != nil {
				// Projection failures are logged, not fatal: the journal and
				// upserts are idempotent, so the event can be replayed.
				p.logger.ErrorContext(ctx, "event projection failed",
					slog.String("type", string(ev.Type)),
					slog.String("event_id", ev.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// apply persists one event into the read model.
func (p *Projector) apply(ctx context.Context, ev domain.Event) error {
	if err := p.journal.Append(ctx, ev); err != nil {
		return err
	}

	if ev.Market != nil {
		if err := p.markets.Upsert(ctx, *ev.Market); err != nil {
			return err
		}
		p.invalidate(ctx, ev.Market.ID)
	}
	for _, o := range ev.Orders {
		if err := p.orders.Upsert(ctx, o); err != nil {
			return err
		}
	}
	if len(ev.Trades) > 0 {
		if err := p.trades.InsertBatch(ctx, ev.Trades); err != nil {
			return err
		}
	}
	if ev.Proposal != nil {
		if err := p.proposals.Upsert(ctx, *ev.Proposal); err != nil {
			return err
		}
	}
	if ev.Position != nil {
		if err := p.positions.Upsert(ctx, *ev.Position); err != nil {
			return err
		}
	}

	switch ev.Type {
	case domain.EventMarketResolved, domain.EventMarketCancelled:
		p.archive(ctx, ev.MarketID)
	}
	return nil
}

func (p *Projector) invalidate(ctx context.Context, marketID uint64) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Invalidate(ctx, marketID); err != nil {
		p.logger.WarnContext(ctx, "market cache invalidate failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

// archive uploads the settlement report for a settled market. The per-market
// lock keeps concurrent instances from writing the same report twice.
func (p *Projector) archive(ctx context.Context, marketID uint64) {
	if p.archiver == nil {
		return
	}

	if p.locks != nil {
		unlock, err := p.locks.Acquire(ctx, "archive:market:"+strconv.FormatUint(marketID, 10), archiveLockTTL)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				p.logger.WarnContext(ctx, "archive lock failed",
					slog.Uint64("market_id", marketID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		defer unlock()
	}

	path, err := p.archiver.ArchiveMarket(ctx, marketID)
	if err != nil {
		p.logger.ErrorContext(ctx, "settlement report archive failed",
			slog.Uint64("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.InfoContext(ctx, "settlement report archived",
		slog.Uint64("market_id", marketID),
		slog.String("path", path),
	)
}
