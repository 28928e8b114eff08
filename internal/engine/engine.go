// Package engine implements the settlement engine: market lifecycle,
// complete-set issuance, order matching, optimistic-oracle resolution, and
// claims. The engine is purely reactive; each instruction is applied as one
// atomic unit of work over the ledger and the custody program.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openpredict/settler/internal/custody"
	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// Engine applies instructions against the ledger account store. One mutex
// serializes application, standing in for the host platform's transaction
// ordering; no instruction ever observes a partially-applied sibling.
type Engine struct {
	mu      sync.Mutex
	store   *ledger.Store
	custody *custody.Service
	logger  *slog.Logger
	bus     domain.EventBus
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock. Tests use this to control
// resolution times and challenge windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEventBus attaches an event bus. Events publish after commit;
// publishing failures are logged, never propagated.
func WithEventBus(bus domain.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// New creates an Engine over the given ledger store and custody service.
func New(store *ledger.Store, cust *custody.Service, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		custody: cust,
		logger:  logger.With(slog.String("component", "engine")),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying ledger for read-only inspection (balances,
// supplies). Mutation happens only through Apply.
func (e *Engine) Store() *ledger.Store {
	return e.store
}

// Custody exposes the collateral custody collaborator.
func (e *Engine) Custody() *custody.Service {
	return e.custody
}

// uow is the per-instruction unit of work: a ledger transaction plus staged
// custody transfers, committed together or not at all.
type uow struct {
	tx     *ledger.Tx
	ct     *custody.Tx
	caller ledger.Address
	now    int64
	event  *domain.Event
}

// emit records the event to publish if the unit of work commits.
func (u *uow) emit(ev domain.Event) {
	ev.ID = uuid.NewString()
	ev.At = time.Unix(u.now, 0).UTC()
	ev.Caller = u.caller.Hex()
	u.event = &ev
}

// Apply executes one instruction signed by caller. On success the returned
// event describes the state transition; on failure no state changes and the
// error wraps one sentinel from the domain failure taxonomy.
func (e *Engine) Apply(ctx context.Context, caller ledger.Address, in wire.Instruction) (*domain.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC().Unix()
	u := &uow{
		tx:     e.store.Begin(),
		caller: caller,
		now:    now,
	}

	// Initialize runs before any custody authorization exists; everything
	// else transfers collateral on behalf of the registry.
	if in.Op() != wire.OpInitialize {
		ct, err := e.custody.Begin(ledger.RegistryAddress())
		if err != nil {
			return nil, err
		}
		u.ct = ct
	}

	if err := e.dispatch(u, in); err != nil {
		e.logger.DebugContext(ctx, "instruction rejected",
			slog.String("op", in.Op().String()),
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	u.tx.Commit()
	if u.ct != nil {
		u.ct.Commit()
	}

	e.logger.InfoContext(ctx, "instruction applied",
		slog.String("op", in.Op().String()),
		slog.String("caller", caller.Hex()),
	)

	if u.event != nil && e.bus != nil {
		e.publish(ctx, *u.event)
	}
	return u.event, nil
}

func (e *Engine) dispatch(u *uow, in wire.Instruction) error {
	switch in := in.(type) {
	case *wire.Initialize:
		return e.initialize(u, in)
	case *wire.SetPaused:
		return e.setPaused(u, in)
	case *wire.UpdateAdmin:
		return e.updateAdmin(u, in)
	case *wire.UpdateOracleAdmin:
		return e.updateOracleAdmin(u, in)
	case *wire.UpdateOracleConfig:
		return e.updateOracleConfig(u, in)
	case *wire.AddAuthorizedCaller:
		return e.addAuthorizedCaller(u, in)
	case *wire.RemoveAuthorizedCaller:
		return e.removeAuthorizedCaller(u, in)
	case *wire.CreateMarket:
		return e.createMarket(u, in)
	case *wire.ActivateMarket:
		return e.activateMarket(u, in)
	case *wire.PauseMarket:
		return e.pauseMarket(u, in)
	case *wire.ResumeMarket:
		return e.resumeMarket(u, in)
	case *wire.CancelMarket:
		return e.cancelMarket(u, in)
	case *wire.FlagMarket:
		return e.flagMarket(u, in)
	case *wire.MintCompleteSet:
		return e.mintCompleteSet(u, in)
	case *wire.RedeemCompleteSet:
		return e.redeemCompleteSet(u, in)
	case *wire.PlaceOrder:
		return e.placeOrder(u, in)
	case *wire.CancelOrder:
		return e.cancelOrder(u, in)
	case *wire.MatchBinary:
		return e.matchBinary(u, in)
	case *wire.MatchMulti:
		return e.matchMulti(u, in)
	case *wire.ExecuteTrade:
		return e.executeTrade(u, in)
	case *wire.ProposeResult:
		return e.proposeResult(u, in)
	case *wire.ChallengeResult:
		return e.challengeResult(u, in)
	case *wire.FinalizeResult:
		return e.finalizeResult(u, in)
	case *wire.ResolveDispute:
		return e.resolveDispute(u, in)
	case *wire.ClaimWinnings:
		return e.claimWinnings(u, in)
	default:
		return fmt.Errorf("engine: %s: %w", in.Op(), domain.ErrInvalidArgument)
	}
}

func (e *Engine) publish(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		e.logger.ErrorContext(ctx, "event marshal failed",
			slog.String("type", string(ev.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := e.bus.Publish(ctx, ev.Channel(), payload); err != nil {
		e.logger.ErrorContext(ctx, "event publish failed",
			slog.String("type", string(ev.Type)),
			slog.String("channel", ev.Channel()),
			slog.String("error", err.Error()),
		)
	}
}

// --- record access helpers ---

func getRegistry(u *uow) (*ledger.Registry, error) {
	rec, ok := u.tx.Get(ledger.RegistryAddress())
	if !ok {
		return nil, fmt.Errorf("engine: registry: %w", domain.ErrNotFound)
	}
	return rec.(*ledger.Registry), nil
}

func getMarket(u *uow, marketID uint64) (*ledger.Market, error) {
	rec, ok := u.tx.Get(ledger.MarketAddress(marketID))
	if !ok {
		return nil, fmt.Errorf("engine: market %d: %w", marketID, domain.ErrNotFound)
	}
	return rec.(*ledger.Market), nil
}

func getOrder(u *uow, marketID, orderID uint64) (*ledger.Order, error) {
	rec, ok := u.tx.Get(ledger.OrderAddress(marketID, orderID))
	if !ok {
		return nil, fmt.Errorf("engine: order %d/%d: %w", marketID, orderID, domain.ErrNotFound)
	}
	return rec.(*ledger.Order), nil
}

func getEscrow(u *uow, marketID, orderID uint64) (*ledger.Escrow, error) {
	rec, ok := u.tx.Get(ledger.EscrowAddress(marketID, orderID))
	if !ok {
		return nil, fmt.Errorf("engine: escrow %d/%d: %w", marketID, orderID, domain.ErrNotFound)
	}
	return rec.(*ledger.Escrow), nil
}

func getProposal(u *uow, marketID uint64) (*ledger.Proposal, error) {
	rec, ok := u.tx.Get(ledger.ProposalAddress(marketID))
	if !ok {
		return nil, fmt.Errorf("engine: proposal %d: %w", marketID, domain.ErrNotFound)
	}
	return rec.(*ledger.Proposal), nil
}

// loadPosition returns the (market, owner) position, creating it lazily.
func loadPosition(u *uow, marketID uint64, owner ledger.Address) *ledger.Position {
	addr := ledger.PositionAddress(marketID, owner)
	if rec, ok := u.tx.Get(addr); ok {
		return rec.(*ledger.Position)
	}
	return &ledger.Position{
		MarketID:  marketID,
		Owner:     owner,
		CreatedAt: u.now,
	}
}

func putPosition(u *uow, pos *ledger.Position) {
	pos.UpdatedAt = u.now
	u.tx.Put(ledger.PositionAddress(pos.MarketID, pos.Owner), pos)
}

// requireAdmin fails unless the caller is the registry admin.
func requireAdmin(u *uow, reg *ledger.Registry) error {
	if u.caller != reg.Admin {
		return fmt.Errorf("engine: caller %s is not admin: %w", u.caller.Hex(), domain.ErrUnauthorized)
	}
	return nil
}

// requireOracleAdmin fails unless the caller is the oracle admin.
func requireOracleAdmin(u *uow, reg *ledger.Registry) error {
	if u.caller != reg.OracleAdmin {
		return fmt.Errorf("engine: caller %s is not oracle admin: %w", u.caller.Hex(), domain.ErrUnauthorized)
	}
	return nil
}

// requireMatcher fails unless the caller may submit match instructions:
// the admin or a registered authorized caller.
func requireMatcher(u *uow, reg *ledger.Registry) error {
	if u.caller == reg.Admin || reg.AuthorizedCallers[u.caller] {
		return nil
	}
	return fmt.Errorf("engine: caller %s is not an authorized matcher: %w", u.caller.Hex(), domain.ErrUnauthorized)
}

// requireUnpaused fails when the registry-wide pause blocks trading
// instructions. Admin and oracle instructions stay available while paused.
func requireUnpaused(reg *ledger.Registry) error {
	if reg.Paused {
		return fmt.Errorf("engine: %w", domain.ErrProtocolPaused)
	}
	return nil
}

// checkConservation asserts the vault backs outstanding sets exactly. It
// runs after every instruction that moves vault collateral.
func (e *Engine) checkConservation(u *uow, m *ledger.Market) error {
	vault := u.ct.Balance(ledger.VaultAddress(m.ID))
	if vault != m.Outstanding() {
		return fmt.Errorf("engine: market %d vault %d != outstanding %d: conservation violated",
			m.ID, vault, m.Outstanding())
	}
	return nil
}
