package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openpredict/settler/internal/crypto"
	"github.com/openpredict/settler/internal/custody"
	"github.com/openpredict/settler/internal/engine"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/server"
	"github.com/openpredict/settler/internal/server/handler"
	"github.com/openpredict/settler/internal/server/ws"
	"github.com/openpredict/settler/internal/service"
	"github.com/openpredict/settler/internal/wire"
)

// ServeMode runs the settlement engine and the HTTP/WebSocket API. The
// engine publishes events to the bus; a projector (in this process or
// another) maintains the read model.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	eng, _, err := a.buildEngine(ctx, deps)
	if err != nil {
		return fmt.Errorf("serve mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, eng)
	return g.Wait()
}

// ProjectorMode consumes engine events from the bus, maintains the
// Postgres read model, archives settled markets, and dispatches alerts.
// It runs no engine and no HTTP API.
func (a *App) ProjectorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting projector mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startProjector(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything in one process: the engine, the HTTP/WebSocket
// API, the projector, and alert dispatch.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	eng, _, err := a.buildEngine(ctx, deps)
	if err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startProjector(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, eng)
	return g.Wait()
}

// buildEngine constructs the in-memory ledger engine, initializes the
// registry from configuration, and registers the configured matcher
// identities. The operator key becomes admin and oracle admin.
func (a *App) buildEngine(ctx context.Context, deps *Dependencies) (*engine.Engine, *crypto.Signer, error) {
	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build engine: load key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("build engine: create signer: %w", err)
	}
	operator := signer.Address()

	store := ledger.NewStore()
	cust := custody.New()
	cust.RegisterCaller(operator)

	eng := engine.New(store, cust, a.logger, engine.WithEventBus(deps.EventBus))

	// The ledger is rebuilt on every boot, so Initialize always runs.
	collateral := ledger.Derive("collateral", []byte("default"))
	if a.cfg.Engine.CollateralAsset != "" {
		collateral, err = ledger.ParseAddress(a.cfg.Engine.CollateralAsset)
		if err != nil {
			return nil, nil, fmt.Errorf("build engine: collateral asset: %w", err)
		}
	}
	if _, err := eng.Apply(ctx, operator, &wire.Initialize{
		CollateralAsset:     collateral,
		ChallengeWindowSecs: int64(a.cfg.Engine.ChallengeWindow.Duration.Seconds()),
		ProposerBond:        a.cfg.Engine.ProposerBond,
		DefaultFeeBps:       a.cfg.Engine.DefaultFeeBps,
	}); err != nil {
		return nil, nil, fmt.Errorf("build engine: initialize: %w", err)
	}

	for _, raw := range a.cfg.Engine.AuthorizedCallers {
		caller, err := ledger.ParseAddress(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("build engine: authorized caller %q: %w", raw, err)
		}
		if _, err := eng.Apply(ctx, operator, &wire.AddAuthorizedCaller{Caller: caller}); err != nil {
			return nil, nil, fmt.Errorf("build engine: authorize caller %s: %w", caller.Hex(), err)
		}
		cust.RegisterCaller(caller)
	}

	a.logger.InfoContext(ctx, "engine initialized",
		slog.String("operator", operator.Hex()),
		slog.Duration("challenge_window", a.cfg.Engine.ChallengeWindow.Duration),
		slog.Uint64("proposer_bond", a.cfg.Engine.ProposerBond),
		slog.Int("authorized_callers", len(a.cfg.Engine.AuthorizedCallers)),
	)
	return eng, signer, nil
}

// startProjector adds the event projector and the alert dispatcher to the
// given errgroup.
func (a *App) startProjector(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	proj := service.NewProjector(service.ProjectorDeps{
		Bus:       deps.EventBus,
		Journal:   deps.EventStore,
		Markets:   deps.MarketStore,
		Orders:    deps.OrderStore,
		Trades:    deps.TradeStore,
		Positions: deps.PositionStore,
		Proposals: deps.ProposalStore,
		Cache:     deps.MarketCache,
		Archiver:  deps.Archiver,
		Locks:     deps.LockManager,
	}, a.logger)
	g.Go(func() error {
		return proj.Run(ctx)
	})

	alerts := service.NewAlerts(deps.EventBus, deps.Notifier, a.logger)
	g.Go(func() error {
		return alerts.Run(ctx)
	})
}

// startHTTPServer adds the HTTP/WebSocket API server to the given errgroup.
// It is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine.Engine) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled by configuration")
		return
	}

	startedAt := time.Now().UTC()

	instructionSvc := service.NewInstructionService(eng, a.logger)
	marketSvc := service.NewMarketService(deps.MarketStore, deps.MarketCache, a.logger)

	handlers := server.Handlers{
		Health:       handler.NewHealthHandler(a.logger),
		Status:       handler.NewStatusHandler(eng, a.cfg.Mode, startedAt),
		Instructions: handler.NewInstructionHandler(instructionSvc, a.logger),
		Markets:      handler.NewMarketHandler(marketSvc, a.logger),
		Orders:       handler.NewOrderHandler(deps.OrderStore, a.logger),
		Trades:       handler.NewTradeHandler(deps.TradeStore, a.logger),
		Positions:    handler.NewPositionHandler(deps.PositionStore, a.logger),
		Oracle:       handler.NewOracleHandler(deps.ProposalStore, a.logger),
		Events:       handler.NewEventHandler(deps.EventStore, a.logger),
	}

	hub := ws.NewHub(deps.EventBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: startedAt,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
