package engine

import (
	"fmt"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
	"github.com/openpredict/settler/internal/wire"
)

// initialize creates the registry singleton. The caller becomes both admin
// and oracle admin; rotate the latter with UpdateOracleAdmin afterwards.
func (e *Engine) initialize(u *uow, in *wire.Initialize) error {
	if _, ok := u.tx.Get(ledger.RegistryAddress()); ok {
		return fmt.Errorf("engine: %w", domain.ErrAlreadyInitialized)
	}
	if in.ChallengeWindowSecs <= 0 || in.DefaultFeeBps > 10_000 {
		return fmt.Errorf("engine: initialize: %w", domain.ErrInvalidArgument)
	}

	reg := &ledger.Registry{
		Admin:             u.caller,
		OracleAdmin:       u.caller,
		CollateralAsset:   in.CollateralAsset,
		NextMarketID:      1,
		ChallengeWindow:   in.ChallengeWindowSecs,
		ProposerBond:      in.ProposerBond,
		DefaultFeeBps:     in.DefaultFeeBps,
		AuthorizedCallers: make(map[ledger.Address]bool),
	}
	u.tx.Put(ledger.RegistryAddress(), reg)

	// The registry identity is the engine's transfer authority at the
	// custody program.
	e.custody.RegisterCaller(ledger.RegistryAddress())
	return nil
}

func (e *Engine) setPaused(u *uow, in *wire.SetPaused) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	reg.Paused = in.Paused
	u.tx.Put(ledger.RegistryAddress(), reg)
	return nil
}

func (e *Engine) updateAdmin(u *uow, in *wire.UpdateAdmin) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	if in.NewAdmin.IsZero() {
		return fmt.Errorf("engine: update admin: %w", domain.ErrInvalidArgument)
	}
	reg.Admin = in.NewAdmin
	u.tx.Put(ledger.RegistryAddress(), reg)
	return nil
}

func (e *Engine) updateOracleAdmin(u *uow, in *wire.UpdateOracleAdmin) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	if in.NewOracleAdmin.IsZero() {
		return fmt.Errorf("engine: update oracle admin: %w", domain.ErrInvalidArgument)
	}
	reg.OracleAdmin = in.NewOracleAdmin
	u.tx.Put(ledger.RegistryAddress(), reg)
	return nil
}

func (e *Engine) updateOracleConfig(u *uow, in *wire.UpdateOracleConfig) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	if in.ChallengeWindowSecs <= 0 {
		return fmt.Errorf("engine: update oracle config: %w", domain.ErrInvalidArgument)
	}
	reg.ChallengeWindow = in.ChallengeWindowSecs
	reg.ProposerBond = in.ProposerBond
	u.tx.Put(ledger.RegistryAddress(), reg)
	return nil
}

func (e *Engine) addAuthorizedCaller(u *uow, in *wire.AddAuthorizedCaller) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	if in.Caller.IsZero() {
		return fmt.Errorf("engine: add authorized caller: %w", domain.ErrInvalidArgument)
	}
	reg.AuthorizedCallers[in.Caller] = true
	u.tx.Put(ledger.RegistryAddress(), reg)
	return nil
}

func (e *Engine) removeAuthorizedCaller(u *uow, in *wire.RemoveAuthorizedCaller) error {
	reg, err := getRegistry(u)
	if err != nil {
		return err
	}
	if err := requireAdmin(u, reg); err != nil {
		return err
	}
	delete(reg.AuthorizedCallers, in.Caller)
	u.tx.Put(ledger.RegistryAddress(), reg)
	return nil
}
