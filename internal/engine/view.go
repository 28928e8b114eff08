package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
)

// Registry returns a read-model snapshot of the registry record. It fails
// with domain.ErrNotFound until Initialize has been applied.
func (e *Engine) Registry() (domain.Registry, error) {
	rec, ok := e.store.Get(ledger.RegistryAddress())
	if !ok {
		return domain.Registry{}, fmt.Errorf("engine: registry: %w", domain.ErrNotFound)
	}
	reg := rec.(*ledger.Registry)

	callers := make([]string, 0, len(reg.AuthorizedCallers))
	for addr := range reg.AuthorizedCallers {
		callers = append(callers, addr.Hex())
	}
	sort.Strings(callers)

	return domain.Registry{
		Admin:             reg.Admin.Hex(),
		OracleAdmin:       reg.OracleAdmin.Hex(),
		CollateralAsset:   reg.CollateralAsset.Hex(),
		FeePool:           ledger.FeePoolAddress().Hex(),
		NextMarketID:      reg.NextMarketID,
		TotalMarkets:      reg.TotalMarkets,
		ActiveMarkets:     reg.ActiveMarkets,
		CumulativeVolume:  reg.CumulativeVolume,
		TotalMintedSets:   reg.TotalMintedSets,
		ChallengeWindow:   time.Duration(reg.ChallengeWindow) * time.Second,
		ProposerBond:      reg.ProposerBond,
		Paused:            reg.Paused,
		DefaultFeeBps:     reg.DefaultFeeBps,
		AuthorizedCallers: callers,
	}, nil
}

// FeePoolBalance returns the collateral currently accumulated as protocol
// revenue.
func (e *Engine) FeePoolBalance() uint64 {
	return e.custody.Balance(ledger.FeePoolAddress())
}
