// Package custody models the external collateral custody program. The
// engine sees it as an opaque transfer capability: balances per address,
// transfers staged inside the engine's unit of work, and a caller registry
// gating who may move funds.
package custody

import (
	"fmt"
	"sync"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
)

// Service holds collateral balances per address. It is an in-process stand-in
// for the custody program the deployed engine calls into; the interface is
// the contract, the storage here is incidental.
type Service struct {
	mu         sync.RWMutex
	balances   map[ledger.Address]uint64
	authorized map[ledger.Address]bool
}

// New creates an empty custody Service.
func New() *Service {
	return &Service{
		balances:   make(map[ledger.Address]uint64),
		authorized: make(map[ledger.Address]bool),
	}
}

// RegisterCaller authorizes an engine identity to move funds. The engine's
// registry address is registered once at initialization.
func (s *Service) RegisterCaller(addr ledger.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized[addr] = true
}

// Deposit credits collateral to an address. Deposits arrive from outside the
// engine (bridges, faucets, tests) and need no caller authorization.
func (s *Service) Deposit(addr ledger.Address, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] += amount
}

// Balance returns the committed collateral balance of an address.
func (s *Service) Balance(addr ledger.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[addr]
}

// Begin starts a transfer transaction on behalf of caller. It fails if the
// caller was never registered.
func (s *Service) Begin(caller ledger.Address) (*Tx, error) {
	s.mu.RLock()
	ok := s.authorized[caller]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("custody: caller %s: %w", caller.Hex(), domain.ErrUnauthorized)
	}
	return &Tx{svc: s, pending: make(map[ledger.Address]int64)}, nil
}

// Tx stages collateral transfers. Staged transfers observe each other, so a
// multi-leg instruction may move the same funds twice within one unit of
// work. Nothing is applied until Commit.
type Tx struct {
	svc       *Service
	pending   map[ledger.Address]int64
	committed bool
}

// Balance returns the balance of addr as seen by this transaction.
func (t *Tx) Balance(addr ledger.Address) uint64 {
	base := int64(t.svc.Balance(addr))
	return uint64(base + t.pending[addr])
}

// Transfer stages a collateral move from one address to another, failing on
// insufficient available balance.
func (t *Tx) Transfer(from, to ledger.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if t.Balance(from) < amount {
		return fmt.Errorf("custody: transfer %d from %s: %w", amount, from.Hex(), domain.ErrInsufficientBalance)
	}
	t.pending[from] -= int64(amount)
	t.pending[to] += int64(amount)
	return nil
}

// Commit applies every staged transfer atomically. Commit is a no-op on the
// second and later calls.
func (t *Tx) Commit() {
	if t.committed {
		return
	}
	t.committed = true

	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	for addr, delta := range t.pending {
		next := int64(t.svc.balances[addr]) + delta
		if next <= 0 {
			delete(t.svc.balances, addr)
			continue
		}
		t.svc.balances[addr] = uint64(next)
	}
}
