package ledger

import "sync"

// BalanceKey identifies one token balance: the mint and the owner.
type BalanceKey struct {
	Mint  Address
	Owner Address
}

// Store is the in-memory account store. Records and token balances are only
// mutated through committed transactions; readers see committed state only.
type Store struct {
	mu       sync.RWMutex
	records  map[Address]Record
	balances map[BalanceKey]uint64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		records:  make(map[Address]Record),
		balances: make(map[BalanceKey]uint64),
	}
}

// Begin starts a transaction over the store. The transaction stages record
// writes and balance deltas; nothing is visible to readers until Commit.
func (s *Store) Begin() *Tx {
	return &Tx{
		store:  s,
		staged: make(map[Address]Record),
		deltas: make(map[BalanceKey]int64),
	}
}

// Get returns a copy of the committed record at addr.
func (s *Store) Get(addr Address) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[addr]
	if !ok {
		return nil, false
	}
	return rec.clone(), true
}

// Balance returns the committed token balance for (mint, owner).
func (s *Store) Balance(mint, owner Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[BalanceKey{Mint: mint, Owner: owner}]
}

// TotalSupply returns the committed sum of all balances for a mint. Escrow
// sub-accounts count toward supply; tokens never leave the ledger while
// escrowed.
func (s *Store) TotalSupply(mint Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for k, v := range s.balances {
		if k.Mint == mint {
			total += v
		}
	}
	return total
}

func (s *Store) commit(tx *Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, rec := range tx.staged {
		s.records[addr] = rec
	}
	for key, delta := range tx.deltas {
		next := int64(s.balances[key]) + delta
		if next <= 0 {
			delete(s.balances, key)
			continue
		}
		s.balances[key] = uint64(next)
	}
}
