package ledger

import (
	"github.com/openpredict/settler/internal/domain"
)

// Tx is one unit of work over the store. All reads observe committed state
// plus this transaction's own staged writes. A Tx that is never committed
// has no effect, which is how a failed instruction leaves no partial state.
type Tx struct {
	store     *Store
	staged    map[Address]Record
	deltas    map[BalanceKey]int64
	committed bool
}

// Get returns the record at addr as seen by this transaction. The returned
// record is staged: mutating it and calling Put makes the change part of
// the transaction.
func (tx *Tx) Get(addr Address) (Record, bool) {
	if rec, ok := tx.staged[addr]; ok {
		return rec, true
	}
	rec, ok := tx.store.Get(addr)
	if !ok {
		return nil, false
	}
	return rec, true
}

// Put stages a record write at addr.
func (tx *Tx) Put(addr Address, rec Record) {
	tx.staged[addr] = rec
}

// Balance returns the token balance for (mint, owner) as seen by this
// transaction.
func (tx *Tx) Balance(mint, owner Address) uint64 {
	key := BalanceKey{Mint: mint, Owner: owner}
	base := int64(tx.store.Balance(mint, owner))
	return uint64(base + tx.deltas[key])
}

// Credit stages a token credit.
func (tx *Tx) Credit(mint, owner Address, amount uint64) {
	key := BalanceKey{Mint: mint, Owner: owner}
	tx.deltas[key] += int64(amount)
}

// Debit stages a token debit, failing if the balance seen by this
// transaction is insufficient.
func (tx *Tx) Debit(mint, owner Address, amount uint64) error {
	if tx.Balance(mint, owner) < amount {
		return domain.ErrInsufficientBalance
	}
	key := BalanceKey{Mint: mint, Owner: owner}
	tx.deltas[key] -= int64(amount)
	return nil
}

// Commit applies every staged write atomically. Commit is a no-op on the
// second and later calls.
func (tx *Tx) Commit() {
	if tx.committed {
		return
	}
	tx.committed = true
	tx.store.commit(tx)
}
