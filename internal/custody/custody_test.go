package custody

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpredict/settler/internal/domain"
	"github.com/openpredict/settler/internal/ledger"
)

func TestBeginRequiresRegisteredCaller(t *testing.T) {
	svc := New()
	caller := ledger.Address{0x01}

	_, err := svc.Begin(caller)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	svc.RegisterCaller(caller)
	_, err = svc.Begin(caller)
	require.NoError(t, err)
}

func TestTransferCommit(t *testing.T) {
	svc := New()
	caller := ledger.Address{0x01}
	a := ledger.Address{0x0A}
	b := ledger.Address{0x0B}
	svc.RegisterCaller(caller)
	svc.Deposit(a, 100)

	tx, err := svc.Begin(caller)
	require.NoError(t, err)
	require.NoError(t, tx.Transfer(a, b, 60))

	// Staged only until Commit.
	assert.Equal(t, uint64(100), svc.Balance(a))
	assert.Equal(t, uint64(40), tx.Balance(a))
	assert.Equal(t, uint64(60), tx.Balance(b))

	tx.Commit()
	assert.Equal(t, uint64(40), svc.Balance(a))
	assert.Equal(t, uint64(60), svc.Balance(b))
}

func TestTransferInsufficient(t *testing.T) {
	svc := New()
	caller := ledger.Address{0x01}
	a := ledger.Address{0x0A}
	b := ledger.Address{0x0B}
	svc.RegisterCaller(caller)
	svc.Deposit(a, 50)

	tx, _ := svc.Begin(caller)
	require.ErrorIs(t, tx.Transfer(a, b, 51), domain.ErrInsufficientBalance)

	// Zero-amount transfers are no-ops, not errors.
	require.NoError(t, tx.Transfer(a, b, 0))
}

func TestStagedTransfersObserveEachOther(t *testing.T) {
	svc := New()
	caller := ledger.Address{0x01}
	a := ledger.Address{0x0A}
	b := ledger.Address{0x0B}
	c := ledger.Address{0x0C}
	svc.RegisterCaller(caller)
	svc.Deposit(a, 100)

	// a -> b -> c inside one transaction: b never held committed funds.
	tx, _ := svc.Begin(caller)
	require.NoError(t, tx.Transfer(a, b, 100))
	require.NoError(t, tx.Transfer(b, c, 100))
	tx.Commit()

	assert.Zero(t, svc.Balance(a))
	assert.Zero(t, svc.Balance(b))
	assert.Equal(t, uint64(100), svc.Balance(c))
}

func TestDiscardedTxHasNoEffect(t *testing.T) {
	svc := New()
	caller := ledger.Address{0x01}
	a := ledger.Address{0x0A}
	svc.RegisterCaller(caller)
	svc.Deposit(a, 100)

	tx, _ := svc.Begin(caller)
	require.NoError(t, tx.Transfer(a, ledger.Address{0x0B}, 100))
	// Dropped without Commit.

	assert.Equal(t, uint64(100), svc.Balance(a))
}

func TestCommitIdempotent(t *testing.T) {
	svc := New()
	caller := ledger.Address{0x01}
	a := ledger.Address{0x0A}
	b := ledger.Address{0x0B}
	svc.RegisterCaller(caller)
	svc.Deposit(a, 100)

	tx, _ := svc.Begin(caller)
	require.NoError(t, tx.Transfer(a, b, 10))
	tx.Commit()
	tx.Commit()

	assert.Equal(t, uint64(90), svc.Balance(a))
	assert.Equal(t, uint64(10), svc.Balance(b))
}
