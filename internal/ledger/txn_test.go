package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxnNothingVisibleBeforeCommit(t *testing.T) {
	f := newFixture(t)

	txn := f.l.Begin()
	require.NoError(t, txn.Transfer(f.ownerAcct, f.otherAcct, 100, Signer(f.owner)))
	require.NoError(t, txn.MintTo(f.mint, f.otherAcct, 50, Signer(f.owner)))

	bal, _ := f.l.Balance(f.otherAcct)
	assert.Zero(t, bal, "staged writes must not leak")

	require.NoError(t, txn.Commit())
	bal, _ = f.l.Balance(f.otherAcct)
	assert.Equal(t, uint64(150), bal)
	supply, _ := f.l.Supply(f.mint)
	assert.Equal(t, uint64(1050), supply)
}

func TestTxnSeesOwnStagedWrites(t *testing.T) {
	f := newFixture(t)

	txn := f.l.Begin()
	require.NoError(t, txn.Transfer(f.ownerAcct, f.otherAcct, 700, Signer(f.owner)))
	err := txn.Transfer(f.ownerAcct, f.otherAcct, 301, Signer(f.owner))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.NoError(t, txn.Transfer(f.otherAcct, f.ownerAcct, 700, Signer(f.other)))
	require.NoError(t, txn.Commit())

	bal, _ := f.l.Balance(f.ownerAcct)
	assert.Equal(t, uint64(1000), bal)
}

func TestTxnRollbackDiscards(t *testing.T) {
	f := newFixture(t)

	txn := f.l.Begin()
	require.NoError(t, txn.BurnFrom(f.mint, f.ownerAcct, 1000, Signer(f.owner)))
	txn.Rollback()

	require.ErrorIs(t, txn.Commit(), ErrTxnClosed)
	supply, _ := f.l.Supply(f.mint)
	assert.Equal(t, uint64(1000), supply)
}

func TestTxnCommitConflict(t *testing.T) {
	f := newFixture(t)

	txn := f.l.Begin()
	require.NoError(t, txn.Transfer(f.ownerAcct, f.otherAcct, 600, Signer(f.owner)))

	// A concurrent writer spends from the same account first.
	require.NoError(t, f.l.Transfer(f.ownerAcct, f.otherAcct, 600, Signer(f.owner)))

	require.ErrorIs(t, txn.Commit(), ErrConflict)
	bal, _ := f.l.Balance(f.ownerAcct)
	assert.Equal(t, uint64(400), bal)
}

func TestTxnChangesCarryReadValues(t *testing.T) {
	f := newFixture(t)

	txn := f.l.Begin()
	require.NoError(t, txn.Transfer(f.ownerAcct, f.otherAcct, 10, Signer(f.owner)))
	require.NoError(t, txn.MintTo(f.mint, f.otherAcct, 5, Signer(f.owner)))

	changes := txn.Changes()
	assert.ElementsMatch(t, []Change{
		{ID: f.ownerAcct, Old: 1000, New: 990},
		{ID: f.otherAcct, Old: 0, New: 15},
	}, changes.Accounts)
	assert.Equal(t, []Change{{ID: f.mint, Old: 1000, New: 1005}}, changes.Supplies)
	assert.False(t, changes.Empty())
	assert.True(t, f.l.Begin().Changes().Empty())
}

func TestTxnApplySkipsReadCheck(t *testing.T) {
	f := newFixture(t)

	txn := f.l.Begin()
	require.NoError(t, txn.Transfer(f.ownerAcct, f.otherAcct, 10, Signer(f.owner)))
	// The cache moves under the Txn; Apply still installs the staged values.
	require.NoError(t, f.l.MintTo(f.mint, f.ownerAcct, 1, Signer(f.owner)))

	require.NoError(t, txn.Apply())
	bal, _ := f.l.Balance(f.ownerAcct)
	assert.Equal(t, uint64(990), bal)
	require.ErrorIs(t, txn.Apply(), ErrTxnClosed)
	require.ErrorIs(t, txn.Commit(), ErrTxnClosed)
}
