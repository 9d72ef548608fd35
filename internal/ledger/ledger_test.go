package ledger

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	l         *Ledger
	owner     Address
	other     Address
	mint      Address
	ownerAcct Address
	otherAcct Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{l: New()}
	var err error
	f.owner, err = NewAddress()
	require.NoError(t, err)
	f.other, err = NewAddress()
	require.NoError(t, err)
	f.mint, err = f.l.CreateMint(f.owner, 9)
	require.NoError(t, err)
	f.ownerAcct, err = f.l.CreateAccount(f.mint, f.owner)
	require.NoError(t, err)
	f.otherAcct, err = f.l.CreateAccount(f.mint, f.other)
	require.NoError(t, err)
	require.NoError(t, f.l.MintTo(f.mint, f.ownerAcct, 1000, Signer(f.owner)))
	return f
}

func TestLedgerTransfer(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.l.Transfer(f.ownerAcct, f.otherAcct, 400, Signer(f.owner)))

	bal, err := f.l.Balance(f.ownerAcct)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), bal)
	bal, err = f.l.Balance(f.otherAcct)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), bal)
}

func TestLedgerTransferRequiresOwner(t *testing.T) {
	f := newFixture(t)

	err := f.l.Transfer(f.ownerAcct, f.otherAcct, 1, Signer(f.other))
	require.ErrorIs(t, err, ErrUnauthorized)

	err = f.l.Transfer(f.ownerAcct, f.otherAcct, 1, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLedgerTransferInsufficientFunds(t *testing.T) {
	f := newFixture(t)

	err := f.l.Transfer(f.ownerAcct, f.otherAcct, 1001, Signer(f.owner))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	bal, _ := f.l.Balance(f.ownerAcct)
	assert.Equal(t, uint64(1000), bal)
}

func TestLedgerTransferAcrossMints(t *testing.T) {
	f := newFixture(t)
	otherMint, err := f.l.CreateMint(f.owner, 0)
	require.NoError(t, err)
	foreign, err := f.l.CreateAccount(otherMint, f.owner)
	require.NoError(t, err)

	err = f.l.Transfer(f.ownerAcct, foreign, 1, Signer(f.owner))
	require.ErrorIs(t, err, ErrMintMismatch)
}

func TestLedgerMintRequiresMintAuthority(t *testing.T) {
	f := newFixture(t)

	err := f.l.MintTo(f.mint, f.otherAcct, 5, Signer(f.other))
	require.ErrorIs(t, err, ErrUnauthorized)

	supply, err := f.l.Supply(f.mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), supply)
}

func TestLedgerMintOverflow(t *testing.T) {
	f := newFixture(t)

	err := f.l.MintTo(f.mint, f.ownerAcct, math.MaxUint64, Signer(f.owner))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestLedgerBurnIsHolderAuthorized(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.l.BurnFrom(f.mint, f.ownerAcct, 10, Signer(f.other)), ErrUnauthorized)
	require.NoError(t, f.l.BurnFrom(f.mint, f.ownerAcct, 10, Signer(f.owner)))

	supply, _ := f.l.Supply(f.mint)
	assert.Equal(t, uint64(990), supply)
	require.ErrorIs(t, f.l.BurnFrom(f.mint, f.ownerAcct, 991, Signer(f.owner)), ErrInsufficientFunds)
}

func TestCreateMintRejectsZeroAuthority(t *testing.T) {
	_, err := New().CreateMint(Address{}, 0)
	require.ErrorIs(t, err, ErrInvalidAuthority)
}

func TestCreateAccountUnknownMint(t *testing.T) {
	_, err := New().CreateAccount(Address{1}, Address{2})
	require.ErrorIs(t, err, ErrUnknownMint)
}

func TestLedgerExportSnapshot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.l.Transfer(f.ownerAcct, f.otherAcct, 250, Signer(f.owner)))

	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, f.l.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	loaded := New()
	require.NoError(t, json.Unmarshal(data, loaded))
	acct, err := loaded.Account(f.otherAcct)
	require.NoError(t, err)
	assert.Equal(t, Account{Mint: f.mint, Owner: f.other, Amount: 250}, acct)
	m, err := loaded.Mint(f.mint)
	require.NoError(t, err)
	assert.Equal(t, f.owner, m.Authority)
	assert.Equal(t, uint64(1000), m.Supply)
}
