// ledger.go - Fungible token ledger backing vault collateral and vault shares.
//
// The Ledger records mints (supply + mint authority) and token accounts (mint, owner,
// amount). Every balance change goes through a Txn so that multi-step operations land
// atomically. The Ledger itself is an in-memory view: the database store keeps the
// authoritative rows and SaveToFile exports a JSON snapshot.

package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Mint is a fungible token definition.
type Mint struct {
	Authority Address `json:"authority"` // Only key allowed to mint new supply
	Decimals  uint8   `json:"decimals"`
	Supply    uint64  `json:"supply"`
}

// Account holds a balance of one mint for one owner.
type Account struct {
	Mint   Address `json:"mint"`
	Owner  Address `json:"owner"` // Only key allowed to move or burn the balance
	Amount uint64  `json:"amount"`
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	Mints    map[Address]*Mint    `json:"mints"`
	Accounts map[Address]*Account `json:"accounts"`
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		Mints:    make(map[Address]*Mint),
		Accounts: make(map[Address]*Account),
	}
}

// CreateMint registers a new mint with zero supply and returns its address.
func (l *Ledger) CreateMint(authority Address, decimals uint8) (Address, error) {
	if authority.IsZero() {
		return Address{}, ErrInvalidAuthority
	}
	id, err := NewAddress()
	if err != nil {
		return Address{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Mints[id] = &Mint{Authority: authority, Decimals: decimals}
	return id, nil
}

// CreateAccount opens an empty token account of mint for owner.
func (l *Ledger) CreateAccount(mint, owner Address) (Address, error) {
	id, err := NewAddress()
	if err != nil {
		return Address{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.Mints[mint]; !ok {
		return Address{}, fmt.Errorf("%w: %s", ErrUnknownMint, mint)
	}
	l.Accounts[id] = &Account{Mint: mint, Owner: owner}
	return id, nil
}

// Account returns a copy of a token account.
func (l *Ledger) Account(id Address) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.account(id)
	if err != nil {
		return Account{}, err
	}
	return *acct, nil
}

// Mint returns a copy of a mint.
func (l *Ledger) Mint(id Address) (Mint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, err := l.mint(id)
	if err != nil {
		return Mint{}, err
	}
	return *m, nil
}

// Balance returns the amount held by a token account.
func (l *Ledger) Balance(id Address) (uint64, error) {
	acct, err := l.Account(id)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// Supply returns the outstanding supply of a mint.
func (l *Ledger) Supply(id Address) (uint64, error) {
	m, err := l.Mint(id)
	if err != nil {
		return 0, err
	}
	return m.Supply, nil
}

// Transfer moves amount between two accounts of the same mint.
func (l *Ledger) Transfer(from, to Address, amount uint64, auth Authority) error {
	return l.single(func(t *Txn) error { return t.Transfer(from, to, amount, auth) })
}

// MintTo creates amount new tokens in account to.
func (l *Ledger) MintTo(mint, to Address, amount uint64, auth Authority) error {
	return l.single(func(t *Txn) error { return t.MintTo(mint, to, amount, auth) })
}

// BurnFrom destroys amount tokens held by account from.
func (l *Ledger) BurnFrom(mint, from Address, amount uint64, auth Authority) error {
	return l.single(func(t *Txn) error { return t.BurnFrom(mint, from, amount, auth) })
}

func (l *Ledger) single(op func(*Txn) error) error {
	t := l.Begin()
	if err := op(t); err != nil {
		t.Rollback()
		return err
	}
	return t.Commit()
}

func (l *Ledger) account(id Address) (*Account, error) {
	acct, ok := l.Accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
	}
	return acct, nil
}

func (l *Ledger) mint(id Address) (*Mint, error) {
	m, ok := l.Mints[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMint, id)
	}
	return m, nil
}

// SaveToFile writes the ledger snapshot as indented JSON.
// Overwrites the file if it exists.
func (l *Ledger) SaveToFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}
