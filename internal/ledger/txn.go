// txn.go - Unit of work over the ledger.
//
// A Txn validates each operation against the ledger as seen through its own staged
// writes, but changes nothing until Commit. Commit re-checks that every value the Txn
// read is still current and then applies all staged values at once.
//
// When the balances live in a database, the store applies Changes as compare-and-set
// updates inside its own transaction and the Txn is then finished with Apply.

package ledger

import (
	"bytes"
	"fmt"
	"math/bits"
	"sort"
)

// Change is one balance or supply write.
type Change struct {
	ID  Address
	Old uint64
	New uint64
}

// Changes is the write set of a Txn.
type Changes struct {
	Accounts []Change
	Supplies []Change
}

// Empty reports whether the Txn staged nothing.
func (c Changes) Empty() bool { return len(c.Accounts) == 0 && len(c.Supplies) == 0 }

type txnState int

const (
	txnOpen txnState = iota
	txnCommitted
	txnClosed
)

// Txn is not safe for concurrent use; the Ledger it wraps is.
type Txn struct {
	l     *Ledger
	state txnState

	// Values observed at first touch, and the values to write on commit.
	readAmounts  map[Address]uint64
	amounts      map[Address]uint64
	readSupplies map[Address]uint64
	supplies     map[Address]uint64
}

// Begin opens a unit of work.
func (l *Ledger) Begin() *Txn {
	return &Txn{
		l:            l,
		readAmounts:  make(map[Address]uint64),
		amounts:      make(map[Address]uint64),
		readSupplies: make(map[Address]uint64),
		supplies:     make(map[Address]uint64),
	}
}

// Transfer stages a move of amount from one account to another of the same mint.
// auth must be the owner of the source account.
func (t *Txn) Transfer(from, to Address, amount uint64, auth Authority) error {
	if t.state != txnOpen {
		return ErrTxnClosed
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()

	src, err := t.l.account(from)
	if err != nil {
		return err
	}
	dst, err := t.l.account(to)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("%w: %s -> %s", ErrMintMismatch, from, to)
	}
	if err := authorize(auth, src.Owner); err != nil {
		return err
	}

	srcAmount := t.amount(from, src)
	if srcAmount < amount {
		return fmt.Errorf("%w: account %s holds %d, needs %d", ErrInsufficientFunds, from, srcAmount, amount)
	}
	if from == to {
		return nil
	}
	dstAmount, carry := bits.Add64(t.amount(to, dst), amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: account %s", ErrOverflow, to)
	}
	t.amounts[from] = srcAmount - amount
	t.amounts[to] = dstAmount
	return nil
}

// MintTo stages creation of amount tokens into account to.
// auth must be the mint authority.
func (t *Txn) MintTo(mint, to Address, amount uint64, auth Authority) error {
	if t.state != txnOpen {
		return ErrTxnClosed
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()

	m, err := t.l.mint(mint)
	if err != nil {
		return err
	}
	dst, err := t.l.account(to)
	if err != nil {
		return err
	}
	if dst.Mint != mint {
		return fmt.Errorf("%w: %s is not a %s account", ErrMintMismatch, to, mint)
	}
	if err := authorize(auth, m.Authority); err != nil {
		return err
	}

	supply, carry := bits.Add64(t.supply(mint, m), amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: mint %s", ErrOverflow, mint)
	}
	balance, carry := bits.Add64(t.amount(to, dst), amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: account %s", ErrOverflow, to)
	}
	t.supplies[mint] = supply
	t.amounts[to] = balance
	return nil
}

// BurnFrom stages destruction of amount tokens held by account from.
// auth must be the account owner.
func (t *Txn) BurnFrom(mint, from Address, amount uint64, auth Authority) error {
	if t.state != txnOpen {
		return ErrTxnClosed
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()

	m, err := t.l.mint(mint)
	if err != nil {
		return err
	}
	src, err := t.l.account(from)
	if err != nil {
		return err
	}
	if src.Mint != mint {
		return fmt.Errorf("%w: %s is not a %s account", ErrMintMismatch, from, mint)
	}
	if err := authorize(auth, src.Owner); err != nil {
		return err
	}

	balance := t.amount(from, src)
	if balance < amount {
		return fmt.Errorf("%w: account %s holds %d, burn %d", ErrInsufficientFunds, from, balance, amount)
	}
	supply := t.supply(mint, m)
	if supply < amount {
		return fmt.Errorf("%w: mint %s supply %d, burn %d", ErrInsufficientFunds, mint, supply, amount)
	}
	t.amounts[from] = balance - amount
	t.supplies[mint] = supply - amount
	return nil
}

// Commit applies every staged write, or none of them.
func (t *Txn) Commit() error {
	if t.state != txnOpen {
		return ErrTxnClosed
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()

	if err := t.checkUnchanged(t.readAmounts, t.readSupplies); err != nil {
		t.state = txnClosed
		return err
	}
	for id, amount := range t.amounts {
		t.l.Accounts[id].Amount = amount
	}
	for id, supply := range t.supplies {
		t.l.Mints[id].Supply = supply
	}
	t.state = txnCommitted
	return nil
}

// Rollback discards staged writes. It is a no-op on a closed Txn.
func (t *Txn) Rollback() {
	if t.state == txnOpen {
		t.state = txnClosed
	}
}

// Changes lists the staged writes in address order, each with the value it
// replaces. A durable store applies them as compare-and-set updates.
func (t *Txn) Changes() Changes {
	return Changes{
		Accounts: changeList(t.readAmounts, t.amounts),
		Supplies: changeList(t.readSupplies, t.supplies),
	}
}

// Apply installs the staged writes without re-checking the reads. Use it only
// once a store holding the authoritative balances has accepted Changes.
func (t *Txn) Apply() error {
	if t.state != txnOpen {
		return ErrTxnClosed
	}
	t.l.mu.Lock()
	defer t.l.mu.Unlock()

	for id, amount := range t.amounts {
		if acct, ok := t.l.Accounts[id]; ok {
			acct.Amount = amount
		}
	}
	for id, supply := range t.supplies {
		if m, ok := t.l.Mints[id]; ok {
			m.Supply = supply
		}
	}
	t.state = txnCommitted
	return nil
}

// checkUnchanged must be called with the ledger lock held.
func (t *Txn) checkUnchanged(amounts, supplies map[Address]uint64) error {
	for id, want := range amounts {
		acct, ok := t.l.Accounts[id]
		if !ok || acct.Amount != want {
			return fmt.Errorf("%w: account %s", ErrConflict, id)
		}
	}
	for id, want := range supplies {
		m, ok := t.l.Mints[id]
		if !ok || m.Supply != want {
			return fmt.Errorf("%w: mint %s", ErrConflict, id)
		}
	}
	return nil
}

func (t *Txn) amount(id Address, acct *Account) uint64 {
	if v, ok := t.amounts[id]; ok {
		return v
	}
	if _, ok := t.readAmounts[id]; !ok {
		t.readAmounts[id] = acct.Amount
	}
	return acct.Amount
}

func (t *Txn) supply(id Address, m *Mint) uint64 {
	if v, ok := t.supplies[id]; ok {
		return v
	}
	if _, ok := t.readSupplies[id]; !ok {
		t.readSupplies[id] = m.Supply
	}
	return m.Supply
}

func changeList(reads, writes map[Address]uint64) []Change {
	out := make([]Change, 0, len(writes))
	for id, v := range writes {
		out = append(out, Change{ID: id, Old: reads[id], New: v})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out
}
