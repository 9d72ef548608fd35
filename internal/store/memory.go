package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/veilvault/veilvault/internal/ledger"
	"github.com/veilvault/veilvault/internal/vault"
)

// ErrConflict is returned by WithTx when a record the transaction read was
// changed by another transaction before commit.
var ErrConflict = errors.New("store: concurrent modification")

type memRecord struct {
	data    []byte
	version uint64
}

// Memory is an in-process Store. Transactions are optimistic: they stage writes
// and validate the versions they read at commit. Ledger balances are tracked
// from the first write that touches them.
type Memory struct {
	mu       sync.RWMutex
	vaults   map[ledger.Address]memRecord
	proofs   map[ledger.Address]memRecord
	balances map[ledger.Address]uint64
	supplies map[ledger.Address]uint64
}

var _ vault.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		vaults:   make(map[ledger.Address]memRecord),
		proofs:   make(map[ledger.Address]memRecord),
		balances: make(map[ledger.Address]uint64),
		supplies: make(map[ledger.Address]uint64),
	}
}

func (m *Memory) GetVault(_ context.Context, addr ledger.Address) (vault.Vault, error) {
	m.mu.RLock()
	rec, ok := m.vaults[addr]
	m.mu.RUnlock()
	if !ok {
		return vault.Vault{}, fmt.Errorf("%w: %s", vault.ErrVaultNotFound, addr)
	}
	var v vault.Vault
	if err := v.UnmarshalBinary(rec.data); err != nil {
		return vault.Vault{}, err
	}
	return v, nil
}

func (m *Memory) GetProof(_ context.Context, addr ledger.Address) (vault.ProofRecord, error) {
	m.mu.RLock()
	rec, ok := m.proofs[addr]
	m.mu.RUnlock()
	if !ok {
		return vault.ProofRecord{}, fmt.Errorf("%w: %s", vault.ErrProofNotFound, addr)
	}
	var p vault.ProofRecord
	if err := p.UnmarshalBinary(rec.data); err != nil {
		return vault.ProofRecord{}, err
	}
	return p, nil
}

func (m *Memory) PutProof(ctx context.Context, addr ledger.Address, p vault.ProofRecord) error {
	return m.WithTx(ctx, func(tx vault.Tx) error {
		return tx.PutProof(ctx, addr, p)
	})
}

// WithTx runs fn against a staged view of the store.
func (m *Memory) WithTx(ctx context.Context, fn func(tx vault.Tx) error) error {
	tx := &memTx{
		m:          m,
		vaultReads: make(map[ledger.Address]uint64),
		vaults:     make(map[ledger.Address][]byte),
		proofReads: make(map[ledger.Address]uint64),
		proofs:     make(map[ledger.Address][]byte),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (m *Memory) Close() error { return nil }

type memTx struct {
	m *Memory

	// Version seen at first read; zero means the record was absent.
	vaultReads map[ledger.Address]uint64
	vaults     map[ledger.Address][]byte
	proofReads map[ledger.Address]uint64
	proofs     map[ledger.Address][]byte
	ledger     []ledger.Changes
}

func (t *memTx) lookup(addr ledger.Address, staged map[ledger.Address][]byte, reads map[ledger.Address]uint64, committed map[ledger.Address]memRecord) ([]byte, bool) {
	if data, ok := staged[addr]; ok {
		return data, true
	}
	t.m.mu.RLock()
	rec, ok := committed[addr]
	t.m.mu.RUnlock()
	if _, seen := reads[addr]; !seen {
		reads[addr] = rec.version
	}
	return rec.data, ok
}

func (t *memTx) GetVault(_ context.Context, addr ledger.Address) (vault.Vault, error) {
	data, ok := t.lookup(addr, t.vaults, t.vaultReads, t.m.vaults)
	if !ok {
		return vault.Vault{}, fmt.Errorf("%w: %s", vault.ErrVaultNotFound, addr)
	}
	var v vault.Vault
	if err := v.UnmarshalBinary(data); err != nil {
		return vault.Vault{}, err
	}
	return v, nil
}

func (t *memTx) GetProof(_ context.Context, addr ledger.Address) (vault.ProofRecord, error) {
	data, ok := t.lookup(addr, t.proofs, t.proofReads, t.m.proofs)
	if !ok {
		return vault.ProofRecord{}, fmt.Errorf("%w: %s", vault.ErrProofNotFound, addr)
	}
	var p vault.ProofRecord
	if err := p.UnmarshalBinary(data); err != nil {
		return vault.ProofRecord{}, err
	}
	return p, nil
}

func (t *memTx) CreateVault(_ context.Context, addr ledger.Address, v vault.Vault) error {
	if _, ok := t.lookup(addr, t.vaults, t.vaultReads, t.m.vaults); ok {
		return fmt.Errorf("%w: %s", vault.ErrAlreadyExists, addr)
	}
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	t.vaults[addr] = data
	return nil
}

func (t *memTx) UpdateVault(_ context.Context, addr ledger.Address, v vault.Vault) error {
	if _, ok := t.lookup(addr, t.vaults, t.vaultReads, t.m.vaults); !ok {
		return fmt.Errorf("%w: %s", vault.ErrVaultNotFound, addr)
	}
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	t.vaults[addr] = data
	return nil
}

func (t *memTx) PutProof(_ context.Context, addr ledger.Address, p vault.ProofRecord) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	t.lookup(addr, t.proofs, t.proofReads, t.m.proofs)
	t.proofs[addr] = data
	return nil
}

func (t *memTx) ApplyLedger(_ context.Context, changes ledger.Changes) error {
	t.ledger = append(t.ledger, changes)
	return nil
}

func (t *memTx) commit() error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	balances := make(map[ledger.Address]uint64)
	supplies := make(map[ledger.Address]uint64)
	for _, c := range t.ledger {
		if err := stageLedger(t.m.balances, balances, c.Accounts, "account"); err != nil {
			return err
		}
		if err := stageLedger(t.m.supplies, supplies, c.Supplies, "mint"); err != nil {
			return err
		}
	}

	for addr, seen := range t.vaultReads {
		if t.m.vaults[addr].version != seen {
			return fmt.Errorf("%w: vault %s", ErrConflict, addr)
		}
	}
	for addr, seen := range t.proofReads {
		if t.m.proofs[addr].version != seen {
			return fmt.Errorf("%w: proof %s", ErrConflict, addr)
		}
	}
	for addr, data := range t.vaults {
		t.m.vaults[addr] = memRecord{data: data, version: t.m.vaults[addr].version + 1}
	}
	for addr, data := range t.proofs {
		t.m.proofs[addr] = memRecord{data: data, version: t.m.proofs[addr].version + 1}
	}
	for id, v := range balances {
		t.m.balances[id] = v
	}
	for id, v := range supplies {
		t.m.supplies[id] = v
	}
	return nil
}

// stageLedger checks each change against the latest staged or committed value
// and stages its new value.
func stageLedger(committed, staged map[ledger.Address]uint64, changes []ledger.Change, kind string) error {
	for _, c := range changes {
		cur, ok := staged[c.ID]
		if !ok {
			cur, ok = committed[c.ID]
		}
		if ok && cur != c.Old {
			return fmt.Errorf("%w: %s %s holds %d, expected %d", ErrConflict, kind, c.ID, cur, c.Old)
		}
		staged[c.ID] = c.New
	}
	return nil
}
