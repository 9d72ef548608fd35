package vault

import (
	"context"

	"github.com/veilvault/veilvault/internal/ledger"
)

// Reader is the read side of vault storage. Missing records are reported with
// ErrVaultNotFound and ErrProofNotFound.
type Reader interface {
	GetVault(ctx context.Context, addr ledger.Address) (Vault, error)
	GetProof(ctx context.Context, addr ledger.Address) (ProofRecord, error)
}

// Tx is one unit of work over vault storage. Writes become visible only when
// the enclosing WithTx returns nil.
type Tx interface {
	Reader
	// CreateVault fails with ErrAlreadyExists if addr is occupied.
	CreateVault(ctx context.Context, addr ledger.Address, v Vault) error
	// UpdateVault fails with ErrVaultNotFound if addr is empty.
	UpdateVault(ctx context.Context, addr ledger.Address, v Vault) error
	PutProof(ctx context.Context, addr ledger.Address, p ProofRecord) error
	// ApplyLedger writes a ledger write set in the same transaction. Each change
	// applies only if the stored value still equals Change.Old; otherwise the
	// whole transaction fails.
	ApplyLedger(ctx context.Context, changes ledger.Changes) error
}

// Store persists vaults, the oracle proof records they read and the ledger
// balances their operations move.
type Store interface {
	Reader
	PutProof(ctx context.Context, addr ledger.Address, p ProofRecord) error
	// WithTx runs fn in a transaction, committing if fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
