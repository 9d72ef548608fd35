package vault

import (
	"fmt"

	"github.com/veilvault/veilvault/internal/ledger"
)

var vaultSeed = []byte("vault")

func vaultSeeds(authority ledger.Address) [][]byte {
	return [][]byte{vaultSeed, authority[:]}
}

// DeriveVaultAddress is the pure (authority) -> (address, bump) mapping for a program.
func DeriveVaultAddress(programID, authority ledger.Address) (ledger.Address, uint8, error) {
	addr, bump, err := ledger.FindProgramAddress(programID, vaultSeeds(authority))
	if err != nil {
		return ledger.Address{}, 0, fmt.Errorf("derive vault address: %w", err)
	}
	return addr, bump, nil
}

// CreateVaultAddress rebuilds a vault address from a stored bump without searching.
func CreateVaultAddress(programID, authority ledger.Address, bump uint8) (ledger.Address, error) {
	return ledger.CreateProgramAddress(programID, vaultSeeds(authority), bump)
}

// Capability is the vault's right to act as a ledger authority, typically as the
// mint authority of its share token. It carries the stored bump, never a recomputed one.
type Capability struct {
	address ledger.Address
	signer  ledger.SeedSigner
}

// Capability builds the signing capability of a vault stored at addr.
// It fails if the stored authority and bump do not derive addr.
func (v Vault) Capability(programID, addr ledger.Address) (Capability, error) {
	derived, err := CreateVaultAddress(programID, v.Authority, v.Bump)
	if err != nil {
		return Capability{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if derived != addr {
		return Capability{}, fmt.Errorf("%w: vault %s does not derive from its authority", ErrUnauthorized, addr)
	}
	return Capability{
		address: addr,
		signer: ledger.SeedSigner{
			ProgramID: programID,
			Seeds:     vaultSeeds(v.Authority),
			Bump:      v.Bump,
		},
	}, nil
}

// Address is the vault address this capability speaks for.
func (c Capability) Address() ledger.Address { return c.address }

// Signer returns the ledger authority presented for vault-signed operations.
func (c Capability) Signer() ledger.Authority { return c.signer }
