// account.go - Vault and proof record data model and their persisted byte layouts.
//
// Layouts are fixed-size, little-endian, prefixed by an 8-byte discriminator:
//
//	Vault:       disc(8) authority(32) total_shares(8) rwa_hash(32) bump(1)  = 81 bytes
//	OracleProof: disc(8) hash(32) timestamp(8)                               = 48 bytes

package vault

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/veilvault/veilvault/internal/ledger"
)

const (
	discriminatorSize = 8
	VaultSize         = discriminatorSize + 32 + 8 + 32 + 1
	ProofRecordSize   = discriminatorSize + 32 + 8
)

var (
	vaultDiscriminator = discriminator("Vault")
	proofDiscriminator = discriminator("OracleProof")
)

// Vault is the per-authority record.
type Vault struct {
	Authority   ledger.Address // Controlling principal, immutable
	TotalShares uint64         // Net shares minted minus burned
	RWAHash     [32]byte       // Commitment copied from the initializing proof record
	Bump        uint8          // Derivation salt stored at creation
}

// ProofRecord is an oracle attestation. The vault only reads these.
type ProofRecord struct {
	Hash      [32]byte
	Timestamp int64
}

// MarshalBinary encodes the vault in its persisted layout.
func (v Vault) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, VaultSize)
	buf = append(buf, vaultDiscriminator[:]...)
	buf = append(buf, v.Authority[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, v.TotalShares)
	buf = append(buf, v.RWAHash[:]...)
	buf = append(buf, v.Bump)
	return buf, nil
}

// UnmarshalBinary decodes the persisted layout, rejecting foreign or truncated data.
func (v *Vault) UnmarshalBinary(data []byte) error {
	if len(data) != VaultSize {
		return fmt.Errorf("%w: vault is %d bytes, want %d", ErrAccountData, len(data), VaultSize)
	}
	if !bytes.Equal(data[:discriminatorSize], vaultDiscriminator[:]) {
		return fmt.Errorf("%w: not a vault account", ErrAccountData)
	}
	data = data[discriminatorSize:]
	copy(v.Authority[:], data[:32])
	v.TotalShares = binary.LittleEndian.Uint64(data[32:40])
	copy(v.RWAHash[:], data[40:72])
	v.Bump = data[72]
	return nil
}

// MarshalBinary encodes the record in its persisted layout.
func (p ProofRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, ProofRecordSize)
	buf = append(buf, proofDiscriminator[:]...)
	buf = append(buf, p.Hash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Timestamp))
	return buf, nil
}

// UnmarshalBinary decodes the persisted layout.
func (p *ProofRecord) UnmarshalBinary(data []byte) error {
	if len(data) != ProofRecordSize {
		return fmt.Errorf("%w: proof record is %d bytes, want %d", ErrAccountData, len(data), ProofRecordSize)
	}
	if !bytes.Equal(data[:discriminatorSize], proofDiscriminator[:]) {
		return fmt.Errorf("%w: not a proof record", ErrAccountData)
	}
	data = data[discriminatorSize:]
	copy(p.Hash[:], data[:32])
	p.Timestamp = int64(binary.LittleEndian.Uint64(data[32:40]))
	return nil
}

func discriminator(name string) [discriminatorSize]byte {
	sum := sha3.Sum256([]byte("account:" + name))
	var d [discriminatorSize]byte
	copy(d[:], sum[:discriminatorSize])
	return d
}
