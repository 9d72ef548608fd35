// commit.go - Native (out-of-circuit) counterparts of the mint-right circuit.
//
// The oracle stores Commit(metadata, nonce) as the proof record hash. The same value is
// recomputed inside MintRightCircuit, so both sides must hash field elements in the
// same order.

package zkproof

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"golang.org/x/crypto/sha3"
)

// Commit computes MiMC(metadata, nonce) over BN254. Inputs longer than a field
// element are reduced modulo the field order first.
func Commit(metadata, nonce []byte) [32]byte {
	m := FieldElement(metadata)
	n := FieldElement(nonce)
	mb := m.Bytes()
	nb := n.Bytes()

	h := mimcNative.NewMiMC()
	h.Write(mb[:])
	h.Write(nb[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// FieldElement reduces big-endian bytes into the BN254 scalar field.
func FieldElement(b []byte) fr.Element {
	var e fr.Element
	e.SetBigInt(new(big.Int).SetBytes(b))
	return e
}

// MinterElement maps a 32-byte identity into the scalar field as
// SHA3-256(minter) mod r. Two identities share an element only if their
// digests agree modulo r.
func MinterElement(minter [32]byte) fr.Element {
	d := sha3.Sum256(minter[:])
	return FieldElement(d[:])
}

func minterValue(minter [32]byte) *big.Int {
	e := MinterElement(minter)
	return e.BigInt(new(big.Int))
}

// fieldValue is the witness form of FieldElement.
func fieldValue(b []byte) *big.Int {
	e := FieldElement(b)
	return e.BigInt(new(big.Int))
}
