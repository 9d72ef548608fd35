// derive.go - Program-derived addresses.
//
// A derived address is sha3-256(seeds || bump || programID || marker). Candidates that
// decode to a canonical BN254 scalar are rejected: that range is the key space, and a
// derived address must never collide with a key that could sign. The bump is the salt
// that pushes the digest out of that range.

package ledger

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/sha3"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	derivedMarker = "ProgramDerivedAddress"
)

var (
	ErrInvalidSeeds = errors.New("invalid seeds for program address")
	ErrInKeySpace   = errors.New("program address candidate falls inside the key space")
	ErrNoViableBump = errors.New("unable to find a viable program address bump")
)

// CreateProgramAddress computes the derived address for exactly one bump.
// It does not search: callers holding a stored bump use this to rebuild the address.
func CreateProgramAddress(programID Address, seeds [][]byte, bump uint8) (Address, error) {
	if len(seeds) >= maxSeeds {
		return Address{}, ErrInvalidSeeds
	}
	h := sha3.New256()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return Address{}, ErrInvalidSeeds
		}
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(programID[:])
	h.Write([]byte(derivedMarker))

	var addr Address
	copy(addr[:], h.Sum(nil))
	if inKeySpace(addr) {
		return Address{}, ErrInKeySpace
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 downwards and returns the first viable
// address together with the bump that produced it.
func FindProgramAddress(programID Address, seeds [][]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(programID, seeds, uint8(bump))
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInKeySpace) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

func inKeySpace(a Address) bool {
	return new(big.Int).SetBytes(a[:]).Cmp(fr.Modulus()) < 0
}
