// verifier.go - Pluggable right-to-mint verification.
//
// The vault asks a Verifier whether the caller proved, in zero knowledge, that it holds
// the asset metadata behind the vault's committed hash. Production wiring uses
// Groth16Verifier; PassThrough exists for tests and local development and must be
// selected explicitly.

package zkproof

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
)

var ErrRejected = errors.New("zk proof rejected")

// Verifier checks a proof of right-to-mint against a commitment for one minter.
type Verifier interface {
	Verify(proof *Envelope, commitment [32]byte, minter [32]byte) error
}

// PassThrough accepts every proof, including a missing one.
type PassThrough struct{}

func (PassThrough) Verify(*Envelope, [32]byte, [32]byte) error { return nil }

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(proof *Envelope, commitment [32]byte, minter [32]byte) error

func (f VerifierFunc) Verify(proof *Envelope, commitment [32]byte, minter [32]byte) error {
	return f(proof, commitment, minter)
}

// Groth16Verifier verifies MintRightCircuit proofs.
type Groth16Verifier struct {
	vk groth16.VerifyingKey
}

// NewGroth16Verifier wraps a verifying key produced by SetupOrLoadKeys.
func NewGroth16Verifier(vk groth16.VerifyingKey) *Groth16Verifier {
	return &Groth16Verifier{vk: vk}
}

// Verify rebuilds the public witness from the vault's commitment and the caller,
// never from the envelope, so a proof made for another hash or minter fails.
func (v *Groth16Verifier) Verify(env *Envelope, commitment [32]byte, minter [32]byte) error {
	if err := VerifyEnvelopeStructure(env); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	want := publicInputs(commitment, minter)
	if len(env.PublicInputs) != len(want) {
		return fmt.Errorf("%w: expected %d public inputs, got %d", ErrRejected, len(want), len(env.PublicInputs))
	}
	for i := range want {
		if !bytes.Equal(env.PublicInputs[i], want[i]) {
			return fmt.Errorf("%w: public input %d does not match", ErrRejected, i)
		}
	}

	// Step 1: Build the public witness
	assignment := &MintRightCircuit{
		Commitment: fieldValue(commitment[:]),
		Minter:     minterValue(minter),
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public witness creation failed: %w", err)
	}

	// Step 2: Unmarshal proof
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(env.Proof)); err != nil {
		return fmt.Errorf("%w: proof unmarshaling failed: %v", ErrRejected, err)
	}

	// Step 3: Verify the proof
	if err := groth16.Verify(proof, v.vk, w); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return nil
}

func publicInputs(commitment, minter [32]byte) [][]byte {
	c := FieldElement(commitment[:])
	m := MinterElement(minter)
	cb := c.Bytes()
	mb := m.Bytes()
	return [][]byte{cb[:], mb[:]}
}
