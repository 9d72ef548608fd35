package zkproof

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// CompileCircuit compiles MintRightCircuit for BN254.
func CompileCircuit() (constraint.ConstraintSystem, error) {
	var circuit MintRightCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit compilation failed: %w", err)
	}
	return ccs, nil
}

// Prover produces mint-right proofs on the asset owner's side.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	now func() time.Time
}

func NewProver(ccs constraint.ConstraintSystem, pk groth16.ProvingKey) *Prover {
	return &Prover{ccs: ccs, pk: pk, now: time.Now}
}

// Prove shows that MiMC(metadata, nonce) is the commitment the oracle attested,
// bound to minter.
// Steps:
//  1. Recompute the commitment natively
//  2. Build the full witness
//  3. Generate and serialize the Groth16 proof
func (p *Prover) Prove(metadata, nonce []byte, minter [32]byte) (*Envelope, error) {
	if minter == ([32]byte{}) {
		return nil, errors.New("minter must be set")
	}

	// Step 1: Native commitment
	commitment := Commit(metadata, nonce)

	// Step 2: Witness
	assignment := &MintRightCircuit{
		Commitment: fieldValue(commitment[:]),
		Minter:     minterValue(minter),
		Metadata:   fieldValue(metadata),
		Nonce:      fieldValue(nonce),
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("witness creation failed: %w", err)
	}

	// Step 3: Prove
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("proof marshaling failed: %w", err)
	}
	return &Envelope{
		Proof:        buf.Bytes(),
		PublicInputs: publicInputs(commitment, minter),
		Timestamp:    p.now().UnixMilli(),
	}, nil
}
