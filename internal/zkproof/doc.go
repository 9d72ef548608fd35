// Package zkproof proves and verifies the right to mint against an oracle commitment.
//
// Overview:
//   - The oracle stores Commit(metadata, nonce), a native MiMC hash over BN254, as a proof record
//   - The asset owner proves knowledge of (metadata, nonce) for that commitment, bound to a minter
//   - Proofs travel as CBOR Envelopes carrying the proof bytes and the public inputs
//
// Security Model:
//   - Groth16 over BN254 (gnark); the verifier rebuilds the public witness from the
//     vault's commitment and the caller, never from the envelope
//   - PassThrough accepts every proof and must be selected explicitly
//
// Usage:
//   - CompileCircuit, then SetupOrLoadKeys once per deployment
//   - NewProver(ccs, pk).Prove on the owner side, NewGroth16Verifier(vk).Verify in the vault
package zkproof
