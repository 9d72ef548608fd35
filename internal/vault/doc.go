// Package vault implements the real-world-asset share vault.
//
// Overview:
//   - One Vault per authority, stored at an address derived from the authority alone
//   - initialize copies the oracle proof hash into the vault; it becomes the trust anchor
//   - mintShares moves collateral into the vault and mints shares, gated by the hash and
//     by a pluggable zero-knowledge verifier
//   - burnShares burns the caller's shares; redemption payout is a hook, not implemented here
//
// Security Model:
//   - The vault mints only through a Capability rebuilt from the stored bump
//   - totalShares is updated with checked arithmetic; overflow and underflow abort
//   - Every operation is one unit of work over the vault store and the ledger
//   - Operations on one vault are serialized; different vaults proceed concurrently
//
// Usage:
//   - Build an Engine with NewEngine and call Initialize, MintShares, BurnShares
//   - Storage is any Store implementation (see package store)
package vault
