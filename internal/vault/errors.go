package vault

import (
	"errors"

	"github.com/veilvault/veilvault/internal/ledger"
)

var (
	ErrInvalidProof   = errors.New("invalid RWA proof - hash mismatch")
	ErrMathOverflow   = errors.New("math overflow occurred")
	ErrInvalidZkProof = errors.New("invalid ZK proof")
	ErrAlreadyExists  = errors.New("vault already exists for authority")
	ErrUnauthorized   = errors.New("caller is not authorized for this vault")
	ErrVaultNotFound  = errors.New("vault not found")
	ErrProofNotFound  = errors.New("proof record not found")
	ErrInvalidAccount = errors.New("token account does not belong to the vault")
	ErrAccountData    = errors.New("invalid account data")
)

// Error codes reported to clients. 6000-6002 are fixed; clients match on them.
const (
	CodeOK             = 0
	CodeInvalidProof   = 6000
	CodeMathOverflow   = 6001
	CodeInvalidZkProof = 6002
	CodeAlreadyExists  = 6003
	CodeUnauthorized   = 6004
	CodeNotFound       = 6005
	CodeInvalidAccount = 6006
	CodeInternal       = 6099
)

// Code maps an error returned by the Engine to its client-facing code.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidProof):
		return CodeInvalidProof
	case errors.Is(err, ErrMathOverflow):
		return CodeMathOverflow
	case errors.Is(err, ErrInvalidZkProof):
		return CodeInvalidZkProof
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ledger.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrVaultNotFound), errors.Is(err, ErrProofNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidAccount):
		return CodeInvalidAccount
	default:
		return CodeInternal
	}
}
