package ledger

import "errors"

var (
	ErrUnknownMint       = errors.New("unknown mint")
	ErrUnknownAccount    = errors.New("unknown token account")
	ErrMintMismatch      = errors.New("account does not belong to mint")
	ErrUnauthorized      = errors.New("authority does not own the source")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("balance or supply overflow")
	ErrInvalidAuthority  = errors.New("mint authority must be set")
	ErrConflict          = errors.New("ledger state changed since transaction read it")
	ErrTxnClosed         = errors.New("ledger transaction already closed")
)
