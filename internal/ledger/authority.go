package ledger

import "fmt"

// Authority is presented with every balance-changing call. The ledger only accepts
// the implementations in this package.
type Authority interface {
	// Key resolves the address this authority speaks for.
	Key() (Address, error)
	sealed()
}

// Signer is an externally authenticated principal. Authentication happens before the
// request reaches the ledger.
type Signer Address

func (s Signer) Key() (Address, error) { return Address(s), nil }
func (Signer) sealed()                 {}

// SeedSigner lets a program act for one of its derived addresses. The ledger
// recomputes the address from the seeds and the stored bump on every use.
type SeedSigner struct {
	ProgramID Address
	Seeds     [][]byte
	Bump      uint8
}

func (s SeedSigner) Key() (Address, error) {
	return CreateProgramAddress(s.ProgramID, s.Seeds, s.Bump)
}
func (SeedSigner) sealed() {}

func authorize(auth Authority, want Address) error {
	if auth == nil {
		return fmt.Errorf("%w: missing authority", ErrUnauthorized)
	}
	key, err := auth.Key()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if key != want {
		return fmt.Errorf("%w: %s cannot act for %s", ErrUnauthorized, key, want)
	}
	return nil
}
