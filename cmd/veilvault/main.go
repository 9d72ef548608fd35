// main.go - veilvault command line.
//
// A typical session:
//
//	veilvault keys setup
//	veilvault ledger new-address                       # authority A, oracle admin O
//	veilvault ledger create-mint --authority O         # collateral mint C
//	veilvault ledger create-account --mint C --owner A
//	veilvault ledger mint-to --as O --mint C --to <A's collateral account> --amount 10000
//	veilvault proof attest --metadata "deed #42" --nonce 01
//	veilvault vault init --as A --supply 1000 --proof <record>
//	veilvault vault setup-accounts --as A --collateral-mint C
//	veilvault proof prove --metadata "deed #42" --nonce 01 --minter A --out mint.cbor
//	veilvault vault mint --as A --amount 500 --proof <record> --zk mint.cbor ...
//	veilvault vault burn --as A --amount 300 ...
package main

import (
	"fmt"
	"os"

	"github.com/veilvault/veilvault/internal/vault"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error [%d]: %v\n", vault.Code(err), err)
		os.Exit(1)
	}
}
