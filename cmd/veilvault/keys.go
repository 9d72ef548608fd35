package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/veilvault/veilvault/internal/zkproof"
)

func newKeysCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage Groth16 keys for the mint-right circuit",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Compile the circuit and create (or load) its proving and verifying keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			ccs, err := zkproof.CompileCircuit()
			if err != nil {
				return err
			}
			if _, _, err := zkproof.SetupOrLoadKeys(ccs, opts.cfg.KeyDir); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(),
				field{"constraints", ccs.GetNbConstraints()},
				field{"proving_key", filepath.Join(opts.cfg.KeyDir, zkproof.ProvingKeyFile)},
				field{"verifying_key", filepath.Join(opts.cfg.KeyDir, zkproof.VerifyingKeyFile)},
				field{"elapsed", time.Since(start).Round(time.Millisecond).String()},
			)
		},
	})
	return cmd
}
