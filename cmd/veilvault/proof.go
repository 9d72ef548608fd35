package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/veilvault/veilvault/internal/ledger"
	"github.com/veilvault/veilvault/internal/store"
	"github.com/veilvault/veilvault/internal/vault"
	"github.com/veilvault/veilvault/internal/zkproof"
)

func newProofCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Oracle proof records and mint-right proofs",
	}
	cmd.AddCommand(newProofAttestCommand(opts))
	cmd.AddCommand(newProofProveCommand(opts))
	return cmd
}

// preimage reads the --metadata and hex --nonce flags.
func preimage(cmd *cobra.Command) (metadata, nonce []byte, err error) {
	m, _ := cmd.Flags().GetString("metadata")
	n, _ := cmd.Flags().GetString("nonce")
	if m == "" {
		return nil, nil, fmt.Errorf("--metadata is required")
	}
	nonce, err = hex.DecodeString(n)
	if err != nil {
		return nil, nil, fmt.Errorf("--nonce must be hex: %w", err)
	}
	return []byte(m), nonce, nil
}

// proof attest stands in for the oracle: it stores the commitment of an asset
// description as a proof record.
func newProofAttestCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attest",
		Short: "Record the commitment of an asset description as an oracle proof record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, nonce, err := preimage(cmd)
			if err != nil {
				return err
			}
			record, err := optionalAddress(cmd, "record")
			if err != nil {
				return err
			}

			st, err := store.OpenSQLite(opts.cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			p := vault.ProofRecord{Hash: zkproof.Commit(metadata, nonce), Timestamp: time.Now().Unix()}
			if err := st.PutProof(cmd.Context(), record, p); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(),
				field{"record", record.String()},
				field{"hash", hex.EncodeToString(p.Hash[:])},
				field{"timestamp", p.Timestamp},
			)
		},
	}
	cmd.Flags().String("metadata", "", "asset description")
	cmd.Flags().String("nonce", "", "blinding nonce (hex)")
	cmd.Flags().String("record", "", "proof record address (hex); random if empty")
	return cmd
}

func newProofProveCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Prove knowledge of an attested asset description for a minter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, nonce, err := preimage(cmd)
			if err != nil {
				return err
			}
			minter, err := addressFlag(cmd, "minter")
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), opts, func(a *app) error {
				env, elapsed, err := a.prove(metadata, nonce, minter)
				if err != nil {
					return err
				}
				data, err := env.Encode()
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("write proof: %w", err)
				}
				return opts.print(cmd.OutOrStdout(),
					field{"proof", out},
					field{"envelope", env.String()},
					field{"elapsed", elapsed.Round(time.Millisecond).String()},
				)
			})
		},
	}
	cmd.Flags().String("metadata", "", "asset description")
	cmd.Flags().String("nonce", "", "blinding nonce (hex)")
	cmd.Flags().String("minter", "", "address the proof is bound to (hex)")
	cmd.Flags().StringVarP(&out, "out", "o", "mint_proof.cbor", "output file for the CBOR proof envelope")
	return cmd
}

// prove builds a mint-right proof for minter with the keys in key_dir and
// records how long proving took.
func (a *app) prove(metadata, nonce []byte, minter ledger.Address) (*zkproof.Envelope, time.Duration, error) {
	ccs, err := zkproof.CompileCircuit()
	if err != nil {
		return nil, 0, err
	}
	pk, err := zkproof.LoadProvingKey(filepath.Join(a.cfg.KeyDir, zkproof.ProvingKeyFile))
	if err != nil {
		return nil, 0, fmt.Errorf("load proving key (run `veilvault keys setup`): %w", err)
	}

	start := time.Now()
	env, err := zkproof.NewProver(ccs, pk).Prove(metadata, nonce, minter)
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)
	a.metrics.RecordProofGeneration(elapsed)
	a.log.Info().Str("minter", minter.String()).Dur("elapsed", elapsed).Msg("mint proof generated")
	return env, elapsed, nil
}

// optionalAddress reads an address flag, drawing a random one when it is empty.
func optionalAddress(cmd *cobra.Command, name string) (ledger.Address, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return ledger.NewAddress()
	}
	return ledger.ParseAddress(s)
}
