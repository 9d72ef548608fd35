package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/veilvault/veilvault/internal/config"
	"github.com/veilvault/veilvault/internal/health"
	"github.com/veilvault/veilvault/internal/store"
	"github.com/veilvault/veilvault/internal/zkproof"
)

const version = "0.1.0"

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the database, ledger tables and verifier keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := statusChecker(opts.cfg).Check(cmd.Context())
			fields := []field{{"status", string(report.Status)}, {"version", report.Version}}
			for _, c := range report.Components {
				fields = append(fields, field{c.Name, fmt.Sprintf("%s (%s)", c.Status, c.Message)})
			}
			if err := opts.print(cmd.OutOrStdout(), fields...); err != nil {
				return err
			}
			if report.Status == health.Unhealthy {
				return fmt.Errorf("service is unhealthy")
			}
			return nil
		},
	}
}

func statusChecker(cfg *config.Config) *health.Checker {
	c := health.NewChecker(version)
	c.Register("database", func(ctx context.Context) error {
		st, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Ping(ctx)
	})
	c.Register("ledger", func(ctx context.Context) error {
		st, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		_, err = st.LoadLedger(ctx)
		return err
	})

	keys := func(context.Context) error {
		for _, name := range []string{zkproof.ProvingKeyFile, zkproof.VerifyingKeyFile} {
			if _, err := os.Stat(filepath.Join(cfg.KeyDir, name)); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		return nil
	}
	// Minting cannot verify proofs without keys; with the pass-through verifier
	// only the prover is affected.
	if cfg.Verifier == config.VerifierGroth16 {
		c.Register("zk_keys", keys)
	} else {
		c.RegisterOptional("zk_keys", keys)
	}
	return c
}
