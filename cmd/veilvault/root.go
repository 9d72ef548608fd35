package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/veilvault/veilvault/internal/config"
	"github.com/veilvault/veilvault/internal/ledger"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	As         string // hex address of the authenticated caller

	cfg *config.Config
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "veilvault",
		Short:         "RWA-backed share vault",
		Long:          "Mint and burn vault shares against collateral attested by an oracle proof record.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			cfg, err := config.LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", opts.ConfigPath, err)
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "veilvault.yaml", "config file (yaml or json)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "caller address (hex)")

	cmd.AddCommand(newKeysCommand(opts))
	cmd.AddCommand(newProofCommand(opts))
	cmd.AddCommand(newVaultCommand(opts))
	cmd.AddCommand(newLedgerCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// caller returns the --as address, which every state-changing command needs.
func (o *rootOptions) caller() (ledger.Address, error) {
	if o.As == "" {
		return ledger.Address{}, fmt.Errorf("--as is required")
	}
	return ledger.ParseAddress(o.As)
}

// field is one labelled value of a command result.
type field struct {
	Key   string
	Value interface{}
}

// print renders fields as "key: value" lines or as one JSON object.
func (o *rootOptions) print(w io.Writer, fields ...field) error {
	if o.Format == "json" {
		obj := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			obj[f.Key] = f.Value
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(obj)
	}
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, "%-18s %v\n", f.Key+":", f.Value); err != nil {
			return err
		}
	}
	return nil
}

// addressFlag reads a required hex address flag.
func addressFlag(cmd *cobra.Command, name string) (ledger.Address, error) {
	s, err := cmd.Flags().GetString(name)
	if err != nil {
		return ledger.Address{}, err
	}
	if s == "" {
		return ledger.Address{}, fmt.Errorf("--%s is required", name)
	}
	a, err := ledger.ParseAddress(s)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return a, nil
}
