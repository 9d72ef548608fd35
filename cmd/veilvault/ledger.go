package main

import (
	"github.com/spf13/cobra"

	"github.com/veilvault/veilvault/internal/ledger"
)

func newLedgerCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and seed the token ledger",
	}
	cmd.AddCommand(newLedgerNewAddressCommand(opts))
	cmd.AddCommand(newLedgerCreateMintCommand(opts))
	cmd.AddCommand(newLedgerCreateAccountCommand(opts))
	cmd.AddCommand(newLedgerMintToCommand(opts))
	cmd.AddCommand(newLedgerShowCommand(opts))
	cmd.AddCommand(newLedgerExportCommand(opts))
	return cmd
}

func newLedgerNewAddressCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new-address",
		Short: "Generate a random address for a principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ledger.NewAddress()
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), field{"address", a.String()})
		},
	}
}

func newLedgerCreateMintCommand(opts *rootOptions) *cobra.Command {
	var decimals uint8
	cmd := &cobra.Command{
		Use:   "create-mint",
		Short: "Create a mint controlled by --authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authority, err := addressFlag(cmd, "authority")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				mint, err := a.ledger.CreateMint(authority, decimals)
				if err != nil {
					return err
				}
				if err := a.createEntries(cmd.Context(), []ledger.Address{mint}, nil); err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), field{"mint", mint.String()})
			})
		},
	}
	cmd.Flags().String("authority", "", "mint authority (hex)")
	cmd.Flags().Uint8Var(&decimals, "decimals", 6, "mint decimals")
	return cmd
}

func newLedgerCreateAccountCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create a token account of --mint owned by --owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := addressFlag(cmd, "mint")
			if err != nil {
				return err
			}
			owner, err := addressFlag(cmd, "owner")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				acct, err := a.ledger.CreateAccount(mint, owner)
				if err != nil {
					return err
				}
				if err := a.createEntries(cmd.Context(), nil, []ledger.Address{acct}); err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), field{"account", acct.String()})
			})
		},
	}
	cmd.Flags().String("mint", "", "mint (hex)")
	cmd.Flags().String("owner", "", "account owner (hex)")
	return cmd
}

func newLedgerMintToCommand(opts *rootOptions) *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "mint-to",
		Short: "Mint tokens as the mint authority given by --as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := opts.caller()
			if err != nil {
				return err
			}
			mint, err := addressFlag(cmd, "mint")
			if err != nil {
				return err
			}
			to, err := addressFlag(cmd, "to")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				t := a.ledger.Begin()
				if err := t.MintTo(mint, to, amount, ledger.Signer(caller)); err != nil {
					t.Rollback()
					return err
				}
				if err := a.commitLedger(cmd.Context(), t); err != nil {
					return err
				}
				balance, err := a.ledger.Balance(to)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), field{"account", to.String()}, field{"balance", balance})
			})
		},
	}
	cmd.Flags().String("mint", "", "mint (hex)")
	cmd.Flags().String("to", "", "destination account (hex)")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount to mint")
	return cmd
}

func newLedgerShowCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a token account (--account) or a mint (--mint)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				if s, _ := cmd.Flags().GetString("mint"); s != "" {
					id, err := ledger.ParseAddress(s)
					if err != nil {
						return err
					}
					m, err := a.ledger.Mint(id)
					if err != nil {
						return err
					}
					return opts.print(cmd.OutOrStdout(),
						field{"mint", id.String()},
						field{"authority", m.Authority.String()},
						field{"decimals", m.Decimals},
						field{"supply", m.Supply},
					)
				}
				id, err := addressFlag(cmd, "account")
				if err != nil {
					return err
				}
				acct, err := a.ledger.Account(id)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(),
					field{"account", id.String()},
					field{"mint", acct.Mint.String()},
					field{"owner", acct.Owner.String()},
					field{"amount", acct.Amount},
				)
			})
		},
	}
	cmd.Flags().String("account", "", "token account (hex)")
	cmd.Flags().String("mint", "", "mint (hex)")
	return cmd
}

func newLedgerExportCommand(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every mint and token account to a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				if err := a.ledger.SaveToFile(out); err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(),
					field{"snapshot", out},
					field{"mints", len(a.ledger.Mints)},
					field{"accounts", len(a.ledger.Accounts)},
				)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "ledger.json", "snapshot file")
	return cmd
}
