package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veilvault/veilvault/internal/ledger"
	"github.com/veilvault/veilvault/internal/vault"
	"github.com/veilvault/veilvault/internal/zkproof"
)

func newVaultCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Initialize vaults, mint and burn shares",
	}
	cmd.AddCommand(newVaultInitCommand(opts))
	cmd.AddCommand(newVaultSetupAccountsCommand(opts))
	cmd.AddCommand(newVaultMintCommand(opts))
	cmd.AddCommand(newVaultBurnCommand(opts))
	cmd.AddCommand(newVaultShowCommand(opts))
	return cmd
}

// withApp opens the app, runs fn and closes the app, keeping the first error.
func withApp(ctx context.Context, opts *rootOptions, fn func(a *app) error) (err error) {
	a, err := openApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func vaultFields(addr ledger.Address, v vault.Vault) []field {
	return []field{
		{"vault", addr.String()},
		{"authority", v.Authority.String()},
		{"total_shares", v.TotalShares},
		{"rwa_hash", hex.EncodeToString(v.RWAHash[:])},
		{"bump", v.Bump},
	}
}

func newVaultInitCommand(opts *rootOptions) *cobra.Command {
	var supply uint64
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the caller's vault from an oracle proof record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := opts.caller()
			if err != nil {
				return err
			}
			record, err := addressFlag(cmd, "proof")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				addr, v, err := a.engine.Initialize(cmd.Context(), vault.InitializeRequest{
					Authority:     caller,
					InitialSupply: supply,
					ProofRecord:   record,
				})
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), vaultFields(addr, v)...)
			})
		},
	}
	cmd.Flags().Uint64Var(&supply, "supply", 0, "initial total shares")
	cmd.Flags().String("proof", "", "oracle proof record address (hex)")
	return cmd
}

// vault setup-accounts creates the share mint controlled by the vault, the
// vault's collateral custody account and the caller's share account.
func newVaultSetupAccountsCommand(opts *rootOptions) *cobra.Command {
	var decimals uint8
	cmd := &cobra.Command{
		Use:   "setup-accounts",
		Short: "Create the share mint and token accounts a vault needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := opts.caller()
			if err != nil {
				return err
			}
			collateralMint, err := addressFlag(cmd, "collateral-mint")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				addr, _, err := a.engine.VaultFor(cmd.Context(), caller)
				if err != nil {
					return err
				}
				shareMint, err := a.ledger.CreateMint(addr, decimals)
				if err != nil {
					return err
				}
				custody, err := a.ledger.CreateAccount(collateralMint, addr)
				if err != nil {
					return err
				}
				userShares, err := a.ledger.CreateAccount(shareMint, caller)
				if err != nil {
					return err
				}
				err = a.createEntries(cmd.Context(), []ledger.Address{shareMint}, []ledger.Address{custody, userShares})
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(),
					field{"vault", addr.String()},
					field{"share_mint", shareMint.String()},
					field{"vault_collateral", custody.String()},
					field{"user_shares", userShares.String()},
				)
			})
		},
	}
	cmd.Flags().String("collateral-mint", "", "mint of the deposited collateral (hex)")
	cmd.Flags().Uint8Var(&decimals, "decimals", 6, "share mint decimals")
	return cmd
}

// vaultRef resolves --vault, defaulting to the caller's derived vault address.
func vaultRef(cmd *cobra.Command, programID, caller ledger.Address) (ledger.Address, error) {
	if s, _ := cmd.Flags().GetString("vault"); s != "" {
		return ledger.ParseAddress(s)
	}
	addr, _, err := vault.DeriveVaultAddress(programID, caller)
	return addr, err
}

func newVaultMintCommand(opts *rootOptions) *cobra.Command {
	var (
		amount uint64
		zkPath string
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Deposit collateral and mint shares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := opts.caller()
			if err != nil {
				return err
			}
			req := vault.MintRequest{Caller: caller, Amount: amount}
			for name, dst := range map[string]*ledger.Address{
				"proof":            &req.UserProof,
				"share-mint":       &req.ShareMint,
				"user-collateral":  &req.UserCollateral,
				"vault-collateral": &req.VaultCollateral,
				"user-shares":      &req.UserShares,
			} {
				if *dst, err = addressFlag(cmd, name); err != nil {
					return err
				}
			}
			if zkPath != "" {
				data, err := os.ReadFile(zkPath)
				if err != nil {
					return fmt.Errorf("read zk proof: %w", err)
				}
				if req.ZkProof, err = zkproof.DecodeEnvelope(data); err != nil {
					return err
				}
			}

			return withApp(cmd.Context(), opts, func(a *app) error {
				if req.Vault, err = vaultRef(cmd, a.engine.ProgramID(), caller); err != nil {
					return err
				}
				v, err := a.engine.MintShares(cmd.Context(), req)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), vaultFields(req.Vault, v)...)
			})
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "collateral to deposit and shares to mint")
	cmd.Flags().StringVar(&zkPath, "zk", "", "CBOR proof envelope from `proof prove`")
	cmd.Flags().String("vault", "", "vault address (hex); defaults to the caller's vault")
	cmd.Flags().String("proof", "", "oracle proof record address (hex)")
	cmd.Flags().String("share-mint", "", "share mint (hex)")
	cmd.Flags().String("user-collateral", "", "caller's collateral account (hex)")
	cmd.Flags().String("vault-collateral", "", "vault's collateral custody account (hex)")
	cmd.Flags().String("user-shares", "", "caller's share account (hex)")
	return cmd
}

func newVaultBurnCommand(opts *rootOptions) *cobra.Command {
	var amount uint64
	cmd := &cobra.Command{
		Use:   "burn",
		Short: "Burn shares to start redemption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := opts.caller()
			if err != nil {
				return err
			}
			req := vault.BurnRequest{Caller: caller, Amount: amount}
			if req.ShareMint, err = addressFlag(cmd, "share-mint"); err != nil {
				return err
			}
			if req.UserShares, err = addressFlag(cmd, "user-shares"); err != nil {
				return err
			}

			return withApp(cmd.Context(), opts, func(a *app) error {
				if req.Vault, err = vaultRef(cmd, a.engine.ProgramID(), caller); err != nil {
					return err
				}
				v, err := a.engine.BurnShares(cmd.Context(), req)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), vaultFields(req.Vault, v)...)
			})
		},
	}
	cmd.Flags().Uint64Var(&amount, "amount", 0, "shares to burn")
	cmd.Flags().String("vault", "", "vault address (hex); defaults to the caller's vault")
	cmd.Flags().String("share-mint", "", "share mint (hex)")
	cmd.Flags().String("user-shares", "", "caller's share account (hex)")
	return cmd
}

func newVaultShowCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a vault by --authority or --vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				var (
					addr ledger.Address
					v    vault.Vault
					err  error
				)
				if s, _ := cmd.Flags().GetString("vault"); s != "" {
					if addr, err = ledger.ParseAddress(s); err != nil {
						return err
					}
					v, err = a.engine.Vault(cmd.Context(), addr)
				} else {
					var authority ledger.Address
					if authority, err = addressFlag(cmd, "authority"); err != nil {
						return err
					}
					addr, v, err = a.engine.VaultFor(cmd.Context(), authority)
				}
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), vaultFields(addr, v)...)
			})
		},
	}
	cmd.Flags().String("vault", "", "vault address (hex)")
	cmd.Flags().String("authority", "", "vault authority (hex)")
	return cmd
}
