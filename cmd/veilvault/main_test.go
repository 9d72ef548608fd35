package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilvault/veilvault/internal/config"
	"github.com/veilvault/veilvault/internal/ledger"
	"github.com/veilvault/veilvault/internal/metrics"
	"github.com/veilvault/veilvault/internal/store"
	"github.com/veilvault/veilvault/internal/vault"
)

type cli struct {
	t      *testing.T
	config string
}

func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	config := filepath.Join(dir, "veilvault.yaml")
	body := fmt.Sprintf(`program_id: "5665696c5661756c740000000000000000000000000000000000000000000001"
db_path: %q
key_dir: %q
log_level: error
verifier: passthrough
enable_audit: false
`, filepath.Join(dir, "vault.db"), filepath.Join(dir, "keys"))
	require.NoError(t, os.WriteFile(config, []byte(body), 0644))
	return &cli{t: t, config: config}
}

// run executes one command with JSON output and decodes the result.
func (c *cli) run(args ...string) (map[string]interface{}, error) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", c.config, "--format", "json"}, args...))
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	result := map[string]interface{}{}
	require.NoError(c.t, json.Unmarshal(out.Bytes(), &result), out.String())
	return result, nil
}

func (c *cli) mustRun(args ...string) map[string]interface{} {
	c.t.Helper()
	result, err := c.run(args...)
	require.NoError(c.t, err)
	return result
}

func TestCLIEndToEnd(t *testing.T) {
	c := newCLI(t)
	authority := c.mustRun("ledger", "new-address")["address"].(string)
	oracle := c.mustRun("ledger", "new-address")["address"].(string)

	collateralMint := c.mustRun("ledger", "create-mint", "--authority", oracle)["mint"].(string)
	userCollateral := c.mustRun("ledger", "create-account", "--mint", collateralMint, "--owner", authority)["account"].(string)
	c.mustRun("ledger", "mint-to", "--as", oracle, "--mint", collateralMint, "--to", userCollateral, "--amount", "10000")

	record := c.mustRun("proof", "attest", "--metadata", "deed #42", "--nonce", "01")["record"].(string)

	initialized := c.mustRun("vault", "init", "--as", authority, "--supply", "1000", "--proof", record)
	assert.Equal(t, 1000.0, initialized["total_shares"])

	accounts := c.mustRun("vault", "setup-accounts", "--as", authority, "--collateral-mint", collateralMint)
	shareMint := accounts["share_mint"].(string)
	vaultCollateral := accounts["vault_collateral"].(string)
	userShares := accounts["user_shares"].(string)

	minted := c.mustRun("vault", "mint", "--as", authority, "--amount", "500", "--proof", record,
		"--share-mint", shareMint, "--user-collateral", userCollateral,
		"--vault-collateral", vaultCollateral, "--user-shares", userShares)
	assert.Equal(t, 1500.0, minted["total_shares"])

	burned := c.mustRun("vault", "burn", "--as", authority, "--amount", "300",
		"--share-mint", shareMint, "--user-shares", userShares)
	assert.Equal(t, 1200.0, burned["total_shares"])

	shown := c.mustRun("vault", "show", "--authority", authority)
	assert.Equal(t, 1200.0, shown["total_shares"])
	assert.Equal(t, initialized["vault"], shown["vault"])

	custody := c.mustRun("ledger", "show", "--account", vaultCollateral)
	assert.Equal(t, 500.0, custody["amount"])
	shares := c.mustRun("ledger", "show", "--mint", shareMint)
	assert.Equal(t, 200.0, shares["supply"])

	_, err := c.run("vault", "init", "--as", authority, "--supply", "1", "--proof", record)
	require.Error(t, err)
}

// vaultSetup is one authority's vault and token accounts, created through the CLI.
type vaultSetup struct {
	authority, vault                                       string
	shareMint, userCollateral, vaultCollateral, userShares string
}

func (c *cli) setupVault(collateralMint, oracle, record string) vaultSetup {
	c.t.Helper()
	var s vaultSetup
	s.authority = c.mustRun("ledger", "new-address")["address"].(string)
	s.userCollateral = c.mustRun("ledger", "create-account", "--mint", collateralMint, "--owner", s.authority)["account"].(string)
	c.mustRun("ledger", "mint-to", "--as", oracle, "--mint", collateralMint, "--to", s.userCollateral, "--amount", "10000")
	s.vault = c.mustRun("vault", "init", "--as", s.authority, "--supply", "1000", "--proof", record)["vault"].(string)
	accounts := c.mustRun("vault", "setup-accounts", "--as", s.authority, "--collateral-mint", collateralMint)
	s.shareMint = accounts["share_mint"].(string)
	s.vaultCollateral = accounts["vault_collateral"].(string)
	s.userShares = accounts["user_shares"].(string)
	return s
}

func (s vaultSetup) mintRequest(t *testing.T, record string, amount uint64) vault.MintRequest {
	t.Helper()
	parse := func(v string) ledger.Address {
		a, err := ledger.ParseAddress(v)
		require.NoError(t, err)
		return a
	}
	return vault.MintRequest{
		Caller:          parse(s.authority),
		Vault:           parse(s.vault),
		Amount:          amount,
		UserProof:       parse(record),
		ShareMint:       parse(s.shareMint),
		UserCollateral:  parse(s.userCollateral),
		VaultCollateral: parse(s.vaultCollateral),
		UserShares:      parse(s.userShares),
	}
}

func openTestApp(t *testing.T, path string) *app {
	t.Helper()
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	a, err := openApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.close() })
	return a
}

func TestAppsSharingADatabaseKeepLedgerAndVaultsInStep(t *testing.T) {
	c := newCLI(t)
	ctx := context.Background()
	oracle := c.mustRun("ledger", "new-address")["address"].(string)
	collateralMint := c.mustRun("ledger", "create-mint", "--authority", oracle)["mint"].(string)
	record := c.mustRun("proof", "attest", "--metadata", "deed #42", "--nonce", "01")["record"].(string)
	first := c.setupVault(collateralMint, oracle, record)
	second := c.setupVault(collateralMint, oracle, record)

	// Both processes load the ledger before either mints.
	app1 := openTestApp(t, c.config)
	app2 := openTestApp(t, c.config)

	_, err := app1.engine.MintShares(ctx, first.mintRequest(t, record, 500))
	require.NoError(t, err)
	_, err = app2.engine.MintShares(ctx, second.mintRequest(t, record, 500))
	require.NoError(t, err)

	// app2 still holds the first vault's old balances, so its write is refused whole.
	_, err = app2.engine.MintShares(ctx, first.mintRequest(t, record, 100))
	require.ErrorIs(t, err, store.ErrConflict)

	for _, s := range []vaultSetup{first, second} {
		assert.Equal(t, 1500.0, c.mustRun("vault", "show", "--vault", s.vault)["total_shares"])
		assert.Equal(t, 500.0, c.mustRun("ledger", "show", "--mint", s.shareMint)["supply"])
		assert.Equal(t, 500.0, c.mustRun("ledger", "show", "--account", s.vaultCollateral)["amount"])
		assert.Equal(t, 500.0, c.mustRun("ledger", "show", "--account", s.userShares)["amount"])
		assert.Equal(t, 9500.0, c.mustRun("ledger", "show", "--account", s.userCollateral)["amount"])
	}
}

func TestLedgerExport(t *testing.T) {
	c := newCLI(t)
	oracle := c.mustRun("ledger", "new-address")["address"].(string)
	c.mustRun("ledger", "create-mint", "--authority", oracle)

	out := filepath.Join(t.TempDir(), "snapshot.json")
	exported := c.mustRun("ledger", "export", "--out", out)
	assert.Equal(t, 1.0, exported["mints"])
	assert.FileExists(t, out)
}

func TestProveRecordsGenerationTime(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup")
	}
	c := newCLI(t)
	c.mustRun("keys", "setup")
	a := openTestApp(t, c.config)

	minter, err := ledger.NewAddress()
	require.NoError(t, err)
	env, _, err := a.prove([]byte("deed #42"), []byte{1}, minter)
	require.NoError(t, err)
	assert.NotEmpty(t, env.Proof)
	assert.NotNil(t, a.metrics.GetMetric(metrics.MetricProofGeneration, nil))
}

func TestCLIRejectsBadFormat(t *testing.T) {
	c := newCLI(t)
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", c.config, "--format", "xml", "ledger", "new-address"})
	require.Error(t, cmd.Execute())
}

func TestCLIRequiresCaller(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("vault", "init", "--proof", "00")
	require.ErrorContains(t, err, "--as is required")
}

func TestCLIStatus(t *testing.T) {
	c := newCLI(t)
	report := c.mustRun("status")
	// Pass-through config without keys is usable but degraded.
	assert.Equal(t, "degraded", report["status"])
	assert.Contains(t, report["database"], "healthy")
}
