package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/veilvault/veilvault/internal/config"
	"github.com/veilvault/veilvault/internal/ledger"
	"github.com/veilvault/veilvault/internal/logging"
	"github.com/veilvault/veilvault/internal/metrics"
	"github.com/veilvault/veilvault/internal/store"
	"github.com/veilvault/veilvault/internal/vault"
	"github.com/veilvault/veilvault/internal/zkproof"
)

// app is the wired service for one command invocation.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	store   *store.SQLite
	ledger  *ledger.Ledger
	metrics *metrics.Collector
	engine  *vault.Engine
}

// openApp wires logging, storage, the ledger view and the engine from config.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	programID, err := cfg.Program()
	if err != nil {
		return nil, err
	}

	logOpts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}
	if cfg.EnableAudit {
		logOpts.AuditFile = cfg.AuditLogPath
	}
	log, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.NewCollector()}
	if a.store, err = store.OpenSQLite(cfg.DBPath); err != nil {
		a.close()
		return nil, err
	}
	if a.ledger, err = a.store.LoadLedger(ctx); err != nil {
		a.close()
		return nil, err
	}
	verifier, err := newVerifier(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	a.engine, err = vault.NewEngine(programID, a.store, a.ledger, verifier,
		vault.WithLogger(log.Logger),
		vault.WithAudit(log.Audit()),
		vault.WithMetrics(a.metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func newVerifier(cfg *config.Config) (zkproof.Verifier, error) {
	switch cfg.Verifier {
	case config.VerifierPassThrough:
		return zkproof.PassThrough{}, nil
	case config.VerifierGroth16:
		vk, err := zkproof.LoadVerifyingKey(filepath.Join(cfg.KeyDir, zkproof.VerifyingKeyFile))
		if err != nil {
			return nil, fmt.Errorf("load verifying key (run `veilvault keys setup`): %w", err)
		}
		return zkproof.NewGroth16Verifier(vk), nil
	default:
		return nil, fmt.Errorf("unknown verifier %q", cfg.Verifier)
	}
}

// createEntries persists mints and accounts just created in the ledger view.
func (a *app) createEntries(ctx context.Context, mints, accounts []ledger.Address) error {
	ms := make(map[ledger.Address]ledger.Mint, len(mints))
	for _, id := range mints {
		m, err := a.ledger.Mint(id)
		if err != nil {
			return err
		}
		ms[id] = m
	}
	as := make(map[ledger.Address]ledger.Account, len(accounts))
	for _, id := range accounts {
		acct, err := a.ledger.Account(id)
		if err != nil {
			return err
		}
		as[id] = acct
	}
	if err := a.store.CreateLedgerEntries(ctx, ms, as); err != nil {
		return fmt.Errorf("save ledger entries: %w", err)
	}
	return nil
}

// commitLedger writes the staged changes of t to the database and, once that
// commits, to the ledger view.
func (a *app) commitLedger(ctx context.Context, t *ledger.Txn) error {
	err := a.store.WithTx(ctx, func(tx vault.Tx) error {
		return tx.ApplyLedger(ctx, t.Changes())
	})
	if err != nil {
		t.Rollback()
		return err
	}
	return t.Apply()
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.log != nil {
		a.log.Debug().Interface("metrics", a.metrics.Summary()).Msg("session metrics")
		errs = append(errs, a.log.Close())
	}
	return errors.Join(errs...)
}
