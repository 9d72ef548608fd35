package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veilvault/veilvault/internal/ledger"
	"github.com/veilvault/veilvault/internal/vault"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite stores vaults, proof records and the token ledger in one SQLite
// database file, so a vault update and its ledger movements commit together.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ vault.Store = (*SQLite)(nil)

// OpenSQLite creates or opens the database at path, applying pragmas and schema.
// It is safe to call on an existing database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable and the schema is in place.
func (s *SQLite) Ping(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM vaults`).Scan(&n); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (s *SQLite) GetVault(ctx context.Context, addr ledger.Address) (vault.Vault, error) {
	return s.conn(s.db).GetVault(ctx, addr)
}

func (s *SQLite) GetProof(ctx context.Context, addr ledger.Address) (vault.ProofRecord, error) {
	return s.conn(s.db).GetProof(ctx, addr)
}

func (s *SQLite) PutProof(ctx context.Context, addr ledger.Address, p vault.ProofRecord) error {
	return s.conn(s.db).PutProof(ctx, addr, p)
}

// WithTx begins a transaction, runs fn, and commits on success or rolls back on
// error or panic. Panics are rethrown.
func (s *SQLite) WithTx(ctx context.Context, fn func(tx vault.Tx) error) error {
	return s.inTx(ctx, func(c *sqlConn) error { return fn(c) })
}

func (s *SQLite) inTx(ctx context.Context, fn func(c *sqlConn) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()

	err = fn(s.conn(tx))
	return err
}

// CreateLedgerEntries inserts new mints and token accounts in one transaction.
func (s *SQLite) CreateLedgerEntries(ctx context.Context, mints map[ledger.Address]ledger.Mint, accounts map[ledger.Address]ledger.Account) error {
	return s.inTx(ctx, func(c *sqlConn) error {
		for id, m := range mints {
			_, err := c.db.ExecContext(ctx,
				`INSERT INTO ledger_mints (address, authority, decimals, supply) VALUES (?, ?, ?, ?)`,
				id.String(), m.Authority.String(), m.Decimals, int64(m.Supply))
			if err != nil {
				return fmt.Errorf("insert mint %s: %w", id, err)
			}
		}
		for id, a := range accounts {
			_, err := c.db.ExecContext(ctx,
				`INSERT INTO ledger_accounts (address, mint, owner, amount) VALUES (?, ?, ?, ?)`,
				id.String(), a.Mint.String(), a.Owner.String(), int64(a.Amount))
			if err != nil {
				return fmt.Errorf("insert account %s: %w", id, err)
			}
		}
		return nil
	})
}

// LoadLedger reads every mint and token account into a fresh Ledger.
func (s *SQLite) LoadLedger(ctx context.Context) (*ledger.Ledger, error) {
	l := ledger.New()
	if err := s.loadMints(ctx, l); err != nil {
		return nil, err
	}
	if err := s.loadAccounts(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *SQLite) loadMints(ctx context.Context, l *ledger.Ledger) error {
	rows, err := s.db.QueryContext(ctx, `SELECT address, authority, decimals, supply FROM ledger_mints`)
	if err != nil {
		return fmt.Errorf("query mints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, authority string
			decimals      uint8
			supply        int64
		)
		if err := rows.Scan(&id, &authority, &decimals, &supply); err != nil {
			return fmt.Errorf("scan mint: %w", err)
		}
		addr, err := ledger.ParseAddress(id)
		if err != nil {
			return err
		}
		m := &ledger.Mint{Decimals: decimals, Supply: uint64(supply)}
		if m.Authority, err = ledger.ParseAddress(authority); err != nil {
			return err
		}
		l.Mints[addr] = m
	}
	return rows.Err()
}

func (s *SQLite) loadAccounts(ctx context.Context, l *ledger.Ledger) error {
	rows, err := s.db.QueryContext(ctx, `SELECT address, mint, owner, amount FROM ledger_accounts`)
	if err != nil {
		return fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, mint, owner string
			amount          int64
		)
		if err := rows.Scan(&id, &mint, &owner, &amount); err != nil {
			return fmt.Errorf("scan account: %w", err)
		}
		addr, err := ledger.ParseAddress(id)
		if err != nil {
			return err
		}
		a := &ledger.Account{Amount: uint64(amount)}
		if a.Mint, err = ledger.ParseAddress(mint); err != nil {
			return err
		}
		if a.Owner, err = ledger.ParseAddress(owner); err != nil {
			return err
		}
		l.Accounts[addr] = a
	}
	return rows.Err()
}

func (s *SQLite) conn(db DBTX) *sqlConn {
	return &sqlConn{db: db, now: s.now}
}

// sqlConn implements vault.Tx over either the database or an open transaction.
type sqlConn struct {
	db  DBTX
	now func() time.Time
}

func (c *sqlConn) GetVault(ctx context.Context, addr ledger.Address) (vault.Vault, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM vaults WHERE address = ?`, addr.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return vault.Vault{}, fmt.Errorf("%w: %s", vault.ErrVaultNotFound, addr)
	}
	if err != nil {
		return vault.Vault{}, fmt.Errorf("query vault: %w", err)
	}
	var v vault.Vault
	if err := v.UnmarshalBinary(data); err != nil {
		return vault.Vault{}, err
	}
	return v, nil
}

func (c *sqlConn) GetProof(ctx context.Context, addr ledger.Address) (vault.ProofRecord, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM proof_records WHERE address = ?`, addr.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return vault.ProofRecord{}, fmt.Errorf("%w: %s", vault.ErrProofNotFound, addr)
	}
	if err != nil {
		return vault.ProofRecord{}, fmt.Errorf("query proof record: %w", err)
	}
	var p vault.ProofRecord
	if err := p.UnmarshalBinary(data); err != nil {
		return vault.ProofRecord{}, err
	}
	return p, nil
}

func (c *sqlConn) CreateVault(ctx context.Context, addr ledger.Address, v vault.Vault) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	now := c.now().UnixMilli()
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO vaults (address, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(address) DO NOTHING`,
		addr.String(), data, now, now)
	if err != nil {
		return fmt.Errorf("insert vault: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert vault: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", vault.ErrAlreadyExists, addr)
	}
	return nil
}

func (c *sqlConn) UpdateVault(ctx context.Context, addr ledger.Address, v vault.Vault) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE vaults SET data = ?, updated_at = ? WHERE address = ?`,
		data, c.now().UnixMilli(), addr.String())
	if err != nil {
		return fmt.Errorf("update vault: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vault: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", vault.ErrVaultNotFound, addr)
	}
	return nil
}

func (c *sqlConn) PutProof(ctx context.Context, addr ledger.Address, p vault.ProofRecord) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO proof_records (address, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		addr.String(), data, c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert proof record: %w", err)
	}
	return nil
}

// ApplyLedger updates each balance and supply only where it still holds Change.Old.
func (c *sqlConn) ApplyLedger(ctx context.Context, changes ledger.Changes) error {
	for _, ch := range changes.Accounts {
		if err := c.compareAndSet(ctx, `UPDATE ledger_accounts SET amount = ? WHERE address = ? AND amount = ?`, "account", ch); err != nil {
			return err
		}
	}
	for _, ch := range changes.Supplies {
		if err := c.compareAndSet(ctx, `UPDATE ledger_mints SET supply = ? WHERE address = ? AND supply = ?`, "mint", ch); err != nil {
			return err
		}
	}
	return nil
}

func (c *sqlConn) compareAndSet(ctx context.Context, query, kind string, ch ledger.Change) error {
	res, err := c.db.ExecContext(ctx, query, int64(ch.New), ch.ID.String(), int64(ch.Old))
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s no longer holds %d", ErrConflict, kind, ch.ID, ch.Old)
	}
	return nil
}
