// engine.go - Vault state machine: initialize, mintShares, burnShares.
//
// Every operation validates all preconditions, including the share arithmetic,
// before staging any ledger effect. Ledger effects are staged in a ledger.Txn and
// written with the vault update in the same store transaction; the in-memory
// Ledger only takes them once that transaction has committed.

package vault

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veilvault/veilvault/internal/ledger"
	"github.com/veilvault/veilvault/internal/metrics"
	"github.com/veilvault/veilvault/internal/zkproof"
)

// RedemptionHook is called after a burn has committed. It must not assume any
// collateral has moved.
type RedemptionHook func(ctx context.Context, addr ledger.Address, v Vault, burned uint64)

// Engine executes vault operations against a Store and a Ledger.
type Engine struct {
	programID ledger.Address
	store     Store
	ledger    *ledger.Ledger
	verifier  zkproof.Verifier
	locks     *keyedMutex

	log     zerolog.Logger
	audit   zerolog.Logger
	metrics *metrics.Collector
	redeem  RedemptionHook
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithAudit sets the logger receiving one record per committed operation.
func WithAudit(l zerolog.Logger) Option { return func(e *Engine) { e.audit = l } }

func WithMetrics(m *metrics.Collector) Option { return func(e *Engine) { e.metrics = m } }

func WithRedemptionHook(h RedemptionHook) Option { return func(e *Engine) { e.redeem = h } }

// NewEngine wires an engine. verifier is required; use zkproof.PassThrough
// explicitly where no verification is wanted.
func NewEngine(programID ledger.Address, store Store, l *ledger.Ledger, verifier zkproof.Verifier, opts ...Option) (*Engine, error) {
	if store == nil || l == nil {
		return nil, errors.New("vault: store and ledger are required")
	}
	if verifier == nil {
		return nil, errors.New("vault: a zk verifier is required")
	}
	e := &Engine{
		programID: programID,
		store:     store,
		ledger:    l,
		verifier:  verifier,
		locks:     newKeyedMutex(),
		log:       zerolog.Nop(),
		audit:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.redeem == nil {
		e.redeem = e.logRedemption
	}
	return e, nil
}

func (e *Engine) ProgramID() ledger.Address { return e.programID }

// InitializeRequest creates the vault of Authority.
type InitializeRequest struct {
	Authority     ledger.Address
	InitialSupply uint64
	ProofRecord   ledger.Address
}

// MintRequest deposits Amount collateral from UserCollateral to VaultCollateral and
// mints Amount shares of ShareMint into UserShares.
type MintRequest struct {
	Caller          ledger.Address
	Vault           ledger.Address
	Amount          uint64
	UserProof       ledger.Address
	ZkProof         *zkproof.Envelope
	ShareMint       ledger.Address
	UserCollateral  ledger.Address
	VaultCollateral ledger.Address
	UserShares      ledger.Address
}

// BurnRequest burns Amount shares of ShareMint held in UserShares.
type BurnRequest struct {
	Caller     ledger.Address
	Vault      ledger.Address
	Amount     uint64
	ShareMint  ledger.Address
	UserShares ledger.Address
}

// Initialize creates the caller's vault, copying the proof record's hash as its
// commitment. It has no ledger effects.
func (e *Engine) Initialize(ctx context.Context, req InitializeRequest) (ledger.Address, Vault, error) {
	log := e.opLogger("initialize", req.Authority)
	if req.Authority.IsZero() {
		return ledger.Address{}, Vault{}, e.fail(log, "initialize", fmt.Errorf("%w: zero authority", ErrUnauthorized))
	}

	addr, bump, err := DeriveVaultAddress(e.programID, req.Authority)
	if err != nil {
		return ledger.Address{}, Vault{}, e.fail(log, "initialize", err)
	}
	unlock := e.locks.Lock(addr)
	defer unlock()

	var v Vault
	err = e.store.WithTx(ctx, func(tx Tx) error {
		proof, err := tx.GetProof(ctx, req.ProofRecord)
		if err != nil {
			return err
		}
		v = Vault{
			Authority:   req.Authority,
			TotalShares: req.InitialSupply,
			RWAHash:     proof.Hash,
			Bump:        bump,
		}
		return tx.CreateVault(ctx, addr, v)
	})
	if err != nil {
		return ledger.Address{}, Vault{}, e.fail(log, "initialize", err)
	}

	log.Info().
		Str("vault", addr.String()).
		Uint64("shares", v.TotalShares).
		Hex("rwa_hash", v.RWAHash[:]).
		Msg("vault initialized")
	e.audit.Info().
		Str("op", "initialize").
		Str("vault", addr.String()).
		Str("authority", req.Authority.String()).
		Uint64("total_shares", v.TotalShares).
		Send()
	e.metrics.RecordOperation("initialize")
	e.metrics.RecordTotalShares(addr.String(), v.TotalShares)
	return addr, v, nil
}

// MintShares checks the caller's authority, the proof hash, the zk proof and the
// share arithmetic, then moves collateral and mints shares in one unit of work.
func (e *Engine) MintShares(ctx context.Context, req MintRequest) (Vault, error) {
	log := e.opLogger("mint_shares", req.Caller)
	unlock := e.locks.Lock(req.Vault)
	defer unlock()

	var (
		updated Vault
		ltx     *ledger.Txn
	)
	err := e.store.WithTx(ctx, func(tx Tx) error {
		v, capability, err := e.loadAuthorized(ctx, tx, req.Caller, req.Vault)
		if err != nil {
			return err
		}

		proof, err := tx.GetProof(ctx, req.UserProof)
		if err != nil {
			return err
		}
		if proof.Hash != v.RWAHash {
			return ErrInvalidProof
		}

		start := time.Now()
		err = e.verifier.Verify(req.ZkProof, v.RWAHash, req.Caller)
		e.metrics.RecordVerify(time.Since(start))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidZkProof, err)
		}

		total, carry := bits.Add64(v.TotalShares, req.Amount, 0)
		if carry != 0 {
			return fmt.Errorf("%w: %d + %d", ErrMathOverflow, v.TotalShares, req.Amount)
		}

		custody, err := e.ledger.Account(req.VaultCollateral)
		if err != nil {
			return err
		}
		if custody.Owner != capability.Address() {
			return fmt.Errorf("%w: %s", ErrInvalidAccount, req.VaultCollateral)
		}
		shares, err := e.ledger.Account(req.UserShares)
		if err != nil {
			return err
		}
		if shares.Owner != req.Caller {
			return fmt.Errorf("%w: share account %s is not held by the caller", ErrInvalidAccount, req.UserShares)
		}

		t := e.ledger.Begin()
		if err := t.Transfer(req.UserCollateral, req.VaultCollateral, req.Amount, ledger.Signer(req.Caller)); err != nil {
			t.Rollback()
			return fmt.Errorf("deposit collateral: %w", err)
		}
		if err := t.MintTo(req.ShareMint, req.UserShares, req.Amount, capability.Signer()); err != nil {
			t.Rollback()
			return fmt.Errorf("mint shares: %w", err)
		}

		v.TotalShares = total
		ltx, updated = t, v
		return e.write(ctx, tx, req.Vault, v, t)
	})
	if err := e.settle(ltx, err); err != nil {
		return Vault{}, e.fail(log, "mint_shares", err)
	}

	log.Info().
		Str("vault", req.Vault.String()).
		Uint64("amount", req.Amount).
		Uint64("total_shares", updated.TotalShares).
		Msg("shares minted")
	e.audit.Info().
		Str("op", "mint_shares").
		Str("vault", req.Vault.String()).
		Str("caller", req.Caller.String()).
		Uint64("amount", req.Amount).
		Uint64("total_shares", updated.TotalShares).
		Send()
	e.metrics.RecordOperation("mint_shares")
	e.metrics.RecordMinted(req.Amount)
	e.metrics.RecordTotalShares(req.Vault.String(), updated.TotalShares)
	return updated, nil
}

// BurnShares burns the caller's shares and starts redemption through the hook.
func (e *Engine) BurnShares(ctx context.Context, req BurnRequest) (Vault, error) {
	log := e.opLogger("burn_shares", req.Caller)
	unlock := e.locks.Lock(req.Vault)
	defer unlock()

	var (
		updated Vault
		ltx     *ledger.Txn
	)
	err := e.store.WithTx(ctx, func(tx Tx) error {
		v, _, err := e.loadAuthorized(ctx, tx, req.Caller, req.Vault)
		if err != nil {
			return err
		}
		if v.TotalShares < req.Amount {
			return fmt.Errorf("%w: %d - %d", ErrMathOverflow, v.TotalShares, req.Amount)
		}

		t := e.ledger.Begin()
		if err := t.BurnFrom(req.ShareMint, req.UserShares, req.Amount, ledger.Signer(req.Caller)); err != nil {
			t.Rollback()
			return fmt.Errorf("burn shares: %w", err)
		}

		v.TotalShares -= req.Amount
		ltx, updated = t, v
		return e.write(ctx, tx, req.Vault, v, t)
	})
	if err := e.settle(ltx, err); err != nil {
		return Vault{}, e.fail(log, "burn_shares", err)
	}

	log.Info().
		Str("vault", req.Vault.String()).
		Uint64("amount", req.Amount).
		Uint64("total_shares", updated.TotalShares).
		Msg("shares burned")
	e.audit.Info().
		Str("op", "burn_shares").
		Str("vault", req.Vault.String()).
		Str("caller", req.Caller.String()).
		Uint64("amount", req.Amount).
		Uint64("total_shares", updated.TotalShares).
		Send()
	e.metrics.RecordOperation("burn_shares")
	e.metrics.RecordBurned(req.Amount)
	e.metrics.RecordTotalShares(req.Vault.String(), updated.TotalShares)

	e.redeem(ctx, req.Vault, updated, req.Amount)
	return updated, nil
}

// Vault reads the vault stored at addr.
func (e *Engine) Vault(ctx context.Context, addr ledger.Address) (Vault, error) {
	return e.store.GetVault(ctx, addr)
}

// VaultFor reads the vault of authority.
func (e *Engine) VaultFor(ctx context.Context, authority ledger.Address) (ledger.Address, Vault, error) {
	addr, _, err := DeriveVaultAddress(e.programID, authority)
	if err != nil {
		return ledger.Address{}, Vault{}, err
	}
	v, err := e.store.GetVault(ctx, addr)
	if err != nil {
		return ledger.Address{}, Vault{}, err
	}
	return addr, v, nil
}

// loadAuthorized reads the vault at addr and checks that caller is its authority
// and that addr re-derives from the stored authority and bump.
func (e *Engine) loadAuthorized(ctx context.Context, tx Tx, caller, addr ledger.Address) (Vault, Capability, error) {
	v, err := tx.GetVault(ctx, addr)
	if err != nil {
		return Vault{}, Capability{}, err
	}
	if caller != v.Authority {
		return Vault{}, Capability{}, fmt.Errorf("%w: %s is not the authority of vault %s", ErrUnauthorized, caller, addr)
	}
	capability, err := v.Capability(e.programID, addr)
	if err != nil {
		return Vault{}, Capability{}, err
	}
	return v, capability, nil
}

// write stores the updated vault and the ledger write set of t in tx.
func (e *Engine) write(ctx context.Context, tx Tx, addr ledger.Address, v Vault, t *ledger.Txn) error {
	if err := tx.UpdateVault(ctx, addr, v); err != nil {
		return err
	}
	return tx.ApplyLedger(ctx, t.Changes())
}

// settle finishes the staged ledger Txn once the store transaction is decided:
// discarded if it failed, applied to the in-memory Ledger if it committed.
func (e *Engine) settle(t *ledger.Txn, err error) error {
	if t == nil {
		return err
	}
	if err != nil {
		t.Rollback()
		return err
	}
	return t.Apply()
}

func (e *Engine) logRedemption(_ context.Context, addr ledger.Address, v Vault, burned uint64) {
	e.log.Info().
		Str("vault", addr.String()).
		Str("authority", v.Authority.String()).
		Uint64("burned", burned).
		Msg("redemption pending oracle callback")
}

func (e *Engine) opLogger(op string, caller ledger.Address) zerolog.Logger {
	return e.log.With().
		Str("op", op).
		Str("op_id", uuid.NewString()).
		Str("caller", caller.String()).
		Logger()
}

func (e *Engine) fail(log zerolog.Logger, op string, err error) error {
	log.Warn().Err(err).Int("code", Code(err)).Msg("operation rejected")
	e.metrics.RecordError(op, errorKind(err))
	return err
}

func errorKind(err error) string {
	switch Code(err) {
	case CodeInvalidProof:
		return "invalid_proof"
	case CodeMathOverflow:
		return "math_overflow"
	case CodeInvalidZkProof:
		return "invalid_zk_proof"
	case CodeAlreadyExists:
		return "already_exists"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeNotFound:
		return "not_found"
	case CodeInvalidAccount:
		return "invalid_account"
	default:
		return "internal"
	}
}
