package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tokenforge/tokenforge/internal/token"
)

// PostgresBank persists native-currency balances in PostgreSQL. Amounts are
// stored as numeric(78,0), wide enough for the full 256-bit range.
type PostgresBank struct {
	db *pgxpool.Pool
}

// NewPostgresBank constructs a Postgres-backed bank implementation.
func NewPostgresBank(db *pgxpool.Pool) *PostgresBank {
	return &PostgresBank{db: db}
}

// EnsureAccount guarantees an account row exists for the address.
func (b *PostgresBank) EnsureAccount(ctx context.Context, addr token.Address) error {
	if addr.IsZero() {
		return ErrUnknownAccount
	}
	_, err := b.db.Exec(ctx, `INSERT INTO native_accounts (address, balance) VALUES ($1, 0)
        ON CONFLICT (address) DO NOTHING`, string(addr))
	return err
}

// Balance returns the native balance for the address.
func (b *PostgresBank) Balance(ctx context.Context, addr token.Address) (*uint256.Int, error) {
	var raw string
	err := b.db.QueryRow(ctx, `SELECT balance::text FROM native_accounts WHERE address = $1`,
		string(addr)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}
	balance, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode balance for %s: %w", addr, err)
	}
	return balance, nil
}

// Deposit credits the address, provisioning the account when missing.
func (b *PostgresBank) Deposit(ctx context.Context, addr token.Address, amount *uint256.Int) error {
	if addr.IsZero() {
		return ErrUnknownAccount
	}
	_, err := b.db.Exec(ctx, `INSERT INTO native_accounts (address, balance) VALUES ($1, $2::numeric)
        ON CONFLICT (address) DO UPDATE SET balance = native_accounts.balance + EXCLUDED.balance`,
		string(addr), amount.Dec())
	return err
}

// Transfer atomically moves amount between two provisioned accounts.
func (b *PostgresBank) Transfer(ctx context.Context, from, to token.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromBalance, err := balanceForUpdate(ctx, tx, from)
	if err != nil {
		return err
	}
	if _, err := balanceForUpdate(ctx, tx, to); err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	if _, err := tx.Exec(ctx, `UPDATE native_accounts SET balance = balance - $2::numeric WHERE address = $1`,
		string(from), amount.Dec()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE native_accounts SET balance = balance + $2::numeric WHERE address = $1`,
		string(to), amount.Dec()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func balanceForUpdate(ctx context.Context, tx pgx.Tx, addr token.Address) (*uint256.Int, error) {
	var raw string
	err := tx.QueryRow(ctx, `SELECT balance::text FROM native_accounts WHERE address = $1 FOR UPDATE`,
		string(addr)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}
	balance, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode balance for %s: %w", addr, err)
	}
	return balance, nil
}
