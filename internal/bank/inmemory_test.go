package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/tokenforge/tokenforge/internal/token"
)

func TestInMemoryBank_TransferMaintainsBalance(t *testing.T) {
	b := NewInMemory()
	ctx := context.Background()

	if err := b.EnsureAccount(ctx, "0xaaaa"); err != nil {
		t.Fatalf("ensure account a: %v", err)
	}
	if err := b.EnsureAccount(ctx, "0xbbbb"); err != nil {
		t.Fatalf("ensure account b: %v", err)
	}
	SeedBalance(b, "0xaaaa", 10_000)

	if err := b.Transfer(ctx, "0xaaaa", "0xbbbb", uint256.NewInt(1_500)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	fromBal, err := b.Balance(ctx, "0xaaaa")
	if err != nil {
		t.Fatalf("balance a: %v", err)
	}
	toBal, err := b.Balance(ctx, "0xbbbb")
	if err != nil {
		t.Fatalf("balance b: %v", err)
	}
	if fromBal.Uint64() != 8_500 || toBal.Uint64() != 1_500 {
		t.Fatalf("unexpected balances: from=%s to=%s", fromBal.Dec(), toBal.Dec())
	}

	total := new(uint256.Int).Add(fromBal, toBal)
	if total.Uint64() != 10_000 {
		t.Fatalf("bank not balanced, total=%s", total.Dec())
	}
}

func TestInMemoryBank_InsufficientBalance(t *testing.T) {
	b := NewInMemory()
	ctx := context.Background()
	b.EnsureAccount(ctx, "0xaaaa")
	b.EnsureAccount(ctx, "0xbbbb")
	SeedBalance(b, "0xaaaa", 100)

	if err := b.Transfer(ctx, "0xaaaa", "0xbbbb", uint256.NewInt(500)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	bal, _ := b.Balance(ctx, "0xaaaa")
	if bal.Uint64() != 100 {
		t.Fatalf("failed transfer mutated state, balance=%s", bal.Dec())
	}
}

func TestInMemoryBank_UnknownAccount(t *testing.T) {
	b := NewInMemory()
	ctx := context.Background()
	b.EnsureAccount(ctx, "0xaaaa")
	SeedBalance(b, "0xaaaa", 100)

	if err := b.Transfer(ctx, "0xaaaa", "0xmissing", uint256.NewInt(50)); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
	if _, err := b.Balance(ctx, "0xmissing"); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}

	bal, _ := b.Balance(ctx, "0xaaaa")
	if bal.Uint64() != 100 {
		t.Fatalf("rejected transfer mutated sender, balance=%s", bal.Dec())
	}
}

func TestInMemoryBank_DepositProvisionsAccount(t *testing.T) {
	b := NewInMemory()
	ctx := context.Background()

	if err := b.Deposit(ctx, "0xaaaa", uint256.NewInt(2_000)); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := b.Deposit(ctx, "0xaaaa", uint256.NewInt(500)); err != nil {
		t.Fatalf("second deposit failed: %v", err)
	}

	bal, err := b.Balance(ctx, "0xaaaa")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Uint64() != 2_500 {
		t.Fatalf("expected balance 2500, got %s", bal.Dec())
	}

	if err := b.Deposit(ctx, token.Zero, uint256.NewInt(1)); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount for zero address, got %v", err)
	}
}
