package bank

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"github.com/tokenforge/tokenforge/internal/token"
)

type inMemoryBank struct {
	mu       sync.RWMutex
	balances map[token.Address]*uint256.Int
}

// NewInMemory creates a concurrency-safe in-memory bank useful for unit tests
// and development mode.
func NewInMemory() Bank {
	return &inMemoryBank{balances: make(map[token.Address]*uint256.Int)}
}

func (b *inMemoryBank) EnsureAccount(_ context.Context, addr token.Address) error {
	if addr.IsZero() {
		return ErrUnknownAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.balances[addr]; !exists {
		b.balances[addr] = uint256.NewInt(0)
	}
	return nil
}

func (b *inMemoryBank) Balance(_ context.Context, addr token.Address) (*uint256.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	balance, exists := b.balances[addr]
	if !exists {
		return nil, ErrUnknownAccount
	}
	return balance.Clone(), nil
}

func (b *inMemoryBank) Deposit(_ context.Context, addr token.Address, amount *uint256.Int) error {
	if addr.IsZero() {
		return ErrUnknownAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	current, exists := b.balances[addr]
	if !exists {
		current = uint256.NewInt(0)
	}
	b.balances[addr] = new(uint256.Int).Add(current, amount)
	return nil
}

func (b *inMemoryBank) Transfer(_ context.Context, from, to token.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	fromBalance, ok := b.balances[from]
	if !ok {
		return ErrUnknownAccount
	}
	toBalance, ok := b.balances[to]
	if !ok {
		return ErrUnknownAccount
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	b.balances[from] = new(uint256.Int).Sub(fromBalance, amount)
	b.balances[to] = new(uint256.Int).Add(toBalance, amount)
	return nil
}
