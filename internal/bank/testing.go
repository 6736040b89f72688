package bank

import (
	"github.com/holiman/uint256"

	"github.com/tokenforge/tokenforge/internal/token"
)

// SeedBalance is a test helper that seeds the native balance for an account
// when using the in-memory bank.
func SeedBalance(b Bank, addr token.Address, amount uint64) {
	if mem, ok := b.(*inMemoryBank); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[addr] = uint256.NewInt(amount)
	}
}
