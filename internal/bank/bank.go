package bank

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"github.com/tokenforge/tokenforge/internal/token"
)

var (
	// ErrInsufficientBalance occurs when a debit exceeds the account's native balance.
	ErrInsufficientBalance = errors.New("insufficient native balance")

	// ErrUnknownAccount occurs when an operation names an account that was
	// never provisioned. A transfer into an unknown account is a rejected
	// transfer: the whole posting fails and no state changes.
	ErrUnknownAccount = errors.New("unknown account")
)

// Bank is the native-currency account store used for creation fee payment and
// fee collection. Implementations must apply each posting atomically.
type Bank interface {
	EnsureAccount(ctx context.Context, addr token.Address) error
	Balance(ctx context.Context, addr token.Address) (*uint256.Int, error)
	Deposit(ctx context.Context, addr token.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, from, to token.Address, amount *uint256.Int) error
}
