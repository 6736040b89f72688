package factory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/tokenforge/tokenforge/internal/access"
	"github.com/tokenforge/tokenforge/internal/bank"
	"github.com/tokenforge/tokenforge/internal/event"
	"github.com/tokenforge/tokenforge/internal/token"
)

var (
	// ErrIncorrectFee occurs when the payment attached to a creation call does
	// not exactly equal the configured creation fee.
	ErrIncorrectFee = errors.New("incorrect creation fee")

	// ErrUnknownToken occurs when an operation names an address the factory
	// never deployed.
	ErrUnknownToken = errors.New("unknown token")
)

// CreateParams carries the initialization arguments for a new token instance.
type CreateParams struct {
	Name            string
	Symbol          string
	InitialSupply   *uint256.Int
	TransferTaxRate uint64
	TaxBeneficiary  token.Address
	Owner           token.Address
}

// Config wires a factory instance.
type Config struct {
	Owner       token.Address
	Treasury    token.Address
	CreationFee *uint256.Int
	Template    token.Blueprint
	Bank        bank.Bank
	Repo        Repository
	Bus         event.Bus
}

// Factory deploys independent token instances from the template, charging a
// fixed creation fee and recording each deployment under the next sequential
// identifier. It starts paused so the owner can verify setup before enabling
// public creation. The factory owns no deployed instance: each is
// independently owned by the address passed at creation time.
type Factory struct {
	mu    sync.Mutex
	guard access.EntryGuard

	owner    *access.Ownable
	gate     *access.Gate
	template token.Blueprint
	bank     bank.Bank
	repo     Repository
	bus      event.Bus

	// account is the factory's own address: it accrues creation fees in the
	// bank and holds any token balances swept by CollectTokens.
	account token.Address

	treasury    token.Address
	creationFee *uint256.Int
	counter     uint64
	registry    map[uint64]token.Address
	instances   map[token.Address]*token.Token
}

// New builds a paused factory owned by cfg.Owner.
func New(ctx context.Context, cfg Config) (*Factory, error) {
	if cfg.Owner.IsZero() {
		return nil, fmt.Errorf("factory owner: %w", token.ErrZeroAddress)
	}
	if cfg.Treasury.IsZero() {
		return nil, fmt.Errorf("factory treasury: %w", token.ErrZeroAddress)
	}
	if cfg.Bank == nil {
		return nil, errors.New("bank is required")
	}

	fee := cfg.CreationFee
	if fee == nil {
		fee = uint256.NewInt(0)
	}

	account := token.NewAddress()
	if err := cfg.Bank.EnsureAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("provision factory account: %w", err)
	}

	return &Factory{
		owner:       access.NewOwnable(string(cfg.Owner)),
		gate:        access.NewGate(true),
		template:    cfg.Template,
		bank:        cfg.Bank,
		repo:        cfg.Repo,
		bus:         cfg.Bus,
		account:     account,
		treasury:    cfg.Treasury,
		creationFee: fee.Clone(),
		registry:    make(map[uint64]token.Address),
		instances:   make(map[token.Address]*token.Token),
	}, nil
}

// CreateToken clones the template into a new independent instance,
// initializes it, and records it under the next sequential identifier. The
// attached payment must exactly equal the creation fee; it is debited from
// the caller's native account. The whole operation succeeds or leaves no
// state behind.
func (f *Factory) CreateToken(ctx context.Context, caller token.Address, p CreateParams, payment *uint256.Int) (token.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard.Enter(); err != nil {
		return token.Zero, err
	}
	defer f.guard.Exit()

	if err := f.gate.Require(); err != nil {
		return token.Zero, err
	}
	if caller.IsZero() || p.TaxBeneficiary.IsZero() || p.Owner.IsZero() {
		return token.Zero, token.ErrZeroAddress
	}
	// Pre-validate the rate so initialization cannot fail after the fee moved.
	if p.TransferTaxRate > token.MaxTaxRate {
		return token.Zero, token.ErrInvalidRate
	}

	if payment == nil {
		payment = uint256.NewInt(0)
	}
	if payment.Cmp(f.creationFee) != 0 {
		return token.Zero, ErrIncorrectFee
	}
	if !payment.IsZero() {
		if err := f.bank.Transfer(ctx, caller, f.account, payment); err != nil {
			return token.Zero, err
		}
	}

	addr := token.NewAddress()
	instance := f.template.Clone(addr)
	if err := instance.Initialize(token.InitParams{
		Name:            p.Name,
		Symbol:          p.Symbol,
		InitialSupply:   p.InitialSupply,
		TransferTaxRate: p.TransferTaxRate,
		TaxBeneficiary:  p.TaxBeneficiary,
		Owner:           p.Owner,
	}); err != nil {
		f.refund(ctx, caller, payment)
		return token.Zero, err
	}

	id := f.counter + 1
	if f.repo != nil {
		record := Record{
			ID:        id,
			Address:   addr,
			Name:      p.Name,
			Symbol:    p.Symbol,
			Owner:     p.Owner,
			CreatedAt: time.Now().UTC(),
		}
		if err := f.repo.Create(ctx, record); err != nil {
			f.refund(ctx, caller, payment)
			return token.Zero, err
		}
	}

	f.counter = id
	f.registry[id] = addr
	f.instances[addr] = instance

	f.emit(event.TypeTokenCreated, map[string]string{
		"id":      strconv.FormatUint(id, 10),
		"address": string(addr),
		"creator": string(caller),
		"name":    p.Name,
		"symbol":  p.Symbol,
	})
	return addr, nil
}

// SetTreasury replaces the treasury account. Owner only.
func (f *Factory) SetTreasury(caller, addr token.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.owner.Require(string(caller)); err != nil {
		return err
	}
	if addr.IsZero() {
		return token.ErrZeroAddress
	}

	previous := f.treasury
	f.treasury = addr
	f.emit(event.TypeTreasuryUpdated, map[string]string{
		"previous": string(previous), "treasury": string(addr),
	})
	return nil
}

// SetCreationFee replaces the creation fee. Owner only.
func (f *Factory) SetCreationFee(caller token.Address, fee *uint256.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.owner.Require(string(caller)); err != nil {
		return err
	}
	if fee == nil {
		fee = uint256.NewInt(0)
	}

	previous := f.creationFee
	f.creationFee = fee.Clone()
	f.emit(event.TypeCreationFeeUpdated, map[string]string{
		"previous": previous.Dec(), "fee": fee.Dec(),
	})
	return nil
}

// CollectFees sweeps the factory's entire accrued native balance to the
// treasury. Owner only. A rejected transfer leaves all state unchanged.
func (f *Factory) CollectFees(ctx context.Context, caller token.Address) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard.Enter(); err != nil {
		return nil, err
	}
	defer f.guard.Exit()

	if err := f.owner.Require(string(caller)); err != nil {
		return nil, err
	}

	balance, err := f.bank.Balance(ctx, f.account)
	if err != nil {
		return nil, err
	}
	if balance.IsZero() {
		return uint256.NewInt(0), nil
	}
	if err := f.bank.Transfer(ctx, f.account, f.treasury, balance); err != nil {
		return nil, err
	}

	f.emit(event.TypeFeesCollected, map[string]string{
		"treasury": string(f.treasury), "amount": balance.Dec(),
	})
	return balance, nil
}

// CollectTokens sweeps the factory's entire balance in a deployed token
// instance to the treasury. Owner only. The instance's own transfer rules
// apply, tax included.
func (f *Factory) CollectTokens(caller, tokenAddr token.Address) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.owner.Require(string(caller)); err != nil {
		return nil, err
	}
	instance, ok := f.instances[tokenAddr]
	if !ok {
		return nil, ErrUnknownToken
	}

	balance := instance.BalanceOf(f.account)
	if balance.IsZero() {
		return uint256.NewInt(0), nil
	}
	if err := instance.Transfer(f.account, f.treasury, balance); err != nil {
		return nil, err
	}

	f.emit(event.TypeTokensCollected, map[string]string{
		"token": string(tokenAddr), "treasury": string(f.treasury), "amount": balance.Dec(),
	})
	return balance, nil
}

// Pause closes the creation gate. Owner only.
func (f *Factory) Pause(caller token.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.owner.Require(string(caller)); err != nil {
		return err
	}
	if err := f.gate.Pause(); err != nil {
		return err
	}
	f.emit(event.TypePaused, nil)
	return nil
}

// Unpause opens the creation gate. Owner only.
func (f *Factory) Unpause(caller token.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.owner.Require(string(caller)); err != nil {
		return err
	}
	if err := f.gate.Unpause(); err != nil {
		return err
	}
	f.emit(event.TypeUnpaused, nil)
	return nil
}

// TransferOwnership hands the factory owner capability to a new holder.
func (f *Factory) TransferOwnership(caller, newOwner token.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if newOwner.IsZero() {
		return token.ErrZeroAddress
	}
	if err := f.owner.Transfer(string(caller), string(newOwner)); err != nil {
		return err
	}
	f.emit(event.TypeOwnershipTransferred, map[string]string{
		"previous": string(caller), "owner": string(newOwner),
	})
	return nil
}

// TokenByID returns the address recorded under the sequential identifier, or
// the zero address if the identifier was never assigned.
func (f *Factory) TokenByID(id uint64) token.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registry[id]
}

// TokenByAddress resolves a deployed instance for direct interaction.
func (f *Factory) TokenByAddress(addr token.Address) (*token.Token, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	instance, ok := f.instances[addr]
	return instance, ok
}

// Treasury returns the current treasury account.
func (f *Factory) Treasury() token.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.treasury
}

// CreationFee returns the current creation fee.
func (f *Factory) CreationFee() *uint256.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creationFee.Clone()
}

// TokenCounter returns the number of deployments so far.
func (f *Factory) TokenCounter() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter
}

// Paused reports the creation gate state.
func (f *Factory) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gate.Paused()
}

// Owner returns the current owner capability holder.
func (f *Factory) Owner() token.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return token.Address(f.owner.Owner())
}

// Account returns the factory's own address used for fee accrual and sweeps.
func (f *Factory) Account() token.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account
}

// refund returns a debited payment after a failed creation. Best effort: the
// debit just succeeded, so the reverse posting cannot lack funds.
func (f *Factory) refund(ctx context.Context, caller token.Address, payment *uint256.Int) {
	if payment.IsZero() {
		return
	}
	_ = f.bank.Transfer(ctx, f.account, caller, payment)
}

func (f *Factory) emit(eventType string, attrs map[string]string) {
	if f.bus == nil {
		return
	}
	f.bus.Publish(event.Event{Type: eventType, Attrs: attrs})
}
