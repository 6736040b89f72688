package token

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"github.com/tokenforge/tokenforge/internal/access"
	"github.com/tokenforge/tokenforge/internal/event"
)

const (
	// TaxRateScale is the fixed precision denominator: rates are expressed in
	// hundredths of a percent, so rate 500 taxes 5% of every transfer.
	TaxRateScale = 10_000

	// MaxTaxRate is the rate ceiling, fixed for the life of every instance.
	MaxTaxRate = 1_000
)

var (
	// ErrZeroAddress occurs when a required account parameter is the null account.
	ErrZeroAddress = errors.New("zero address")

	// ErrZeroAmount occurs when a required amount parameter is zero.
	ErrZeroAmount = errors.New("zero amount")

	// ErrInvalidRate occurs when a proposed tax rate exceeds MaxTaxRate.
	ErrInvalidRate = errors.New("tax rate exceeds maximum")

	// ErrInsufficientBalance occurs when a debit exceeds the account's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance occurs when a delegated transfer exceeds the
	// spender's remaining allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrAlreadyInitialized occurs on a second initialization attempt.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrNotInitialized occurs when a mutating operation runs before initialization.
	ErrNotInitialized = errors.New("not initialized")
)

// Token is one deployed taxed-transfer ledger instance. Every public
// operation runs atomically under the instance lock; distinct instances share
// no state. Instances are produced by cloning a Blueprint, never constructed
// directly, and are initialized exactly once.
type Token struct {
	mu      sync.RWMutex
	address Address
	bus     event.Bus

	initialized bool
	name        string
	symbol      string

	rate        uint64
	beneficiary Address
	owner       *access.Ownable

	noTaxSender    map[Address]bool
	noTaxRecipient map[Address]bool

	balances    map[Address]*uint256.Int
	allowances  map[Address]map[Address]*uint256.Int
	totalSupply *uint256.Int
}

// Blueprint is the pure template from which instances are cloned. It carries
// only the shared wiring; all per-instance state lives in the clone.
type Blueprint struct {
	Bus event.Bus
}

// Clone produces an uninitialized instance bound to the given address.
func (b Blueprint) Clone(addr Address) *Token {
	return &Token{
		address:        addr,
		bus:            b.Bus,
		noTaxSender:    make(map[Address]bool),
		noTaxRecipient: make(map[Address]bool),
		balances:       make(map[Address]*uint256.Int),
		allowances:     make(map[Address]map[Address]*uint256.Int),
		totalSupply:    uint256.NewInt(0),
	}
}

// InitParams carries the one-shot initialization arguments.
type InitParams struct {
	Name            string
	Symbol          string
	InitialSupply   *uint256.Int
	TransferTaxRate uint64
	TaxBeneficiary  Address
	Owner           Address
}

// Initialize sets the immutable identity and the initial tax policy, credits
// the owner with the initial supply, and exempts the owner on both sides of
// the tax split. Callable exactly once per instance.
func (t *Token) Initialize(p InitParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return ErrAlreadyInitialized
	}
	if p.TransferTaxRate > MaxTaxRate {
		return ErrInvalidRate
	}
	if p.TaxBeneficiary.IsZero() || p.Owner.IsZero() {
		return ErrZeroAddress
	}

	t.initialized = true
	t.name = p.Name
	t.symbol = p.Symbol
	t.rate = p.TransferTaxRate
	t.beneficiary = p.TaxBeneficiary
	t.owner = access.NewOwnable(string(p.Owner))
	t.noTaxSender[p.Owner] = true
	t.noTaxRecipient[p.Owner] = true

	if p.InitialSupply != nil && !p.InitialSupply.IsZero() {
		t.balances[p.Owner] = p.InitialSupply.Clone()
		t.totalSupply = p.InitialSupply.Clone()
	}

	t.emit(event.TypeTaxRateUpdated, map[string]string{"rate": uitoa(t.rate)})
	t.emit(event.TypeTaxBeneficiaryUpdate, map[string]string{"previous": "", "beneficiary": string(p.TaxBeneficiary)})
	t.emit(event.TypeNoTaxSenderSet, map[string]string{"address": string(p.Owner), "exempt": "true"})
	t.emit(event.TypeNoTaxRecipientSet, map[string]string{"address": string(p.Owner), "exempt": "true"})
	return nil
}

// Mint credits new value to an account. Owner only; minting is never taxed.
func (t *Token) Mint(caller, to Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if err := t.owner.Require(string(caller)); err != nil {
		return err
	}
	if to.IsZero() {
		return ErrZeroAddress
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	t.credit(to, amount)
	t.totalSupply = new(uint256.Int).Add(t.totalSupply, amount)
	t.emit(event.TypeMint, map[string]string{"to": string(to), "amount": amount.Dec()})
	return nil
}

// Burn destroys value from the caller's own balance. Never taxed.
func (t *Token) Burn(caller Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if t.balanceOf(caller).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	t.debit(caller, amount)
	t.totalSupply = new(uint256.Int).Sub(t.totalSupply, amount)
	t.emit(event.TypeBurn, map[string]string{"from": string(caller), "amount": amount.Dec()})
	return nil
}

// Transfer moves value from sender to recipient, diverting the tax portion to
// the beneficiary unless an exemption applies.
func (t *Token) Transfer(from, to Address, value *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	return t.move(from, to, value)
}

// Approve grants spender the right to move up to value from owner's balance
// via TransferFrom. A later call replaces the previous allowance.
func (t *Token) Approve(owner, spender Address, value *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}

	if value == nil {
		value = uint256.NewInt(0)
	}
	grants, ok := t.allowances[owner]
	if !ok {
		grants = make(map[Address]*uint256.Int)
		t.allowances[owner] = grants
	}
	grants[spender] = value.Clone()
	t.emit(event.TypeApproval, map[string]string{
		"owner": string(owner), "spender": string(spender), "value": value.Dec(),
	})
	return nil
}

// TransferFrom moves value from an account that previously approved the
// spender. The tax split is identical to Transfer; there is no way to route
// around it except via the exemption sets.
func (t *Token) TransferFrom(spender, from, to Address, value *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if value == nil {
		value = uint256.NewInt(0)
	}
	remaining := t.allowance(from, spender)
	if remaining.Cmp(value) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.move(from, to, value); err != nil {
		return err
	}
	t.allowances[from][spender] = new(uint256.Int).Sub(remaining, value)
	return nil
}

// UpdateTransferTaxRate replaces the tax rate. Owner only; the ceiling never changes.
func (t *Token) UpdateTransferTaxRate(caller Address, newRate uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if err := t.owner.Require(string(caller)); err != nil {
		return err
	}
	if newRate > MaxTaxRate {
		return ErrInvalidRate
	}

	previous := t.rate
	t.rate = newRate
	t.emit(event.TypeTaxRateUpdated, map[string]string{
		"previous": uitoa(previous), "rate": uitoa(newRate),
	})
	return nil
}

// UpdateTaxBeneficiary installs a new beneficiary. The previous beneficiary
// loses its exemptions and the new one gains them in the same operation, so
// the beneficiary never taxes itself when redistributing funds.
func (t *Token) UpdateTaxBeneficiary(caller, newBeneficiary Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if err := t.owner.Require(string(caller)); err != nil {
		return err
	}
	if newBeneficiary.IsZero() {
		return ErrZeroAddress
	}

	previous := t.beneficiary
	delete(t.noTaxSender, previous)
	delete(t.noTaxRecipient, previous)
	t.emit(event.TypeNoTaxSenderSet, map[string]string{"address": string(previous), "exempt": "false"})
	t.emit(event.TypeNoTaxRecipientSet, map[string]string{"address": string(previous), "exempt": "false"})

	t.beneficiary = newBeneficiary
	t.noTaxSender[newBeneficiary] = true
	t.noTaxRecipient[newBeneficiary] = true
	t.emit(event.TypeNoTaxSenderSet, map[string]string{"address": string(newBeneficiary), "exempt": "true"})
	t.emit(event.TypeNoTaxRecipientSet, map[string]string{"address": string(newBeneficiary), "exempt": "true"})
	t.emit(event.TypeTaxBeneficiaryUpdate, map[string]string{
		"previous": string(previous), "beneficiary": string(newBeneficiary),
	})
	return nil
}

// SetNoTaxSenderAddr toggles the sender-side exemption for an address. Owner only.
func (t *Token) SetNoTaxSenderAddr(caller, addr Address, exempt bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setExemption(caller, addr, exempt, t.noTaxSender, event.TypeNoTaxSenderSet)
}

// SetNoTaxRecipientAddr toggles the recipient-side exemption for an address. Owner only.
func (t *Token) SetNoTaxRecipientAddr(caller, addr Address, exempt bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.setExemption(caller, addr, exempt, t.noTaxRecipient, event.TypeNoTaxRecipientSet)
}

// TransferOwnership hands the owner capability to a new holder.
func (t *Token) TransferOwnership(caller, newOwner Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.initialized {
		return ErrNotInitialized
	}
	if newOwner.IsZero() {
		return ErrZeroAddress
	}
	if err := t.owner.Transfer(string(caller), string(newOwner)); err != nil {
		return err
	}
	t.emit(event.TypeOwnershipTransferred, map[string]string{
		"previous": string(caller), "owner": string(newOwner),
	})
	return nil
}

// Address returns the instance address assigned at clone time.
func (t *Token) Address() Address { return t.address }

// Initialized reports whether Initialize has completed.
func (t *Token) Initialized() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.initialized
}

// Name returns the immutable token name.
func (t *Token) Name() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.name
}

// Symbol returns the immutable token symbol.
func (t *Token) Symbol() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.symbol
}

// TransferTaxRate returns the current rate in hundredths of a percent.
func (t *Token) TransferTaxRate() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rate
}

// TaxBeneficiary returns the account receiving the diverted tax portion.
func (t *Token) TaxBeneficiary() Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.beneficiary
}

// Owner returns the current owner capability holder, or the zero address
// before initialization.
func (t *Token) Owner() Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.owner == nil {
		return Zero
	}
	return Address(t.owner.Owner())
}

// BalanceOf returns the balance of an account. Unknown accounts hold zero.
func (t *Token) BalanceOf(addr Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceOf(addr).Clone()
}

// TotalSupply returns cumulative minted minus burned value.
func (t *Token) TotalSupply() *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply.Clone()
}

// Allowance returns the remaining delegated spend for the owner/spender pair.
func (t *Token) Allowance(owner, spender Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowance(owner, spender).Clone()
}

// IsNoTaxSender reports sender-side exemption membership.
func (t *Token) IsNoTaxSender(addr Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.noTaxSender[addr]
}

// IsNoTaxRecipient reports recipient-side exemption membership.
func (t *Token) IsNoTaxRecipient(addr Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.noTaxRecipient[addr]
}

// move applies the tax split. Callers hold the write lock.
//
// taxAmount = floor(value * rate / TaxRateScale). When the tax rounds to
// zero, either endpoint is exempt, or either endpoint is the null account,
// the full value moves in a single posting. Value is split, never destroyed.
func (t *Token) move(from, to Address, value *uint256.Int) error {
	if value == nil {
		value = uint256.NewInt(0)
	}

	tax := new(uint256.Int).Mul(value, uint256.NewInt(t.rate))
	tax.Div(tax, uint256.NewInt(TaxRateScale))

	if t.balanceOf(from).Cmp(value) < 0 {
		return ErrInsufficientBalance
	}

	if tax.IsZero() || t.noTaxSender[from] || t.noTaxRecipient[to] || from.IsZero() || to.IsZero() {
		t.debit(from, value)
		t.credit(to, value)
		t.emit(event.TypeTransfer, map[string]string{
			"from": string(from), "to": string(to), "value": value.Dec(), "tax": "0",
		})
		return nil
	}

	net := new(uint256.Int).Sub(value, tax)
	t.debit(from, value)
	t.credit(to, net)
	t.credit(t.beneficiary, tax)
	t.emit(event.TypeTransfer, map[string]string{
		"from": string(from), "to": string(to), "value": value.Dec(),
		"net": net.Dec(), "tax": tax.Dec(), "beneficiary": string(t.beneficiary),
	})
	return nil
}

func (t *Token) setExemption(caller, addr Address, exempt bool, set map[Address]bool, eventType string) error {
	if !t.initialized {
		return ErrNotInitialized
	}
	if err := t.owner.Require(string(caller)); err != nil {
		return err
	}
	if addr.IsZero() {
		return ErrZeroAddress
	}

	if exempt {
		set[addr] = true
	} else {
		delete(set, addr)
	}
	t.emit(eventType, map[string]string{"address": string(addr), "exempt": btoa(exempt)})
	return nil
}

func (t *Token) balanceOf(addr Address) *uint256.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return uint256.NewInt(0)
}

func (t *Token) allowance(owner, spender Address) *uint256.Int {
	if grants, ok := t.allowances[owner]; ok {
		if a, ok := grants[spender]; ok {
			return a
		}
	}
	return uint256.NewInt(0)
}

func (t *Token) credit(addr Address, amount *uint256.Int) {
	t.balances[addr] = new(uint256.Int).Add(t.balanceOf(addr), amount)
}

func (t *Token) debit(addr Address, amount *uint256.Int) {
	t.balances[addr] = new(uint256.Int).Sub(t.balanceOf(addr), amount)
}

func (t *Token) emit(eventType string, attrs map[string]string) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(event.Event{Type: eventType, Token: string(t.address), Attrs: attrs})
}
