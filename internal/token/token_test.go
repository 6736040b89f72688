package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/tokenforge/tokenforge/internal/access"
)

const (
	owner       Address = "0xowner"
	beneficiary Address = "0xbeneficiary"
	alice       Address = "0xalice"
	bob         Address = "0xbob"
)

func newTestToken(t *testing.T, rate uint64, supply uint64) *Token {
	t.Helper()
	tok := Blueprint{}.Clone(NewAddress())
	err := tok.Initialize(InitParams{
		Name:            "Forge Token",
		Symbol:          "FORGE",
		InitialSupply:   uint256.NewInt(supply),
		TransferTaxRate: rate,
		TaxBeneficiary:  beneficiary,
		Owner:           owner,
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return tok
}

func fund(t *testing.T, tok *Token, to Address, amount uint64) {
	t.Helper()
	if err := tok.Mint(owner, to, uint256.NewInt(amount)); err != nil {
		t.Fatalf("mint %d to %s: %v", amount, to, err)
	}
}

func TestInitializeValidation(t *testing.T) {
	tok := Blueprint{}.Clone(NewAddress())

	err := tok.Initialize(InitParams{TransferTaxRate: MaxTaxRate + 1, TaxBeneficiary: beneficiary, Owner: owner})
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	err = tok.Initialize(InitParams{TransferTaxRate: 500, TaxBeneficiary: Zero, Owner: owner})
	if !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if tok.Initialized() {
		t.Fatal("failed initialization marked the instance initialized")
	}
}

func TestInitializeOnceOnly(t *testing.T) {
	tok := newTestToken(t, 500, 10_000)

	err := tok.Initialize(InitParams{
		Name: "Other", Symbol: "OTH", TransferTaxRate: 100,
		TaxBeneficiary: alice, Owner: alice,
	})
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}

	// Prior state untouched.
	if tok.Name() != "Forge Token" || tok.TransferTaxRate() != 500 {
		t.Fatalf("re-initialization altered state: name=%s rate=%d", tok.Name(), tok.TransferTaxRate())
	}
	if tok.TaxBeneficiary() != beneficiary {
		t.Fatalf("re-initialization altered beneficiary: %s", tok.TaxBeneficiary())
	}
	if tok.BalanceOf(owner).Uint64() != 10_000 {
		t.Fatalf("re-initialization altered balances: %s", tok.BalanceOf(owner).Dec())
	}
}

func TestInitializeExemptsOwnerAndCreditsSupply(t *testing.T) {
	tok := newTestToken(t, 500, 10_000)

	if !tok.IsNoTaxSender(owner) || !tok.IsNoTaxRecipient(owner) {
		t.Fatal("owner not tax-exempt after initialization")
	}
	if tok.TotalSupply().Uint64() != 10_000 {
		t.Fatalf("expected supply 10000, got %s", tok.TotalSupply().Dec())
	}
	if tok.Owner() != owner {
		t.Fatalf("unexpected owner: %s", tok.Owner())
	}
}

func TestMintRequiresInitialization(t *testing.T) {
	tok := Blueprint{}.Clone(NewAddress())
	if err := tok.Mint(owner, owner, uint256.NewInt(1_000)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if !tok.BalanceOf(owner).IsZero() {
		t.Fatal("mint on uninitialized instance mutated balances")
	}
}

func TestMintValidation(t *testing.T) {
	tok := newTestToken(t, 500, 0)

	if err := tok.Mint(alice, bob, uint256.NewInt(100)); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := tok.Mint(owner, Zero, uint256.NewInt(100)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if err := tok.Mint(owner, bob, uint256.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}

	if err := tok.Mint(owner, bob, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if tok.BalanceOf(bob).Uint64() != 100 {
		t.Fatalf("expected balance 100, got %s", tok.BalanceOf(bob).Dec())
	}
	if tok.TotalSupply().Uint64() != 100 {
		t.Fatalf("expected supply 100, got %s", tok.TotalSupply().Dec())
	}
}

func TestBurn(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 1_000)

	if err := tok.Burn(alice, uint256.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if err := tok.Burn(alice, uint256.NewInt(5_000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if err := tok.Burn(alice, uint256.NewInt(400)); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	if tok.BalanceOf(alice).Uint64() != 600 {
		t.Fatalf("expected balance 600, got %s", tok.BalanceOf(alice).Dec())
	}
	if tok.TotalSupply().Uint64() != 600 {
		t.Fatalf("expected supply 600, got %s", tok.TotalSupply().Dec())
	}
}

func TestTransferAppliesTaxSplit(t *testing.T) {
	// rate=500 (5%, scale 10000), value=1000: tax=50, net=950.
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 1_000)

	if err := tok.Transfer(alice, bob, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if got := tok.BalanceOf(alice).Uint64(); got != 0 {
		t.Fatalf("sender balance: expected 0, got %d", got)
	}
	if got := tok.BalanceOf(bob).Uint64(); got != 950 {
		t.Fatalf("recipient balance: expected 950, got %d", got)
	}
	if got := tok.BalanceOf(beneficiary).Uint64(); got != 50 {
		t.Fatalf("beneficiary balance: expected 50, got %d", got)
	}

	// Value conserved: the three deltas sum to zero.
	total := tok.BalanceOf(alice)
	total.Add(total, tok.BalanceOf(bob))
	total.Add(total, tok.BalanceOf(beneficiary))
	if total.Uint64() != 1_000 {
		t.Fatalf("value not conserved, total=%s", total.Dec())
	}
}

func TestTransferTinyValueRoundsTaxToZero(t *testing.T) {
	// rate=500, value=19: floor(19*500/10000)=0, plain move.
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 19)

	if err := tok.Transfer(alice, bob, uint256.NewInt(19)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := tok.BalanceOf(bob).Uint64(); got != 19 {
		t.Fatalf("recipient balance: expected 19, got %d", got)
	}
	if !tok.BalanceOf(beneficiary).IsZero() {
		t.Fatalf("beneficiary taxed a rounding-to-zero transfer: %s", tok.BalanceOf(beneficiary).Dec())
	}
}

func TestTransferZeroRateSkipsTax(t *testing.T) {
	tok := newTestToken(t, 0, 0)
	fund(t, tok, alice, 1_000)

	if err := tok.Transfer(alice, bob, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := tok.BalanceOf(bob).Uint64(); got != 1_000 {
		t.Fatalf("recipient balance: expected 1000, got %d", got)
	}
	if !tok.BalanceOf(beneficiary).IsZero() {
		t.Fatal("beneficiary credited at zero rate")
	}
}

func TestTransferExemptSender(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 1_000)
	if err := tok.SetNoTaxSenderAddr(owner, alice, true); err != nil {
		t.Fatalf("set exemption: %v", err)
	}

	if err := tok.Transfer(alice, bob, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := tok.BalanceOf(bob).Uint64(); got != 1_000 {
		t.Fatalf("exempt sender taxed, recipient got %d", got)
	}
	if !tok.BalanceOf(beneficiary).IsZero() {
		t.Fatal("beneficiary credited despite sender exemption")
	}
}

func TestTransferExemptRecipient(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 1_000)
	if err := tok.SetNoTaxRecipientAddr(owner, bob, true); err != nil {
		t.Fatalf("set exemption: %v", err)
	}

	if err := tok.Transfer(alice, bob, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := tok.BalanceOf(bob).Uint64(); got != 1_000 {
		t.Fatalf("exempt recipient taxed, got %d", got)
	}
}

func TestTransferInsufficientBalanceBothBranches(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 100)

	// Taxed branch.
	if err := tok.Transfer(alice, bob, uint256.NewInt(500)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("taxed branch: expected ErrInsufficientBalance, got %v", err)
	}
	// Exempt branch.
	if err := tok.SetNoTaxSenderAddr(owner, alice, true); err != nil {
		t.Fatalf("set exemption: %v", err)
	}
	if err := tok.Transfer(alice, bob, uint256.NewInt(500)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("exempt branch: expected ErrInsufficientBalance, got %v", err)
	}

	if got := tok.BalanceOf(alice).Uint64(); got != 100 {
		t.Fatalf("failed transfer mutated sender balance: %d", got)
	}
	if !tok.BalanceOf(bob).IsZero() {
		t.Fatal("failed transfer credited recipient")
	}
}

func TestTransferFromAppliesSameSplit(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 1_000)

	spender := Address("0xspender")
	if err := tok.TransferFrom(spender, alice, bob, uint256.NewInt(1_000)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	if err := tok.Approve(alice, spender, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(spender, alice, bob, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("transferFrom failed: %v", err)
	}

	if got := tok.BalanceOf(bob).Uint64(); got != 950 {
		t.Fatalf("recipient balance: expected 950, got %d", got)
	}
	if got := tok.BalanceOf(beneficiary).Uint64(); got != 50 {
		t.Fatalf("beneficiary balance: expected 50, got %d", got)
	}
	if !tok.Allowance(alice, spender).IsZero() {
		t.Fatalf("allowance not consumed: %s", tok.Allowance(alice, spender).Dec())
	}
}

func TestTransferFromFailureKeepsAllowance(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	fund(t, tok, alice, 100)

	spender := Address("0xspender")
	if err := tok.Approve(alice, spender, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := tok.TransferFrom(spender, alice, bob, uint256.NewInt(1_000)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if tok.Allowance(alice, spender).Uint64() != 1_000 {
		t.Fatalf("failed transferFrom consumed allowance: %s", tok.Allowance(alice, spender).Dec())
	}
}

func TestUpdateTransferTaxRate(t *testing.T) {
	tok := newTestToken(t, 500, 0)

	if err := tok.UpdateTransferTaxRate(alice, 100); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := tok.UpdateTransferTaxRate(owner, MaxTaxRate+1); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	if tok.TransferTaxRate() != 500 {
		t.Fatalf("failed update altered rate: %d", tok.TransferTaxRate())
	}

	if err := tok.UpdateTransferTaxRate(owner, MaxTaxRate); err != nil {
		t.Fatalf("update to ceiling failed: %v", err)
	}
	if tok.TransferTaxRate() != MaxTaxRate {
		t.Fatalf("expected rate %d, got %d", MaxTaxRate, tok.TransferTaxRate())
	}
}

func TestUpdateTaxBeneficiarySwapsExemptionsAtomically(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	next := Address("0xnextbeneficiary")

	if err := tok.UpdateTaxBeneficiary(owner, Zero); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if err := tok.UpdateTaxBeneficiary(alice, next); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := tok.UpdateTaxBeneficiary(owner, next); err != nil {
		t.Fatalf("update beneficiary: %v", err)
	}
	if tok.TaxBeneficiary() != next {
		t.Fatalf("beneficiary not installed: %s", tok.TaxBeneficiary())
	}
	if !tok.IsNoTaxSender(next) || !tok.IsNoTaxRecipient(next) {
		t.Fatal("new beneficiary not exempted")
	}
	if tok.IsNoTaxSender(beneficiary) || tok.IsNoTaxRecipient(beneficiary) {
		t.Fatal("previous beneficiary exemption not revoked")
	}

	// Tax now flows to the new beneficiary.
	fund(t, tok, alice, 1_000)
	if err := tok.Transfer(alice, bob, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := tok.BalanceOf(next).Uint64(); got != 50 {
		t.Fatalf("new beneficiary balance: expected 50, got %d", got)
	}
	if !tok.BalanceOf(beneficiary).IsZero() {
		t.Fatal("old beneficiary still collecting tax")
	}
}

func TestBeneficiaryNeverTaxesItself(t *testing.T) {
	tok := newTestToken(t, 500, 0)
	next := Address("0xnextbeneficiary")
	if err := tok.UpdateTaxBeneficiary(owner, next); err != nil {
		t.Fatalf("update beneficiary: %v", err)
	}
	fund(t, tok, next, 1_000)

	// Redistribution from the beneficiary is a plain move.
	if err := tok.Transfer(next, bob, uint256.NewInt(1_000)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := tok.BalanceOf(bob).Uint64(); got != 1_000 {
		t.Fatalf("beneficiary redistribution taxed, recipient got %d", got)
	}
}

func TestSetExemptionValidation(t *testing.T) {
	tok := newTestToken(t, 500, 0)

	if err := tok.SetNoTaxSenderAddr(alice, bob, true); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := tok.SetNoTaxSenderAddr(owner, Zero, true); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}

	if err := tok.SetNoTaxRecipientAddr(owner, bob, true); err != nil {
		t.Fatalf("set exemption: %v", err)
	}
	if !tok.IsNoTaxRecipient(bob) {
		t.Fatal("exemption not recorded")
	}
	if err := tok.SetNoTaxRecipientAddr(owner, bob, false); err != nil {
		t.Fatalf("clear exemption: %v", err)
	}
	if tok.IsNoTaxRecipient(bob) {
		t.Fatal("exemption not cleared")
	}
}

func TestTransferOwnership(t *testing.T) {
	tok := newTestToken(t, 500, 0)

	if err := tok.TransferOwnership(alice, bob); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := tok.TransferOwnership(owner, Zero); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}

	if err := tok.TransferOwnership(owner, alice); err != nil {
		t.Fatalf("transfer ownership: %v", err)
	}
	if tok.Owner() != alice {
		t.Fatalf("capability not moved: %s", tok.Owner())
	}
	if err := tok.UpdateTransferTaxRate(owner, 100); !errors.Is(err, access.ErrUnauthorized) {
		t.Fatal("previous owner still authorized")
	}
	if err := tok.UpdateTransferTaxRate(alice, 100); err != nil {
		t.Fatalf("new owner rejected: %v", err)
	}
}

func TestClonesAreIndependent(t *testing.T) {
	bp := Blueprint{}
	a := bp.Clone(NewAddress())
	b := bp.Clone(NewAddress())

	if err := a.Initialize(InitParams{
		Name: "A", Symbol: "A", InitialSupply: uint256.NewInt(1_000),
		TransferTaxRate: 500, TaxBeneficiary: beneficiary, Owner: owner,
	}); err != nil {
		t.Fatalf("initialize a: %v", err)
	}
	if err := b.Initialize(InitParams{
		Name: "B", Symbol: "B", InitialSupply: uint256.NewInt(7),
		TransferTaxRate: 100, TaxBeneficiary: alice, Owner: bob,
	}); err != nil {
		t.Fatalf("initialize b: %v", err)
	}

	if a.Address() == b.Address() {
		t.Fatal("clones share an address")
	}
	if a.BalanceOf(owner).Uint64() != 1_000 || b.BalanceOf(owner).Uint64() != 0 {
		t.Fatal("clones share balance state")
	}
	if a.TransferTaxRate() == b.TransferTaxRate() {
		t.Fatal("clones share rate state")
	}
}
