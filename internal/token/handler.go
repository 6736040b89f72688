package token

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tokenforge/tokenforge/internal/access"
)

// CallerHeader carries the opaque address the caller acts as. Ownership
// checks run against it inside the ledger.
const CallerHeader = "X-Caller-Address"

// Resolver locates a deployed instance by address. Implemented by the factory.
type Resolver interface {
	TokenByAddress(addr Address) (*Token, bool)
}

// Handler exposes per-instance ledger endpoints.
type Handler struct {
	resolver Resolver
}

// NewHandler constructs a token handler.
func NewHandler(resolver Resolver) *Handler {
	return &Handler{resolver: resolver}
}

type transferRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

// Transfer moves value between accounts. When the request names a source
// other than the caller, the caller spends its allowance instead.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	value, err := ParseAmount(req.Value)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	caller := Caller(c)
	from := Address(req.From)
	to := Address(req.To)
	if from.IsZero() {
		from = caller
	}

	if from == caller {
		err = tok.Transfer(from, to, value)
	} else {
		err = tok.TransferFrom(caller, from, to, value)
	}
	if err != nil {
		return httpError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"from_balance": tok.BalanceOf(from).Dec(),
		"to_balance":   tok.BalanceOf(to).Dec(),
	})
}

type mintRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Mint credits new value to an account. Owner only.
func (h *Handler) Mint(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req mintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := tok.Mint(Caller(c), Address(req.To), amount); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"balance":      tok.BalanceOf(Address(req.To)).Dec(),
		"total_supply": tok.TotalSupply().Dec(),
	})
}

type burnRequest struct {
	Amount string `json:"amount"`
}

// Burn destroys value from the caller's own balance.
func (h *Handler) Burn(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req burnRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	caller := Caller(c)
	if err := tok.Burn(caller, amount); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"balance":      tok.BalanceOf(caller).Dec(),
		"total_supply": tok.TotalSupply().Dec(),
	})
}

type approveRequest struct {
	Spender string `json:"spender"`
	Value   string `json:"value"`
}

// Approve grants a spender a delegated allowance from the caller's balance.
func (h *Handler) Approve(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	value, err := ParseAmount(req.Value)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	caller := Caller(c)
	if err := tok.Approve(caller, Address(req.Spender), value); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"allowance": tok.Allowance(caller, Address(req.Spender)).Dec(),
	})
}

type taxRateRequest struct {
	Rate uint64 `json:"rate"`
}

// SetTaxRate replaces the transfer tax rate. Owner only.
func (h *Handler) SetTaxRate(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req taxRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := tok.UpdateTransferTaxRate(Caller(c), req.Rate); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"rate": tok.TransferTaxRate()})
}

type beneficiaryRequest struct {
	Beneficiary string `json:"beneficiary"`
}

// SetBeneficiary installs a new tax beneficiary. Owner only.
func (h *Handler) SetBeneficiary(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req beneficiaryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := tok.UpdateTaxBeneficiary(Caller(c), Address(req.Beneficiary)); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"beneficiary": string(tok.TaxBeneficiary())})
}

type exemptionRequest struct {
	Address string `json:"address"`
	Role    string `json:"role"`
	Exempt  bool   `json:"exempt"`
}

// SetExemption toggles sender- or recipient-side tax exemption. Owner only.
func (h *Handler) SetExemption(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req exemptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	caller := Caller(c)
	switch req.Role {
	case "sender":
		err = tok.SetNoTaxSenderAddr(caller, Address(req.Address), req.Exempt)
	case "recipient":
		err = tok.SetNoTaxRecipientAddr(caller, Address(req.Address), req.Exempt)
	default:
		return fiber.NewError(http.StatusBadRequest, "role must be sender or recipient")
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"address": req.Address, "role": req.Role, "exempt": req.Exempt})
}

type ownerRequest struct {
	Owner string `json:"owner"`
}

// SetOwner hands the instance's owner capability to a new holder.
func (h *Handler) SetOwner(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	var req ownerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := tok.TransferOwnership(Caller(c), Address(req.Owner)); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"owner": string(tok.Owner())})
}

// Info returns the public attributes of the instance.
func (h *Handler) Info(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"address":           string(tok.Address()),
		"name":              tok.Name(),
		"symbol":            tok.Symbol(),
		"owner":             string(tok.Owner()),
		"transfer_tax_rate": tok.TransferTaxRate(),
		"max_tax_rate":      uint64(MaxTaxRate),
		"tax_beneficiary":   string(tok.TaxBeneficiary()),
		"total_supply":      tok.TotalSupply().Dec(),
	})
}

// Balance returns an account's balance in the instance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	account := Address(c.Params("account"))
	return c.JSON(fiber.Map{
		"account": string(account),
		"balance": tok.BalanceOf(account).Dec(),
	})
}

// AllowanceOf returns the remaining delegated spend for an owner/spender pair.
func (h *Handler) AllowanceOf(c *fiber.Ctx) error {
	tok, err := h.resolve(c)
	if err != nil {
		return err
	}
	owner := Address(c.Params("owner"))
	spender := Address(c.Params("spender"))
	return c.JSON(fiber.Map{
		"owner":     string(owner),
		"spender":   string(spender),
		"allowance": tok.Allowance(owner, spender).Dec(),
	})
}

// Caller extracts the acting address from the request.
func Caller(c *fiber.Ctx) Address {
	return Address(c.Get(CallerHeader))
}

func (h *Handler) resolve(c *fiber.Ctx) (*Token, error) {
	addr := Address(c.Params("address"))
	tok, ok := h.resolver.TokenByAddress(addr)
	if !ok {
		return nil, fiber.NewError(http.StatusNotFound, "token not found")
	}
	return tok, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrZeroAddress),
		errors.Is(err, ErrZeroAmount),
		errors.Is(err, ErrInvalidRate),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientAllowance):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, access.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyInitialized), errors.Is(err, ErrNotInitialized):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
