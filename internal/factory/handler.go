package factory

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tokenforge/tokenforge/internal/access"
	"github.com/tokenforge/tokenforge/internal/bank"
	"github.com/tokenforge/tokenforge/internal/token"
)

// Handler exposes factory endpoints.
type Handler struct {
	factory *Factory
}

// NewHandler constructs a factory handler.
func NewHandler(factory *Factory) *Handler {
	return &Handler{factory: factory}
}

type createRequest struct {
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	InitialSupply   string `json:"initial_supply"`
	TransferTaxRate uint64 `json:"transfer_tax_rate"`
	TaxBeneficiary  string `json:"tax_beneficiary"`
	Owner           string `json:"owner"`
	Payment         string `json:"payment"`
}

// Create deploys a new token instance, charging the attached payment as the
// creation fee.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	supply, err := token.ParseAmount(req.InitialSupply)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	payment, err := token.ParseAmount(req.Payment)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	addr, err := h.factory.CreateToken(c.UserContext(), token.Caller(c), CreateParams{
		Name:            req.Name,
		Symbol:          req.Symbol,
		InitialSupply:   supply,
		TransferTaxRate: req.TransferTaxRate,
		TaxBeneficiary:  token.Address(req.TaxBeneficiary),
		Owner:           token.Address(req.Owner),
	}, payment)
	if err != nil {
		return httpError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"address": string(addr),
		"id":      h.factory.TokenCounter(),
	})
}

// GetByID resolves a registry identifier to the deployed instance address.
func (h *Handler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "id must be a positive integer")
	}
	addr := h.factory.TokenByID(id)
	if addr.IsZero() {
		return fiber.NewError(http.StatusNotFound, "id not assigned")
	}
	return c.JSON(fiber.Map{"id": id, "address": string(addr)})
}

// Info returns the factory's public attributes.
func (h *Handler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"owner":         string(h.factory.Owner()),
		"treasury":      string(h.factory.Treasury()),
		"creation_fee":  h.factory.CreationFee().Dec(),
		"token_counter": h.factory.TokenCounter(),
		"paused":        h.factory.Paused(),
		"account":       string(h.factory.Account()),
	})
}

type treasuryRequest struct {
	Treasury string `json:"treasury"`
}

// SetTreasury replaces the treasury account. Owner only.
func (h *Handler) SetTreasury(c *fiber.Ctx) error {
	var req treasuryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.factory.SetTreasury(token.Caller(c), token.Address(req.Treasury)); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"treasury": req.Treasury})
}

type feeRequest struct {
	Fee string `json:"fee"`
}

// SetFee replaces the creation fee. Owner only.
func (h *Handler) SetFee(c *fiber.Ctx) error {
	var req feeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	fee, err := token.ParseAmount(req.Fee)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.factory.SetCreationFee(token.Caller(c), fee); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"fee": fee.Dec()})
}

// Pause closes the creation gate. Owner only.
func (h *Handler) Pause(c *fiber.Ctx) error {
	if err := h.factory.Pause(token.Caller(c)); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"paused": true})
}

// Unpause opens the creation gate. Owner only.
func (h *Handler) Unpause(c *fiber.Ctx) error {
	if err := h.factory.Unpause(token.Caller(c)); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"paused": false})
}

// CollectFees sweeps accrued creation fees to the treasury. Owner only.
func (h *Handler) CollectFees(c *fiber.Ctx) error {
	amount, err := h.factory.CollectFees(c.UserContext(), token.Caller(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"treasury": string(h.factory.Treasury()),
		"amount":   amount.Dec(),
	})
}

type collectTokensRequest struct {
	Token string `json:"token"`
}

// CollectTokens sweeps the factory's balance in a deployed token to the
// treasury. Owner only.
func (h *Handler) CollectTokens(c *fiber.Ctx) error {
	var req collectTokensRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := h.factory.CollectTokens(token.Caller(c), token.Address(req.Token))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{
		"token":    req.Token,
		"treasury": string(h.factory.Treasury()),
		"amount":   amount.Dec(),
	})
}

type factoryOwnerRequest struct {
	Owner string `json:"owner"`
}

// SetOwner hands the factory's owner capability to a new holder.
func (h *Handler) SetOwner(c *fiber.Ctx) error {
	var req factoryOwnerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.factory.TransferOwnership(token.Caller(c), token.Address(req.Owner)); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"owner": req.Owner})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrIncorrectFee):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ErrUnknownToken):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, access.ErrPaused),
		errors.Is(err, access.ErrAlreadyPaused),
		errors.Is(err, access.ErrNotPaused),
		errors.Is(err, access.ErrReentrantCall):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, access.ErrUnauthorized):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, token.ErrZeroAddress),
		errors.Is(err, token.ErrInvalidRate),
		errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, bank.ErrUnknownAccount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
