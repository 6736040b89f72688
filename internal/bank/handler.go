package bank

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tokenforge/tokenforge/internal/token"
)

// Handler exposes native-currency account endpoints. Deposits are how value
// enters the bank so callers can pay the creation fee.
type Handler struct {
	bank Bank
}

// NewHandler constructs a bank handler.
func NewHandler(b Bank) *Handler {
	return &Handler{bank: b}
}

type depositRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// Deposit credits an account, provisioning it when missing.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := token.ParseAmount(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	addr := token.Address(req.Address)
	if err := h.bank.Deposit(c.UserContext(), addr, amount); err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	balance, err := h.bank.Balance(c.UserContext(), addr)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"address": req.Address,
		"balance": balance.Dec(),
	})
}

// Balance returns an account's native balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	addr := token.Address(c.Params("address"))
	balance, err := h.bank.Balance(c.UserContext(), addr)
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"address": string(addr),
		"balance": balance.Dec(),
	})
}
