package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tokenforge/tokenforge/internal/bank"
)

// RegisterBankRoutes wires native-currency account endpoints.
func RegisterBankRoutes(r fiber.Router, h *bank.Handler) {
	r.Post("/bank/deposits", h.Deposit)
	r.Get("/bank/accounts/:address/balance", h.Balance)
}
