package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tokenforge/tokenforge/internal/token"
)

// RegisterTokenRoutes wires per-instance ledger endpoints.
func RegisterTokenRoutes(r fiber.Router, h *token.Handler) {
	r.Post("/tokens/:address/transfers", h.Transfer)
	r.Post("/tokens/:address/mint", h.Mint)
	r.Post("/tokens/:address/burn", h.Burn)
	r.Post("/tokens/:address/approvals", h.Approve)

	r.Put("/tokens/:address/tax-rate", h.SetTaxRate)
	r.Put("/tokens/:address/beneficiary", h.SetBeneficiary)
	r.Put("/tokens/:address/exemptions", h.SetExemption)
	r.Put("/tokens/:address/owner", h.SetOwner)

	r.Get("/tokens/:address/info", h.Info)
	r.Get("/tokens/:address/balances/:account", h.Balance)
	r.Get("/tokens/:address/allowances/:owner/:spender", h.AllowanceOf)
}
