package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tokenforge/tokenforge/internal/factory"
)

// RegisterFactoryRoutes wires factory deployment and administration endpoints.
func RegisterFactoryRoutes(r fiber.Router, h *factory.Handler, createLimit fiber.Handler) {
	r.Post("/tokens", createLimit, h.Create)
	r.Get("/tokens/:id", h.GetByID)

	r.Get("/factory", h.Info)
	r.Put("/factory/treasury", h.SetTreasury)
	r.Put("/factory/fee", h.SetFee)
	r.Put("/factory/owner", h.SetOwner)
	r.Post("/factory/pause", h.Pause)
	r.Post("/factory/unpause", h.Unpause)
	r.Post("/factory/collect-fees", h.CollectFees)
	r.Post("/factory/collect-tokens", h.CollectTokens)
}
