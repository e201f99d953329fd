package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/round"
)

// Guards are the role and rate-limit middlewares shared by route groups.
type Guards struct {
	Privileged fiber.Handler
	Owner      fiber.Handler
	WagerLimit fiber.Handler
}

// RegisterRoundRoutes wires round lifecycle, wager and draw endpoints.
func RegisterRoundRoutes(r fiber.Router, h *round.Handler, g Guards) {
	r.Get("/round", h.State)
	r.Post("/round/open", g.Privileged, g.Owner, h.Open)
	r.Post("/round/close", g.Privileged, h.Close)
	r.Post("/round/reset", g.Privileged, h.Reset)
	r.Put("/round/wager-cap", g.Owner, h.SetWagerCap)
	r.Put("/round/countdown", g.Owner, h.SetCountdown)

	r.Post("/wagers", g.WagerLimit, h.PlaceWager)
	r.Delete("/wagers", h.CancelOwn)
	r.Get("/wagers/me", h.MyWagers)
	r.Delete("/wagers/:id", g.Privileged, h.CancelByID)

	r.Post("/draws", g.Privileged, h.Resolve)
}
