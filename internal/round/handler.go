package round

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/respond"
)

// Handler exposes the round and wager endpoints.
type Handler struct {
	ctl *Controller
}

// NewHandler builds a round handler.
func NewHandler(ctl *Controller) *Handler {
	return &Handler{ctl: ctl}
}

// State returns the current round snapshot.
func (h *Handler) State(c *fiber.Ctx) error {
	return respond.Data(c, http.StatusOK, h.ctl.State())
}

// Open starts a betting round and arms the countdown.
func (h *Handler) Open(c *fiber.Ctx) error {
	opening, err := h.ctl.Open(c.UserContext())
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusCreated, opening)
}

// Close stops betting and reports the book per color.
func (h *Handler) Close(c *fiber.Ctx) error {
	closing, err := h.ctl.Close(c.UserContext())
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, closing)
}

// Reset refunds every open wager and clears the round.
func (h *Handler) Reset(c *fiber.Ctx) error {
	refunded, err := h.ctl.Reset(c.UserContext())
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"refunded": refunded})
}

type limitRequest struct {
	Amount int64 `json:"amount"`
}

// SetWagerCap changes the per-wager maximum.
func (h *Handler) SetWagerCap(c *fiber.Ctx) error {
	var req limitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.ctl.SetWagerCap(req.Amount); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, h.ctl.State())
}

type countdownRequest struct {
	Seconds int `json:"seconds"`
}

// SetCountdown changes the auto-close delay for future rounds.
func (h *Handler) SetCountdown(c *fiber.Ctx) error {
	var req countdownRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.ctl.SetCountdown(time.Duration(req.Seconds) * time.Second); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, h.ctl.State())
}

type wagerRequest struct {
	Amount int64  `json:"amount"`
	Color  string `json:"color"`
}

// PlaceWager books a wager for the caller.
func (h *Handler) PlaceWager(c *fiber.Ctx) error {
	var req wagerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	p, err := h.ctl.PlaceWager(c.UserContext(), respond.MemberID(c), req.Color, req.Amount)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusCreated, p)
}

// CancelOwn cancels the caller's most recent wager.
func (h *Handler) CancelOwn(c *fiber.Ctx) error {
	res, err := h.ctl.CancelWager(c.UserContext(), respond.MemberID(c), "", false)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, res)
}

// CancelByID cancels any wager. Routes guard it with the privileged check.
func (h *Handler) CancelByID(c *fiber.Ctx) error {
	res, err := h.ctl.CancelWager(c.UserContext(), respond.MemberID(c), c.Params("id"), true)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, res)
}

// MyWagers lists the caller's open wagers, newest first.
func (h *Handler) MyWagers(c *fiber.Ctx) error {
	wagers, err := h.ctl.Wagers(c.UserContext(), respond.MemberID(c))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, wagers)
}

type drawRequest struct {
	Colors []string `json:"colors"`
}

// Resolve records a draw and settles the book. A draw with no wagers is still
// recorded and answered with an empty resolution.
func (h *Handler) Resolve(c *fiber.Ctx) error {
	var req drawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.ctl.Resolve(c.UserContext(), req.Colors)
	if errors.Is(err, game.ErrNoWagers) {
		return respond.Data(c, http.StatusOK, fiber.Map{"draw": res.Draw, "outcomes": []Outcome{}, "no_wagers": true})
	}
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, res)
}
