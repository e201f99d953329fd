package reporting

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/respond"
)

// Handler exposes the report endpoints.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Leaderboard(c *fiber.Ctx) error {
	page, err := h.service.Leaderboard(c.UserContext(), respond.PageParam(c))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, page)
}

func (h *Handler) History(c *fiber.Ctx) error {
	page, err := h.service.History(c.UserContext(), respond.PageParam(c))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, page)
}

func (h *Handler) Profits(c *fiber.Ctx) error {
	p, err := h.service.Profits(c.UserContext())
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, p)
}

func (h *Handler) ActiveBets(c *fiber.Ctx) error {
	page, err := h.service.ActiveBets(c.UserContext(), respond.PageParam(c))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, page)
}
