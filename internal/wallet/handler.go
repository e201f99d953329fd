package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/respond"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me returns the caller's balance.
func (h *Handler) Me(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), respond.MemberID(c))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, balance)
}

// Of returns another member's balance, or 404 when the member has never
// been seen.
func (h *Handler) Of(c *fiber.Ctx) error {
	balance, err := h.service.Of(c.UserContext(), c.Params("member"))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, balance)
}
