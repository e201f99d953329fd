package funding

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/respond"
)

// Handler exposes withdrawal and redemption endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Withdraw files a withdrawal for the caller. The response carries the
// pending approval ticket.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ticket, err := h.service.Withdraw(c.UserContext(), respond.MemberID(c), req.Amount)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusAccepted, ticket)
}

// Redeem files a reward redemption for the caller.
func (h *Handler) Redeem(c *fiber.Ctx) error {
	var req RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ticket, err := h.service.Redeem(c.UserContext(), respond.MemberID(c), req.Reward, req.Quantity)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusAccepted, ticket)
}

// Rewards lists the redeemable catalog.
func (h *Handler) Rewards(c *fiber.Ctx) error {
	rewards := h.service.Rewards()
	out := make([]RewardResponse, len(rewards))
	for i, r := range rewards {
		out[i] = RewardResponse{Key: r.Key, Name: r.Name, Cost: r.Cost}
	}
	return respond.Data(c, http.StatusOK, out)
}
