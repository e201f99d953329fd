package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/ledger"
	"github.com/pesocoin/colorgame/internal/respond"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type giftRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Gift sends coins from the caller to another member.
func (h *Handler) Gift(c *fiber.Ctx) error {
	var req giftRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Gift(c.UserContext(), respond.MemberID(c), req.To, req.Amount)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusCreated, res)
}

type giveRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// Give grants coins to one member.
func (h *Handler) Give(c *fiber.Ctx) error {
	var req giveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Give(c.UserContext(), req.Account, req.Amount)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusCreated, res)
}

type giveawayRequest struct {
	Accounts []string `json:"accounts"`
	Amount   int64    `json:"amount"`
}

type partialGiveaway struct {
	Amount   int64    `json:"amount"`
	Credited []string `json:"credited"`
	Failed   []string `json:"failed"`
	Error    string   `json:"error"`
}

// Giveaway grants the same amount to many members. A partially applied
// giveaway answers 207 with both account lists.
func (h *Handler) Giveaway(c *fiber.Ctx) error {
	var req giveawayRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.MassGiveaway(c.UserContext(), req.Accounts, req.Amount)
	if be, ok := ledger.AsBulkError(err); ok {
		return respond.Data(c, http.StatusMultiStatus, partialGiveaway{
			Amount:   req.Amount,
			Credited: be.Succeeded,
			Failed:   be.Failed,
			Error:    game.Code(be.Err),
		})
	}
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusCreated, res)
}

type adjustRequest struct {
	Account string `json:"account"`
	Delta   int64  `json:"delta"`
}

// Adjust adds or removes coins from one member.
func (h *Handler) Adjust(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	balance, err := h.service.Adjust(c.UserContext(), req.Account, req.Delta)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"account": req.Account, "balance": balance})
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// AdjustGiven corrects the total given figure.
func (h *Handler) AdjustGiven(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.AdjustTotalGiven(c.UserContext(), req.Amount); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"adjusted": req.Amount})
}

// AdjustProfits corrects the profit figure.
func (h *Handler) AdjustProfits(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.AdjustProfits(c.UserContext(), req.Amount); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"adjusted": req.Amount})
}

// ResetBalances zeroes every account.
func (h *Handler) ResetBalances(c *fiber.Ctx) error {
	if err := h.service.ResetBalances(c.UserContext()); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"reset": "balances"})
}

// ResetProfits clears the profit totals.
func (h *Handler) ResetProfits(c *fiber.Ctx) error {
	if err := h.service.ResetProfits(c.UserContext()); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"reset": "profits"})
}

// ResetHistory clears the draw history.
func (h *Handler) ResetHistory(c *fiber.Ctx) error {
	if err := h.service.ResetHistory(c.UserContext()); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"reset": "history"})
}
