package approval

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/game"
	"github.com/pesocoin/colorgame/internal/respond"
)

// Handler exposes the approval endpoints used by admins.
type Handler struct {
	workflow *Workflow
}

func NewHandler(workflow *Workflow) *Handler {
	return &Handler{workflow: workflow}
}

// Approve confirms a pending request as the caller.
func (h *Handler) Approve(c *fiber.Ctx) error {
	ticket, err := h.workflow.Approve(c.UserContext(), c.Params("token"), respond.MemberID(c))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, ticket)
}

// Get returns a request's state.
func (h *Handler) Get(c *fiber.Ctx) error {
	ticket, err := h.workflow.Get(c.Params("token"))
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, ticket)
}

// Cancel withdraws a pending request. Requesters may cancel their own; anyone
// else must be allowed to approve.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	token := c.Params("token")
	ticket, err := h.workflow.Get(token)
	if err != nil {
		return err
	}
	caller := respond.MemberID(c)
	if ticket.Requester != caller {
		ok, err := h.workflow.authorize(c.UserContext(), caller)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("cancel approval: %w", game.ErrUnauthorized)
		}
	}
	ticket, err = h.workflow.Cancel(c.UserContext(), token)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, ticket)
}
