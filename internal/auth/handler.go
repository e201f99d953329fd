package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/identity"
	"github.com/pesocoin/colorgame/internal/respond"
)

// BotKeyHeader carries the chat adapter's shared key.
const BotKeyHeader = "X-Bot-Key"

// Handler exposes token endpoints for the chat adapter.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tokenRequest struct {
	MemberID string   `json:"member_id"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
}

type tokenResponse struct {
	MemberID     string   `json:"member_id"`
	Roles        []string `json:"roles"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	TokenVersion int      `json:"token_version"`
}

// Token registers the member asserted by the adapter and returns a token pair.
func (h *Handler) Token(c *fiber.Ctx) error {
	if err := h.svc.VerifyBotKey(c.Get(BotKeyHeader)); err != nil {
		return err
	}
	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	pair, member, err := h.svc.Issue(c.UserContext(), identity.Profile{ID: req.MemberID, Name: req.Name, Roles: req.Roles})
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, tokenResponse{
		MemberID:     member.ID,
		Roles:        member.Roles,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenVersion: member.TokenVersion,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"access_token": token, "expires_in": exp})
}

// Revoke invalidates every token issued to the caller.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	if err := h.svc.Revoke(c.UserContext(), respond.MemberID(c)); err != nil {
		return err
	}
	return respond.Data(c, http.StatusOK, fiber.Map{"status": "revoked"})
}
