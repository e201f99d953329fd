package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/auth"
	"github.com/pesocoin/colorgame/internal/respond"
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Claims, error)
}

// Checker answers role questions about a member.
type Checker interface {
	IsPrivileged(ctx context.Context, id string) (bool, error)
	IsOwner(id string) bool
}

// Bearer validates the access token and stores the member id in locals.
func Bearer(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(respond.MemberKey, claims.Subject)
		return c.Next()
	}
}

// RequirePrivileged lets through the owner and members holding an admin role.
func RequirePrivileged(members Checker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := members.IsPrivileged(c.UserContext(), respond.MemberID(c))
		if err != nil {
			return err
		}
		if !ok {
			return fiber.NewError(http.StatusForbidden, "admin role required")
		}
		return c.Next()
	}
}

// RequireOwner lets through the configured owner only.
func RequireOwner(members Checker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !members.IsOwner(respond.MemberID(c)) {
			return fiber.NewError(http.StatusForbidden, "owner only")
		}
		return c.Next()
	}
}
