// Package respond renders the API envelope shared by every handler:
// {"data": ...} on success and {"error": {"code", "message"}} on failure.
package respond

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pesocoin/colorgame/internal/game"
)

// MemberKey is the Fiber locals key holding the authenticated member id.
const MemberKey = "member_id"

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Data writes v under the data key.
func Data(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(fiber.Map{"data": v})
}

// MemberID returns the authenticated member or an empty string.
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(MemberKey).(string)
	return id
}

// PageParam reads the 1-based page query parameter. Missing or malformed
// values fall back to the first page.
func PageParam(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Status maps a domain error code to an HTTP status.
func Status(code string) int {
	switch code {
	case "invalid_amount", "invalid_color", "invalid_draw", "invalid_account":
		return http.StatusBadRequest
	case "session_limit_exceeded", "insufficient_balance":
		return http.StatusUnprocessableEntity
	case "round_closed", "round_already_open", "no_wagers":
		return http.StatusConflict
	case "no_active_wager", "not_found":
		return http.StatusNotFound
	case "unauthorized":
		return http.StatusForbidden
	case "timeout":
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf returns the HTTP status an error renders with.
func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return Status(game.Code(err))
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if status >= 500 {
			return "internal"
		}
		return "error"
	}
}

// ErrorHandler returns a Fiber error handler that renders the error envelope.
// Fiber errors keep their status; domain errors are mapped through their
// code; anything else is logged and reported as internal.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": ErrorBody{Code: statusCode(fe.Code), Message: fe.Message}})
		}
		code := game.Code(err)
		status := Status(code)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
			msg = "internal error"
		}
		return c.Status(status).JSON(fiber.Map{"error": ErrorBody{Code: code, Message: msg}})
	}
}
