package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kitaplik/portal/backend/utils"
)

const userIDHeader = "X-User-ID"

// maxUserIDLength bounds the opaque id so it stays usable as a document id.
const maxUserIDLength = 128

// RequireUser extracts the caller-supplied opaque user id from the
// X-User-ID header and stores it in the request context. Identity is taken
// on trust; authentication is handled upstream of this service.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(userIDHeader))
		if userID == "" {
			slog.Debug("Request without user id",
				slog.String("type", "http"),
				slog.String("path", c.Path()))
			return utils.SendUnauthorized(c, "X-User-ID header is required")
		}
		if len(userID) > maxUserIDLength || strings.ContainsAny(userID, " \t\n") {
			return utils.SendBadRequest(c, "Invalid user id", nil)
		}

		// Copy before storing: c.Get returns a view into fiber's reusable
		// request buffer, and the rate limiter retains this id past the
		// request (REVIEW_FINDINGS.md F5).
		c.Locals("user_id", strings.Clone(userID))
		return c.Next()
	}
}

// UserID returns the id stored by RequireUser, or "" outside its scope.
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}
