package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kitaplik/portal/backend/utils"
	"github.com/kitaplik/portal/kitaplik/database/repositories"
)

// CustomErrorHandler turns unhandled errors into the standard JSON envelope.
// The portal is API-only, so there is no HTML fallback.
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else if repositories.IsNotFound(err) {
		return utils.SendNotFound(c, "Resource not found")
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		return c.Next()
	}
}
