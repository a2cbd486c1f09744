package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/kitaplik/portal/backend/middleware"
	"github.com/kitaplik/portal/backend/utils"
	"github.com/kitaplik/portal/kitaplik/database/models"
)

// MyProgress returns the caller's derived level standing.
func MyProgress(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		progress, err := webApp.Engine.GetProgress(c.Context(), userID)
		if err != nil {
			slog.Error("Failed to load progress",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load progress")
		}

		return utils.SendSuccess(c, progress, "")
	}
}

// MyAchievements lists what the caller has unlocked.
func MyAchievements(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		achievements, err := webApp.Engine.GetAchievements(c.Context(), userID)
		if err != nil {
			slog.Error("Failed to load achievements",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load achievements")
		}
		if achievements == nil {
			achievements = []*models.UserAchievement{}
		}

		return utils.SendSuccess(c, achievements, "")
	}
}
