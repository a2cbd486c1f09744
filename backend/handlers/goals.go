package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/kitaplik/portal/backend/middleware"
	webmodels "github.com/kitaplik/portal/backend/models"
	"github.com/kitaplik/portal/backend/utils"
)

// MyGoals returns the caller's reading goals for the current month and year.
func MyGoals(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		goals, err := webApp.Goals.CurrentGoals(c.Context(), userID)
		if err != nil {
			slog.Error("Failed to load goals",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load goals")
		}

		return utils.SendSuccess(c, goals, "")
	}
}

// SetGoal creates or retargets a reading goal for the current period.
func SetGoal(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var req webmodels.SetGoalRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		goal, created, err := webApp.Goals.SetGoal(c.Context(), userID, req.Type, req.Target)
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		if created {
			return utils.SendCreated(c, goal, "Goal created")
		}
		return utils.SendSuccess(c, goal, "Goal saved")
	}
}

// RecordGoalProgress counts finished books against the current goals.
func RecordGoalProgress(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var req webmodels.GoalProgressRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}
		if req.Books <= 0 {
			return utils.SendBadRequest(c, "Books must be positive", nil)
		}

		goals, err := webApp.Goals.RecordFinishedBooks(c.Context(), userID, req.Books)
		if err != nil {
			slog.Error("Failed to record goal progress",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to record progress")
		}

		return utils.SendSuccess(c, goals, "")
	}
}
