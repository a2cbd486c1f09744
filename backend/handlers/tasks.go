package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/kitaplik/portal/backend/middleware"
	webmodels "github.com/kitaplik/portal/backend/models"
	"github.com/kitaplik/portal/backend/utils"
	"github.com/kitaplik/portal/kitaplik/database/models"
)

// MyTasks is the session-start endpoint: it assigns the initial working set
// on first contact, runs the lazy reset pass, then lists the live tasks.
func MyTasks(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		tasks, err := webApp.Engine.StartSession(c.Context(), userID)
		if err != nil {
			slog.Error("Failed to start session",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to load tasks")
		}
		if tasks == nil {
			tasks = []*models.UserTask{}
		}

		return utils.SendSuccess(c, tasks, "")
	}
}

// CompleteTask marks one of the caller's tasks as done. Unknown, foreign and
// already-completed ids are answered with the current standing and
// applied=false rather than an error.
func CompleteTask(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		taskID := c.Params("task_id")
		if taskID == "" {
			return utils.SendBadRequest(c, "Missing task id", nil)
		}

		result, err := webApp.Engine.CompleteTask(c.Context(), userID, taskID)
		if err != nil {
			slog.Error("Failed to complete task",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("task_id", taskID),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to complete task")
		}

		return utils.SendSuccess(c, result, "")
	}
}

// AdvanceReading records a reading event (pages, favorites, borrows) against
// the caller's live progressive tasks.
func AdvanceReading(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		var req webmodels.AdvanceReadingRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "Invalid request body", nil)
		}

		switch req.Kind {
		case models.ProgressKindPages, models.ProgressKindFavorites, models.ProgressKindBorrows:
		default:
			return utils.SendBadRequest(c, "Unknown progress kind", map[string]string{
				"kind": req.Kind,
			})
		}
		if req.Amount <= 0 {
			return utils.SendBadRequest(c, "Amount must be positive", nil)
		}

		result, err := webApp.Engine.AdvanceProgress(c.Context(), userID, req.Kind, req.Amount)
		if err != nil {
			slog.Error("Failed to advance progress",
				slog.String("type", "engine"),
				slog.String("user_id", userID),
				slog.String("kind", req.Kind),
				slog.String("error", err.Error()))
			return utils.SendInternalServerError(c, "Failed to record reading")
		}

		return utils.SendSuccess(c, result, "")
	}
}
