package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kitaplik/portal/backend/config"
	webmodels "github.com/kitaplik/portal/backend/models"
	"github.com/kitaplik/portal/backend/utils"
	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/database/repositories"
	"github.com/kitaplik/portal/kitaplik/gamification"
	"github.com/kitaplik/portal/kitaplik/services"
)

// WebApp carries the portal's wired dependencies into the handlers.
type WebApp struct {
	Config  *config.WebAppConfig
	DB      *database.DB
	Engine  *gamification.Service
	Goals   *services.GoalService
	Catalog repositories.TemplateRepository
	Version string
	Commit  string
}

// HealthCheck reports liveness of the API and its document store.
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := webmodels.NewHealthCheck(webApp.Version)

		start := time.Now()
		if err := webApp.DB.Ping(c.Context()); err != nil {
			slog.Error("Health check: database unreachable",
				slog.String("type", "db"),
				slog.String("error", err.Error()))
			health.AddComponent("mongodb", "unhealthy", err.Error(), nil)
		} else {
			health.AddComponent("mongodb", "healthy", "", map[string]interface{}{
				"ping_ms": time.Since(start).Milliseconds(),
			})
		}

		status := fiber.StatusOK
		if health.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return utils.SendJSON(c, status, health)
	}
}
