package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/kitaplik/portal/backend/utils"
	"github.com/kitaplik/portal/kitaplik/database/models"
)

// CatalogTasks lists the task template catalog, optionally filtered by kind.
func CatalogTasks(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := c.Query("kind")
		if kind != "" {
			valid := false
			for _, k := range models.TaskKinds() {
				if k == kind {
					valid = true
				}
			}
			if !valid {
				return utils.SendBadRequest(c, "Unknown task kind", map[string]string{
					"kind": kind,
				})
			}
			templates, err := webApp.Catalog.ListTaskTemplates(c.Context(), kind)
			if err != nil {
				return catalogError(c, err)
			}
			return utils.SendSuccess(c, templates, "")
		}

		all := make([]*models.TaskTemplate, 0)
		for _, k := range models.TaskKinds() {
			templates, err := webApp.Catalog.ListTaskTemplates(c.Context(), k)
			if err != nil {
				return catalogError(c, err)
			}
			all = append(all, templates...)
		}
		return utils.SendSuccess(c, all, "")
	}
}

// RefreshCatalog drops the cached template listings so the next read sees
// catalog edits made directly in the store.
func RefreshCatalog(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		webApp.Catalog.InvalidateCache()
		slog.Info("Catalog cache invalidated",
			slog.String("type", "http"),
			slog.String("ip", c.IP()))
		return utils.SendSuccess(c, nil, "Catalog cache refreshed")
	}
}

// CatalogAchievements lists the achievement template catalog.
func CatalogAchievements(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		templates, err := webApp.Catalog.ListAchievementTemplates(c.Context())
		if err != nil {
			return catalogError(c, err)
		}
		return utils.SendSuccess(c, templates, "")
	}
}

func catalogError(c *fiber.Ctx, err error) error {
	slog.Error("Failed to load catalog",
		slog.String("type", "db"),
		slog.String("error", err.Error()))
	return utils.SendInternalServerError(c, "Failed to load catalog")
}
