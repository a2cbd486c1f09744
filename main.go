package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/kitaplik/portal/backend/config"
	"github.com/kitaplik/portal/backend/handlers"
	"github.com/kitaplik/portal/backend/middleware"
	"github.com/kitaplik/portal/kitaplik"
	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Initialize custom logger
	customHandler := logger.NewHandler("Kitaplik")
	slog.SetDefault(slog.New(customHandler))

	logger.LogSystem("Starting Kitaplik Portal API",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	debug := flag.Bool("debug", false, "enable debug mode")
	flag.Parse()

	cfg, err := kitaplik.LoadConfig(*path)
	if err != nil {
		logger.LogError("Failed to load configuration", err)
		os.Exit(-1)
	}
	logger.LogSystem("Configuration loaded successfully")

	logger.LogSystem("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		ConnTimeout: cfg.Mongo.ConnTimeout,
	})
	if err != nil {
		logger.LogError("Database connection failed", err,
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	logger.LogSystem("Database connected successfully",
		slog.String("database", cfg.Mongo.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	if err := db.InitializeCatalogData(ctx); err != nil {
		logger.LogError("Failed to initialize catalog data", err)
		os.Exit(-1)
	}

	portal := kitaplik.New(*cfg, version, commit)
	portal.DB = db
	if err := portal.Setup(ctx); err != nil {
		logger.LogError("Failed to set up portal", err)
		os.Exit(-1)
	}

	webCfg := config.NewWebAppConfig(cfg, *debug)
	webApp := &handlers.WebApp{
		Config:  webCfg,
		DB:      db,
		Engine:  portal.Engine,
		Goals:   portal.GoalService,
		Catalog: portal.TemplateRepository,
		Version: version,
		Commit:  commit,
	}

	app := fiber.New(fiber.Config{
		AppName:      "Kitaplik Portal API",
		ServerHeader: "Kitaplik",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: webCfg.AllowedOrigins(),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-User-ID",
	}))
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp)

	address := webCfg.Address()
	logger.LogSystem("Starting portal server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			logger.LogError("Failed to start server", err)
		}
	}()

	<-c
	logger.LogSystem("Shutting down portal server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.LogError("Server shutdown error", err)
	}

	if err := db.Close(shutdownCtx); err != nil {
		logger.LogError("Database close error", err)
	}

	logger.LogSystem("Portal server shutdown complete")
}

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp) {
	app.Get("/health", handlers.HealthCheck(webApp))

	api := app.Group("/api/v1")
	rateLimit := webApp.Config.Config.Server.RateLimit

	// Read-only catalog listings, no identity required
	catalog := api.Group("/catalog")
	catalog.Use(middleware.APIRateLimit(rateLimit))
	catalog.Get("/tasks", handlers.CatalogTasks(webApp))
	catalog.Get("/achievements", handlers.CatalogAchievements(webApp))
	catalog.Post("/refresh", handlers.RefreshCatalog(webApp))

	// Per-user surface; identity runs first so the limiter keys by user
	me := api.Group("/me")
	me.Use(middleware.RequireUser())
	me.Use(middleware.APIRateLimit(rateLimit))
	me.Get("/tasks", handlers.MyTasks(webApp))
	me.Post("/tasks/:task_id/complete", handlers.CompleteTask(webApp))
	me.Post("/reading", handlers.AdvanceReading(webApp))
	me.Get("/progress", handlers.MyProgress(webApp))
	me.Get("/achievements", handlers.MyAchievements(webApp))
	me.Get("/goals", handlers.MyGoals(webApp))
	me.Put("/goals", handlers.SetGoal(webApp))
	me.Post("/goals/progress", handlers.RecordGoalProgress(webApp))

	app.Use(func(c *fiber.Ctx) error {
		slog.Warn("No route matched for request",
			slog.String("type", "http"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
		)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested endpoint does not exist",
		})
	})
}
