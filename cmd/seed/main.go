package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/kitaplik/portal/kitaplik"
	"github.com/kitaplik/portal/kitaplik/database"
	"github.com/kitaplik/portal/kitaplik/logger"
)

// Seeds the template catalog and creates the collection indexes without
// starting the API server. Safe to re-run: seeding only inserts into empty
// collections.
func main() {
	customHandler := logger.NewHandler("Kitaplik-Seed")
	slog.SetDefault(slog.New(customHandler))

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := kitaplik.LoadConfig(*path)
	if err != nil {
		logger.LogError("Failed to load configuration", err)
		os.Exit(-1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, database.DBConfig{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		ConnTimeout: cfg.Mongo.ConnTimeout,
	})
	if err != nil {
		logger.LogError("Database connection failed", err)
		os.Exit(-1)
	}
	defer db.Close(ctx)

	if err := db.EnsureIndexes(ctx); err != nil {
		logger.LogError("Failed to ensure indexes", err)
		os.Exit(-1)
	}

	if err := db.InitializeCatalogData(ctx); err != nil {
		logger.LogError("Failed to seed catalog data", err)
		os.Exit(-1)
	}

	logger.LogSystem("Catalog seed complete", slog.String("database", cfg.Mongo.Database))
}
