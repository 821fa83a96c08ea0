package main

import (
	"context"
	"flag"
	"log"

	"beachrental-backend/internal/app"
	"beachrental-backend/internal/config"
	"beachrental-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", true, "Apply the database schema before seeding")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	repos, err := app.OpenRepositories(ctx, cfg, *migrate)
	if err != nil {
		log.Fatalf("Failed to open repositories: %v", err)
	}
	defer repos.Close()

	n, err := app.SeedCatalog(ctx, repos.Resources, app.DefaultCatalog())
	if err != nil {
		logger.Error("Seeding failed", "inserted", n, "error", err)
		log.Fatalf("Seeding failed: %v", err)
	}
	logger.Info("Catalog seeded", "inserted", n)
}
