package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"beachrental-backend/internal/app"
	"beachrental-backend/internal/config"
	"beachrental-backend/internal/jobs"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/scheduler"
	"beachrental-backend/internal/utils"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-unpaid-reservations', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Beach Rental Cronjob Runner...", "log_level", cfg.Log.Level)

	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("The memory driver is not shared with the server; run the server with -with-scheduler instead")
	}

	// Initialize Repositories
	repos, err := app.OpenRepositories(context.Background(), cfg, false)
	if err != nil {
		logger.Error("Failed to open repositories", "error", err)
		log.Fatalf("Failed to open repositories: %v", err)
	}
	defer repos.Close()

	// Initialize Services
	svcs, err := app.NewServices(cfg, repos, utils.SystemClock{})
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(&jobs.Services{Sweeper: svcs.Sweeper}, svcs.Clock, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "expire-unpaid-reservations":
		jobRunner.ExpireUnpaidReservations()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-unpaid-reservations\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
