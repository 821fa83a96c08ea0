package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health/grpc_health_v1"

	api "beachrental-backend/internal/api/grpc"
	httpapi "beachrental-backend/internal/api/http"
	"beachrental-backend/internal/app"
	"beachrental-backend/internal/config"
	"beachrental-backend/internal/jobs"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/scheduler"
	"beachrental-backend/internal/security"
	"beachrental-backend/internal/utils"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := flag.Bool("with-scheduler", false, "Run the expiry sweep in-process (required for the memory driver)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Beach Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress(), "driver", cfg.Database.Driver)
	logger.Info("Booking configuration", "timezone", cfg.Booking.Timezone,
		"max_advance_hours", cfg.Booking.MaxAdvanceHours, "deadline_hours", cfg.Booking.DeadlineHours)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Repositories
	repos, err := app.OpenRepositories(ctx, cfg, false)
	if err != nil {
		logger.Error("Failed to open repositories", "error", err)
		log.Fatalf("Failed to open repositories: %v", err)
	}
	defer repos.Close()

	// Initialize Services
	svcs, err := app.NewServices(cfg, repos, utils.SystemClock{})
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// HTTP API
	handler := httpapi.NewHandler(repos.Resources, svcs.Availability, svcs.Reservations)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.NewRouter(handler, tokenManager),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC operations, health and reflection
	ops := api.NewOperationsHandler(svcs.Availability, svcs.Sweeper, svcs.Clock)
	grpcServer, healthServer := api.NewServer(tokenManager, ops)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	var cronScheduler *scheduler.Scheduler
	if *withScheduler || cfg.Database.Driver == config.DriverMemory {
		jobRunner := jobs.NewJobRunner(&jobs.Services{Sweeper: svcs.Sweeper}, svcs.Clock, cfg)
		cronScheduler, err = scheduler.NewScheduler(jobRunner)
		if err != nil {
			log.Fatalf("Failed to register jobs: %v", err)
		}
		cronScheduler.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if cronScheduler != nil {
			cronScheduler.Stop()
		}
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
