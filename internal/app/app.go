// Package app wires configuration, repositories and services for the
// command entrypoints.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"beachrental-backend/internal/config"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
	"beachrental-backend/internal/repository/memory"
	"beachrental-backend/internal/repository/postgres"
	"beachrental-backend/internal/service"
	"beachrental-backend/internal/utils"
)

// Repositories holds the storage driver selected by configuration.
type Repositories struct {
	Resources    repository.ResourceRepository
	Bookings     repository.BookingRepository
	Reservations repository.ReservationRepository

	// DB is nil for the memory driver.
	DB *sql.DB
}

// Close releases the database handle, if any.
func (r *Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// OpenRepositories connects the configured driver. With migrate set the
// postgres schema is applied first.
func OpenRepositories(ctx context.Context, cfg *config.Config, migrate bool) (*Repositories, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return &Repositories{
			Resources:    store.ResourceRepository,
			Bookings:     store.BookingRepository,
			Reservations: store.ReservationRepository,
		}, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	if migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	store := postgres.NewStore(db)
	return &Repositories{
		Resources:    store.ResourceRepository,
		Bookings:     store.BookingRepository,
		Reservations: store.ReservationRepository,
		DB:           db,
	}, nil
}

// Services is the assembled booking engine.
type Services struct {
	Inventory    service.InventoryService
	Availability service.AvailabilityService
	Reservations service.ReservationService
	Sweeper      service.ExpirationSweeper
	Clock        utils.Clock
}

// NewServices builds every service over repos using the booking and SMTP
// configuration.
func NewServices(cfg *config.Config, repos *Repositories, clock utils.Clock) (*Services, error) {
	calendar, err := utils.LoadSlotCalendar(cfg.Booking.Timezone)
	if err != nil {
		return nil, err
	}

	notifier := service.NewEmailNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From,
		cfg.SMTP.Timeout())
	inventory := service.NewInventoryService(repos.Bookings)
	resolver := service.NewEquipmentResolver(repos.Resources, inventory)
	policy := service.BookingPolicy{
		MaxAdvance:     cfg.Booking.MaxAdvance(),
		DeadlineOffset: cfg.Booking.DeadlineOffset(),
	}

	return &Services{
		Inventory:    inventory,
		Availability: service.NewAvailabilityService(repos.Resources, repos.Bookings, calendar),
		Reservations: service.NewReservationService(repos.Resources, repos.Reservations, inventory, resolver,
			notifier, calendar, clock, policy),
		Sweeper: service.NewExpirationSweeper(repos.Reservations, inventory, notifier),
		Clock:   clock,
	}, nil
}
