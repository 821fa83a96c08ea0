package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
	repository.ResourceRepository
	repository.BookingRepository
	repository.ReservationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		ResourceRepository:    NewResourceRepository(db),
		BookingRepository:     NewBookingRepository(db),
		ReservationRepository: NewReservationRepository(db),
	}
}

// validID reports whether id can address a UUID column. Anything else would
// fail in the driver with invalid_text_representation instead of matching no row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.DatabaseCall("migrate", "schema.sql")
	_, err := db.ExecContext(ctx, schema)
	logger.DatabaseResult("migrate", 0, err)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
