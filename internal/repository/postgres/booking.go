package postgres

import (
	"context"
	"database/sql"
	"errors"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Ledger(ctx context.Context, resourceID, date string) (domain.Ledger, error) {
	if !validID(resourceID) {
		return domain.Ledger{}, nil
	}
	query := `SELECT slot, quantity FROM resource_bookings WHERE resource_id = $1 AND booking_date = $2`
	rows, err := r.db.QueryContext(ctx, query, resourceID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledger := domain.Ledger{}
	for rows.Next() {
		var slot int
		var qty int32
		if err := rows.Scan(&slot, &qty); err != nil {
			return nil, err
		}
		ledger[domain.BookingKey{Date: date, Slot: slot}] = qty
	}
	return ledger, rows.Err()
}

func (r *bookingRepository) LedgersForDate(ctx context.Context, date string) (map[string]domain.Ledger, error) {
	query := `SELECT resource_id, slot, quantity FROM resource_bookings WHERE booking_date = $1`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.Ledger)
	for rows.Next() {
		var id string
		var slot int
		var qty int32
		if err := rows.Scan(&id, &slot, &qty); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = domain.Ledger{}
		}
		out[id][domain.BookingKey{Date: date, Slot: slot}] = qty
	}
	return out, rows.Err()
}

func checkBookingArgs(resourceID string, qty int32) error {
	if qty < 1 {
		return domain.Validationf("booking quantity must be at least 1, got %d", qty)
	}
	if !validID(resourceID) {
		return domain.NotFoundf("resource %s", resourceID)
	}
	return nil
}

// lockResource takes the row lock that serializes ledger writes for one
// resource and returns its owned quantity.
func lockResource(ctx context.Context, tx *sql.Tx, resourceID string) (int32, error) {
	var quantity int32
	err := tx.QueryRowContext(ctx, `SELECT quantity FROM resources WHERE id = $1 FOR UPDATE`, resourceID).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFoundf("resource %s", resourceID)
	}
	return quantity, err
}

func (r *bookingRepository) Commit(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	logger.EnterMethod("bookingRepository.Commit", "resourceID", resourceID, "date", date, "slots", slots, "qty", qty)

	if err := checkBookingArgs(resourceID, qty); err != nil {
		logger.ExitMethodWithError("bookingRepository.Commit", err)
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Commit", err)
		return err
	}
	defer tx.Rollback()

	total, err := lockResource(ctx, tx, resourceID)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Commit", err, "resourceID", resourceID)
		return err
	}

	query := `INSERT INTO resource_bookings (resource_id, booking_date, slot, quantity)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (resource_id, booking_date, slot)
	          DO UPDATE SET quantity = resource_bookings.quantity + EXCLUDED.quantity
	          RETURNING quantity`
	for _, slot := range slots {
		var committed int32
		if err := tx.QueryRowContext(ctx, query, resourceID, date, slot, qty).Scan(&committed); err != nil {
			logger.ExitMethodWithError("bookingRepository.Commit", err, "resourceID", resourceID, "slot", slot)
			return err
		}
		if committed > total {
			conflict := &domain.ConflictError{
				ResourceID: resourceID,
				Date:       date,
				Slot:       slot,
				Requested:  qty,
				Available:  total - (committed - qty),
			}
			logger.ExitMethodWithError("bookingRepository.Commit", conflict)
			return conflict
		}
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("bookingRepository.Commit", err, "resourceID", resourceID)
		return err
	}
	logger.ExitMethod("bookingRepository.Commit", "resourceID", resourceID)
	return nil
}

func (r *bookingRepository) Release(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	logger.EnterMethod("bookingRepository.Release", "resourceID", resourceID, "date", date, "slots", slots, "qty", qty)

	if err := checkBookingArgs(resourceID, qty); err != nil {
		logger.ExitMethodWithError("bookingRepository.Release", err)
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Release", err)
		return err
	}
	defer tx.Rollback()

	if _, err := lockResource(ctx, tx, resourceID); err != nil {
		logger.ExitMethodWithError("bookingRepository.Release", err, "resourceID", resourceID)
		return err
	}

	update := `UPDATE resource_bookings SET quantity = quantity - $4
	           WHERE resource_id = $1 AND booking_date = $2 AND slot = $3
	           RETURNING quantity`
	remove := `DELETE FROM resource_bookings WHERE resource_id = $1 AND booking_date = $2 AND slot = $3`

	var drift bool
	for _, slot := range slots {
		var left int32
		err := tx.QueryRowContext(ctx, update, resourceID, date, slot, qty).Scan(&left)
		if errors.Is(err, sql.ErrNoRows) {
			drift = true
			continue
		}
		if err != nil {
			logger.ExitMethodWithError("bookingRepository.Release", err, "resourceID", resourceID, "slot", slot)
			return err
		}
		if left < 0 {
			drift = true
		}
		if left <= 0 {
			if _, err := tx.ExecContext(ctx, remove, resourceID, date, slot); err != nil {
				logger.ExitMethodWithError("bookingRepository.Release", err, "resourceID", resourceID, "slot", slot)
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("bookingRepository.Release", err, "resourceID", resourceID)
		return err
	}
	if drift {
		logger.ExitMethodWithError("bookingRepository.Release", domain.ErrLedgerDrift, "resourceID", resourceID)
		return domain.ErrLedgerDrift
	}
	logger.ExitMethod("bookingRepository.Release", "resourceID", resourceID)
	return nil
}
