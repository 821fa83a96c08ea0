package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
)

type expirationSweeper struct {
	reservations repository.ReservationRepository
	inventory    InventoryService
	notifier     Notifier
}

func NewExpirationSweeper(reservations repository.ReservationRepository, inventory InventoryService, notifier Notifier) ExpirationSweeper {
	return &expirationSweeper{reservations: reservations, inventory: inventory, notifier: notifier}
}

// ExpireUnpaidReservations moves every pending reservation whose payment
// deadline is before now to PAYMENT_EXPIRED and frees its inventory. A
// reservation paid or canceled concurrently is skipped. It returns the ids
// it expired.
func (s *expirationSweeper) ExpireUnpaidReservations(ctx context.Context, now time.Time) ([]string, error) {
	logger.EnterMethod("expirationSweeper.ExpireUnpaidReservations", "now", now)

	candidates, err := s.reservations.ListExpirable(ctx, now)
	if err != nil {
		logger.ExitMethodWithError("expirationSweeper.ExpireUnpaidReservations", err)
		return nil, fmt.Errorf("failed to list expirable reservations: %w", err)
	}

	var expired []string
	var errs []error
	for i := range candidates {
		res := &candidates[i]
		from := res.Status()
		if err := res.Expire(now); err != nil {
			// The listing and the in-memory check disagree; leave it for the next run.
			logger.Warn("Skipping reservation that is not expirable", "reservation_id", res.ID, "error", err)
			continue
		}

		ok, err := s.reservations.Transition(ctx, res, from)
		if err != nil {
			logger.Error("Failed to expire reservation", "reservation_id", res.ID, "error", err)
			errs = append(errs, fmt.Errorf("expire %s: %w", res.ID, err))
			continue
		}
		if !ok {
			logger.Debug("Reservation changed before expiry, skipping", "reservation_id", res.ID)
			continue
		}

		if err := s.inventory.ReleaseAll(ctx, res.Date, res.Slots, res.Allocations()); err != nil {
			logger.Error("Failed to release expired reservation inventory", "reservation_id", res.ID, "error", err)
			errs = append(errs, fmt.Errorf("release %s: %w", res.ID, err))
		}
		_ = s.notifier.ReservationExpired(ctx, res)
		expired = append(expired, res.ID)
	}

	if len(expired) > 0 {
		logger.Info("Expired unpaid reservations", "count", len(expired))
	}
	if err := errors.Join(errs...); err != nil {
		logger.ExitMethodWithError("expirationSweeper.ExpireUnpaidReservations", err, "expired", len(expired))
		return expired, err
	}
	logger.ExitMethod("expirationSweeper.ExpireUnpaidReservations", "expired", len(expired))
	return expired, nil
}
