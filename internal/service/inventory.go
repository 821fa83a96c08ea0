package service

import (
	"context"
	"errors"
	"fmt"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
)

type inventoryService struct {
	bookings repository.BookingRepository
}

func NewInventoryService(bookings repository.BookingRepository) InventoryService {
	return &inventoryService{bookings: bookings}
}

func (s *inventoryService) AvailableQuantity(ctx context.Context, resource *domain.Resource, date string, slot int) (int32, error) {
	ledger, err := s.bookings.Ledger(ctx, resource.ID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger for %s: %w", resource.ID, err)
	}
	return ledger.Available(resource.Quantity, date, slot), nil
}

func (s *inventoryService) CheckAvailability(ctx context.Context, resource *domain.Resource, date string, slots []int, qty int32) (bool, int, error) {
	ledger, err := s.bookings.Ledger(ctx, resource.ID, date)
	if err != nil {
		return false, -1, fmt.Errorf("failed to load ledger for %s: %w", resource.ID, err)
	}
	ok, slot := ledger.Fits(resource.Quantity, date, slots, qty)
	return ok, slot, nil
}

func (s *inventoryService) Commit(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	return s.bookings.Commit(ctx, resourceID, date, slots, qty)
}

func (s *inventoryService) Release(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	err := s.bookings.Release(ctx, resourceID, date, slots, qty)
	if errors.Is(err, domain.ErrLedgerDrift) {
		logger.Warn("Released more than was committed",
			"resource_id", resourceID, "date", date, "slots", slots, "qty", qty)
	}
	return err
}

func (s *inventoryService) CommitAll(ctx context.Context, date string, slots []int, items []domain.ReservationItem) error {
	logger.EnterMethod("inventoryService.CommitAll", "date", date, "slots", slots, "items", len(items))

	for i, it := range items {
		err := s.bookings.Commit(ctx, it.ResourceID, date, slots, it.Quantity)
		if err == nil {
			continue
		}
		// Undo what this call already committed, newest first.
		for j := i - 1; j >= 0; j-- {
			done := items[j]
			if rerr := s.bookings.Release(ctx, done.ResourceID, date, slots, done.Quantity); rerr != nil {
				logger.Error("Failed to roll back ledger commit",
					"resource_id", done.ResourceID, "date", date, "slots", slots, "qty", done.Quantity, "error", rerr)
			}
		}
		logger.ExitMethodWithError("inventoryService.CommitAll", err, "resource_id", it.ResourceID)
		return err
	}

	logger.ExitMethod("inventoryService.CommitAll")
	return nil
}

func (s *inventoryService) ReleaseAll(ctx context.Context, date string, slots []int, items []domain.ReservationItem) error {
	var errs []error
	for _, it := range items {
		err := s.Release(ctx, it.ResourceID, date, slots, it.Quantity)
		if err == nil || errors.Is(err, domain.ErrLedgerDrift) {
			continue
		}
		logger.Error("Failed to release ledger entries",
			"resource_id", it.ResourceID, "date", date, "slots", slots, "qty", it.Quantity, "error", err)
		errs = append(errs, fmt.Errorf("release %s: %w", it.ResourceID, err))
	}
	return errors.Join(errs...)
}
