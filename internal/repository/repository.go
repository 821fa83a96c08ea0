package repository

import (
	"context"
	"time"

	"beachrental-backend/internal/domain"
)

type ResourceRepository interface {
	Create(ctx context.Context, resource *domain.Resource) error
	GetByID(ctx context.Context, id string) (*domain.Resource, error)
	FindMatching(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error)
	Update(ctx context.Context, resource *domain.Resource) error
}

// BookingRepository persists each resource's ledger. Commit and Release are
// serialized per resource by the implementation.
type BookingRepository interface {
	Ledger(ctx context.Context, resourceID, date string) (domain.Ledger, error)
	LedgersForDate(ctx context.Context, date string) (map[string]domain.Ledger, error)

	// Commit adds qty to every slot in one step. It fails with a
	// *domain.ConflictError, leaving the ledger unchanged, when any slot would
	// exceed the resource's quantity.
	Commit(ctx context.Context, resourceID, date string, slots []int, qty int32) error

	// Release subtracts qty from every slot and drops entries reaching zero.
	// It returns domain.ErrLedgerDrift after applying an over-release.
	Release(ctx context.Context, resourceID, date string, slots []int, qty int32) error
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// ListByDateRange returns reservations dated from..to inclusive. Empty
	// bounds are open.
	ListByDateRange(ctx context.Context, from, to string) ([]domain.Reservation, error)

	// Update writes the editable, non-lifecycle fields.
	Update(ctx context.Context, reservation *domain.Reservation) error

	// Transition writes the lifecycle fields only if the stored statuses still
	// equal from. It reports false when another writer got there first.
	Transition(ctx context.Context, reservation *domain.Reservation, from domain.StatusPair) (bool, error)

	// ListExpirable returns pending, uncancelled reservations whose payment
	// deadline is before now.
	ListExpirable(ctx context.Context, now time.Time) ([]domain.Reservation, error)
}
