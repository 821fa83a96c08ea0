package service

import (
	"context"
	"time"

	"beachrental-backend/internal/domain"
)

// InventoryService reads and mutates resource ledgers.
type InventoryService interface {
	AvailableQuantity(ctx context.Context, resource *domain.Resource, date string, slot int) (int32, error)
	// CheckAvailability reports whether qty units are free in every slot. It
	// returns the first slot that does not fit, or -1.
	CheckAvailability(ctx context.Context, resource *domain.Resource, date string, slots []int, qty int32) (bool, int, error)
	Commit(ctx context.Context, resourceID, date string, slots []int, qty int32) error
	Release(ctx context.Context, resourceID, date string, slots []int, qty int32) error
	// CommitAll commits every item or none of them.
	CommitAll(ctx context.Context, date string, slots []int, items []domain.ReservationItem) error
	// ReleaseAll releases every item, continuing past individual failures.
	ReleaseAll(ctx context.Context, date string, slots []int, items []domain.ReservationItem) error
}

// EquipmentResolver derives the safety gear a set of rentals needs and
// matches the caller's per-size selection to concrete gear resources.
type EquipmentResolver interface {
	Resolve(ctx context.Context, req GearResolution) ([]domain.ReservationItem, error)
}

type AvailabilityService interface {
	ForDate(ctx context.Context, date string) ([]ResourceAvailability, error)
	ForResource(ctx context.Context, date, resourceID string) (*ResourceAvailability, error)
}

type ReservationService interface {
	Create(ctx context.Context, actor *domain.Actor, in CreateReservationInput) (*domain.Reservation, error)
	Get(ctx context.Context, actor *domain.Actor, id string) (*domain.Reservation, error)
	ListByDate(ctx context.Context, actor *domain.Actor, date string) ([]domain.Reservation, error)
	ListByDateRange(ctx context.Context, actor *domain.Actor, from, to string) ([]domain.Reservation, error)
	Update(ctx context.Context, actor *domain.Actor, id string, in UpdateReservationInput) (*domain.Reservation, error)
	Pay(ctx context.Context, actor *domain.Actor, id string, method domain.PaymentMethod) (*domain.Reservation, error)
	Cancel(ctx context.Context, actor *domain.Actor, id string) (*CancelResult, error)
	StormRefund(ctx context.Context, actor *domain.Actor, id string) (*StormRefundResult, error)
}

// ExpirationSweeper force-expires pending reservations past their payment deadline.
type ExpirationSweeper interface {
	ExpireUnpaidReservations(ctx context.Context, now time.Time) ([]string, error)
}

// Notifier delivers best-effort customer notifications.
type Notifier interface {
	ReservationCreated(ctx context.Context, r *domain.Reservation) error
	ReservationCanceled(ctx context.Context, r *domain.Reservation, refunded bool) error
	StormRefundIssued(ctx context.Context, r *domain.Reservation) error
	ReservationExpired(ctx context.Context, r *domain.Reservation) error
}
