package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"beachrental-backend/internal/domain"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

// MockBookingRepo
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Ledger(ctx context.Context, resourceID, date string) (domain.Ledger, error) {
	args := m.Called(ctx, resourceID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Ledger), args.Error(1)
}
func (m *MockBookingRepo) LedgersForDate(ctx context.Context, date string) (map[string]domain.Ledger, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Ledger), args.Error(1)
}
func (m *MockBookingRepo) Commit(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	args := m.Called(ctx, resourceID, date, slots, qty)
	return args.Error(0)
}
func (m *MockBookingRepo) Release(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	args := m.Called(ctx, resourceID, date, slots, qty)
	return args.Error(0)
}

// MockReservationRepo
type MockReservationRepo struct {
	mock.Mock
}

func (m *MockReservationRepo) Create(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockReservationRepo) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) ListByDateRange(ctx context.Context, from, to string) ([]domain.Reservation, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) Update(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockReservationRepo) Transition(ctx context.Context, r *domain.Reservation, from domain.StatusPair) (bool, error) {
	args := m.Called(ctx, r, from)
	return args.Bool(0), args.Error(1)
}
func (m *MockReservationRepo) ListExpirable(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ReservationCreated(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockNotifier) ReservationCanceled(ctx context.Context, r *domain.Reservation, refunded bool) error {
	args := m.Called(ctx, r, refunded)
	return args.Error(0)
}
func (m *MockNotifier) StormRefundIssued(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockNotifier) ReservationExpired(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
