package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/service"
)

func TestInventoryService_CommitAll_CompensatesOnLateFailure(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepo)
	svc := service.NewInventoryService(bookings)

	slots := []int{10, 11}
	items := []domain.ReservationItem{
		{ResourceID: "jet", Quantity: 1},
		{ResourceID: "helmet-m", Quantity: 2},
		{ResourceID: "jacket-m", Quantity: 2},
	}
	conflict := &domain.ConflictError{ResourceID: "jacket-m", Date: bookingDate, Slot: 11, Requested: 2, Available: 1}

	bookings.On("Commit", ctx, "jet", bookingDate, slots, int32(1)).Return(nil).Once()
	bookings.On("Commit", ctx, "helmet-m", bookingDate, slots, int32(2)).Return(nil).Once()
	bookings.On("Commit", ctx, "jacket-m", bookingDate, slots, int32(2)).Return(conflict).Once()
	bookings.On("Release", ctx, "helmet-m", bookingDate, slots, int32(2)).Return(nil).Once()
	bookings.On("Release", ctx, "jet", bookingDate, slots, int32(1)).Return(nil).Once()

	err := svc.CommitAll(ctx, bookingDate, slots, items)
	assert.Same(t, conflict, err)
	assert.ErrorIs(t, err, domain.ErrAvailabilityConflict)
	bookings.AssertExpectations(t)
	bookings.AssertNotCalled(t, "Release", ctx, "jacket-m", bookingDate, slots, int32(2))
}

func TestInventoryService_ReleaseAll(t *testing.T) {
	ctx := context.Background()
	slots := []int{5}

	t.Run("Drift is tolerated", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := service.NewInventoryService(bookings)
		bookings.On("Release", ctx, "a", bookingDate, slots, int32(1)).Return(domain.ErrLedgerDrift)
		bookings.On("Release", ctx, "b", bookingDate, slots, int32(1)).Return(nil)

		err := svc.ReleaseAll(ctx, bookingDate, slots, []domain.ReservationItem{
			{ResourceID: "a", Quantity: 1}, {ResourceID: "b", Quantity: 1},
		})
		assert.NoError(t, err)
		bookings.AssertExpectations(t)
	})

	t.Run("Continues past failures", func(t *testing.T) {
		bookings := new(MockBookingRepo)
		svc := service.NewInventoryService(bookings)
		bookings.On("Release", ctx, "a", bookingDate, slots, int32(1)).Return(errors.New("db down"))
		bookings.On("Release", ctx, "b", bookingDate, slots, int32(1)).Return(nil)

		err := svc.ReleaseAll(ctx, bookingDate, slots, []domain.ReservationItem{
			{ResourceID: "a", Quantity: 1}, {ResourceID: "b", Quantity: 1},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
		bookings.AssertExpectations(t)
	})
}

func TestInventoryService_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	bookings := new(MockBookingRepo)
	svc := service.NewInventoryService(bookings)
	res := &domain.Resource{ID: "atv", Quantity: 3}

	bookings.On("Ledger", ctx, "atv", bookingDate).Return(domain.Ledger{
		{Date: bookingDate, Slot: 10}: 1,
		{Date: bookingDate, Slot: 11}: 3,
	}, nil)

	ok, slot, err := svc.CheckAvailability(ctx, res, bookingDate, []int{9, 10}, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, slot)

	ok, slot, err = svc.CheckAvailability(ctx, res, bookingDate, []int{10, 11, 12}, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 11, slot)

	avail, err := svc.AvailableQuantity(ctx, res, bookingDate, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), avail)
}

func TestInventoryService_CommitThenReleaseRestoresLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before, err := f.store.BookingRepository.Ledger(ctx, f.catalog.atv.ID, bookingDate)
	require.NoError(t, err)

	require.NoError(t, f.inventory.Commit(ctx, f.catalog.atv.ID, bookingDate, []int{3, 4}, 2))
	require.NoError(t, f.inventory.Commit(ctx, f.catalog.atv.ID, bookingDate, []int{4, 5}, 1))
	require.NoError(t, f.inventory.Release(ctx, f.catalog.atv.ID, bookingDate, []int{4, 5}, 1))
	require.NoError(t, f.inventory.Release(ctx, f.catalog.atv.ID, bookingDate, []int{3, 4}, 2))

	after, err := f.store.BookingRepository.Ledger(ctx, f.catalog.atv.ID, bookingDate)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	err = f.inventory.Release(ctx, f.catalog.atv.ID, bookingDate, []int{3}, 1)
	assert.ErrorIs(t, err, domain.ErrLedgerDrift)
}
