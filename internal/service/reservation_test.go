package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/repository/memory"
	"beachrental-backend/internal/service"
	"beachrental-backend/internal/utils"
)

func TestReservationService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.Create(ctx, f.customer, f.jetSkiInput(12, 10, 11))
		require.NoError(t, err)

		assert.NotEmpty(t, res.ID)
		assert.Equal(t, []int{10, 11, 12}, res.Slots)
		assert.Equal(t, domain.StatePending, res.State())
		assert.Equal(t, domain.WeatherSunny, res.WeatherCondition)
		assert.Equal(t, "cust-1", res.OwnerID)
		assert.Equal(t, "cust-1", res.CreatedBy)
		assert.Equal(t, int32(1), res.Riders)
		assert.Len(t, res.SafetyGear, 2)
		assert.Equal(t, int32(30000), res.GrossPriceCents)
		assert.Equal(t, int32(0), res.DiscountCents)
		assert.Equal(t, time.Date(2026, 6, 2, 3, 0, 0, 0, time.UTC), res.PaymentDeadline)

		for _, slot := range []int{10, 11, 12} {
			assert.Equal(t, int32(1), f.committed(t, f.catalog.jetSki, slot))
			assert.Equal(t, int32(1), f.committed(t, f.catalog.helmetM, slot))
			assert.Equal(t, int32(1), f.committed(t, f.catalog.lifeJacket, slot))
		}
		assert.Equal(t, int32(0), f.committed(t, f.catalog.jetSki, 13))
	})

	t.Run("Staff booking has no owner", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.Create(ctx, f.staff, f.jetSkiInput(20))
		require.NoError(t, err)
		assert.Empty(t, res.OwnerID)
		assert.Equal(t, "staff-1", res.CreatedBy)
	})

	t.Run("Rejects date beyond advance window", func(t *testing.T) {
		f := newFixture(t)
		in := f.jetSkiInput(10)
		in.Date = f.clock.now.Add(72 * time.Hour).Format(utils.DateLayout)
		in.Slots = []int{99}

		_, err := f.svc.Create(ctx, f.staff, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "in advance")
	})

	t.Run("Rejects slot already started", func(t *testing.T) {
		f := newFixture(t)
		in := f.jetSkiInput(16)
		in.Date = "2026-06-01"
		_, err := f.svc.Create(ctx, f.staff, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Rejects malformed slots", func(t *testing.T) {
		f := newFixture(t)
		for _, slots := range [][]int{nil, {10, 12}, {10, 11, 12, 13}, {48}} {
			_, err := f.svc.Create(ctx, f.staff, f.jetSkiInput(slots...))
			assert.ErrorIs(t, err, domain.ErrValidation, "slots %v", slots)
		}
	})

	t.Run("Rejects missing customer", func(t *testing.T) {
		f := newFixture(t)
		in := f.jetSkiInput(10)
		in.Customer.Contact = "  "
		_, err := f.svc.Create(ctx, f.staff, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Unknown product", func(t *testing.T) {
		f := newFixture(t)
		in := f.jetSkiInput(10)
		in.Items = []service.LineItemInput{{ResourceID: "missing", Quantity: 1}}
		_, err := f.svc.Create(ctx, f.staff, in)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Safety gear cannot be a line item", func(t *testing.T) {
		f := newFixture(t)
		in := f.jetSkiInput(10)
		in.Items = append(in.Items, service.LineItemInput{ResourceID: f.catalog.helmetM.ID, Quantity: 1})
		_, err := f.svc.Create(ctx, f.staff, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Actor without create capability", func(t *testing.T) {
		f := newFixture(t)
		viewer := domain.NewActor("viewer", domain.RoleStaff, []string{"view_reservations"})
		_, err := f.svc.Create(ctx, viewer, f.jetSkiInput(10))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("Failed validation commits nothing", func(t *testing.T) {
		f := newFixture(t)
		in := f.jetSkiInput(10)
		in.Riders = 2
		_, err := f.svc.Create(ctx, f.staff, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, int32(0), f.committed(t, f.catalog.jetSki, 10))
	})
}

func TestReservationService_Create_OverlappingSlotsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, f.staff, f.jetSkiInput(10, 11, 12))
	require.NoError(t, err)

	for _, slot := range []int{10, 11, 12} {
		_, err := f.svc.Create(ctx, f.staff, f.jetSkiInput(slot))
		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict, "slot %d", slot)
		assert.Equal(t, f.catalog.jetSki.ID, conflict.ResourceID)
		assert.Equal(t, slot, conflict.Slot)
		assert.Equal(t, int32(0), conflict.Available)
	}

	_, err = f.svc.Create(ctx, f.staff, f.jetSkiInput(13))
	assert.NoError(t, err)
}

func TestReservationService_Create_ConcurrentSingleUnit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	attempts := [][]int{{10, 11, 12}, {11}, {12, 13}, {9, 10}, {10, 11, 12}, {12}}
	var mu sync.Mutex
	var succeeded, conflicts int

	var wg sync.WaitGroup
	for _, slots := range attempts {
		wg.Add(1)
		go func(slots []int) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.staff, f.jetSkiInput(slots...))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrAvailabilityConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(slots)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, succeeded, 1)
	assert.Equal(t, len(attempts), succeeded+conflicts)
	for slot := 9; slot <= 13; slot++ {
		assert.LessOrEqual(t, f.committed(t, f.catalog.jetSki, slot), int32(1))
		assert.Equal(t, f.committed(t, f.catalog.jetSki, slot), f.committed(t, f.catalog.helmetM, slot)+f.committed(t, f.catalog.helmetL, slot))
	}
}

func TestReservationService_Create_Discount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Create(ctx, f.staff, service.CreateReservationInput{
		Customer: customer(),
		Date:     bookingDate,
		Slots:    []int{20, 21},
		Items: []service.LineItemInput{
			{ResourceID: f.catalog.diving.ID, Quantity: 2},
			{ResourceID: f.catalog.surfboard.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	// (4000*2 + 2500) * 2 slots
	assert.Equal(t, int32(21000), res.GrossPriceCents)
	assert.Equal(t, int32(2100), res.DiscountCents)
	assert.Equal(t, int32(18900), res.TotalPriceCents)
	assert.Equal(t, int32(0), res.Riders)
	assert.Empty(t, res.SafetyGear)

	single, err := f.svc.Create(ctx, f.staff, service.CreateReservationInput{
		Customer: customer(),
		Date:     bookingDate,
		Slots:    []int{20},
		Items:    []service.LineItemInput{{ResourceID: f.catalog.diving.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), single.DiscountCents)
	assert.Equal(t, int32(4000), single.TotalPriceCents)
}

func TestReservationService_Create_DuplicateLinesMerge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Create(ctx, f.staff, service.CreateReservationInput{
		Customer: customer(),
		Date:     bookingDate,
		Slots:    []int{20},
		Items: []service.LineItemInput{
			{ResourceID: f.catalog.diving.ID, Quantity: 1},
			{ResourceID: f.catalog.diving.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int32(3), res.Items[0].Quantity)
	assert.Equal(t, int32(3), f.committed(t, f.catalog.diving, 20))
}

func TestReservationService_Create_MergedQuantityBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	board := func(q int32) service.LineItemInput {
		return service.LineItemInput{ResourceID: f.catalog.surfboard.ID, Quantity: q}
	}
	input := func(items ...service.LineItemInput) service.CreateReservationInput {
		return service.CreateReservationInput{Customer: customer(), Date: bookingDate, Slots: []int{20}, Items: items}
	}

	t.Run("Sum past int32 does not wrap", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.staff, input(board(math.MaxInt32), board(math.MaxInt32)))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Sum past owned stock", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.staff, input(board(5), board(5)))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Ledger untouched", func(t *testing.T) {
		assert.Equal(t, int32(0), f.committed(t, f.catalog.surfboard, 20))
		avail, err := f.inventory.AvailableQuantity(ctx, f.catalog.surfboard, bookingDate, 20)
		require.NoError(t, err)
		assert.Equal(t, int32(8), avail)
	})

	t.Run("Total past int32 cents", func(t *testing.T) {
		luxury := f.seed(t, "Luxury Board", domain.CategorySurfboard, domain.SizeAdult, math.MaxInt32, 2)
		_, err := f.svc.Create(ctx, f.staff, service.CreateReservationInput{
			Customer: customer(), Date: bookingDate, Slots: []int{20},
			Items: []service.LineItemInput{{ResourceID: luxury.ID, Quantity: 2}},
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, int32(0), f.committed(t, luxury, 20))
	})

	t.Run("Sum equal to stock is booked", func(t *testing.T) {
		res, err := f.svc.Create(ctx, f.staff, input(board(5), board(3)))
		require.NoError(t, err)
		assert.Equal(t, int32(8), res.Items[0].Quantity)
		assert.Greater(t, res.TotalPriceCents, int32(0))
		assert.Equal(t, int32(8), f.committed(t, f.catalog.surfboard, 20))
	})
}

func TestReservationService_Create_RollsBackWhenInsertFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	diving := &domain.Resource{Name: "Diving Set", Category: domain.CategoryDivingEquipment, PriceCents: 4000, Quantity: 2, Status: domain.ResourceStatusAvailable}
	require.NoError(t, store.ResourceRepository.Create(ctx, diving))

	reservations := new(MockReservationRepo)
	reservations.On("Create", ctx, mock.AnythingOfType("*domain.Reservation")).Return(errors.New("connection reset"))

	clock := &fixedClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	inventory := service.NewInventoryService(store.BookingRepository)
	svc := service.NewReservationService(store.ResourceRepository, reservations, inventory,
		service.NewEquipmentResolver(store.ResourceRepository, inventory), service.NoopNotifier{},
		utils.NewSlotCalendar(time.UTC), clock, service.DefaultBookingPolicy)

	_, err := svc.Create(ctx, domain.NewActor("admin", domain.RoleAdmin, nil), service.CreateReservationInput{
		Customer: customer(),
		Date:     bookingDate,
		Slots:    []int{20},
		Items:    []service.LineItemInput{{ResourceID: diving.ID, Quantity: 2}},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	l, err := store.BookingRepository.Ledger(ctx, diving.ID, bookingDate)
	require.NoError(t, err)
	assert.Empty(t, l)
	reservations.AssertExpectations(t)
}

func TestReservationService_Pay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Create(ctx, f.customer, f.jetSkiInput(10))
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, f.customer, res.ID, domain.PaymentMethod{Type: domain.PaymentTypeCard, Currency: domain.CurrencyLocal})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.Pay(ctx, f.staff, res.ID, domain.PaymentMethod{Type: domain.PaymentTypeCard})
	assert.ErrorIs(t, err, domain.ErrValidation)

	paid, err := f.svc.Pay(ctx, f.staff, res.ID, domain.PaymentMethod{Type: domain.PaymentTypeCard, Currency: domain.CurrencyLocal})
	require.NoError(t, err)
	assert.Equal(t, domain.StatePaid, paid.State())
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, domain.PaymentTypeCard, paid.PaymentMethod.Type)

	// ledger untouched by payment
	assert.Equal(t, int32(1), f.committed(t, f.catalog.jetSki, 10))

	_, err = f.svc.Pay(ctx, f.staff, res.ID, domain.PaymentMethod{Type: domain.PaymentTypeCash, Currency: domain.CurrencyLocal})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Pay(ctx, f.staff, "missing", domain.PaymentMethod{Type: domain.PaymentTypeCash, Currency: domain.CurrencyLocal})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationService_Pay_LostRace(t *testing.T) {
	ctx := context.Background()
	reservations := new(MockReservationRepo)
	pending := &domain.Reservation{
		ID: "r-1", Date: bookingDate, Slots: []int{10},
		PaymentStatus: domain.PaymentStatusPending, CancellationStatus: domain.CancellationStatusNone,
	}
	from := pending.Status()
	reservations.On("GetByID", ctx, "r-1").Return(pending, nil)
	reservations.On("Transition", ctx, mock.AnythingOfType("*domain.Reservation"), from).Return(false, nil)

	svc := service.NewReservationService(nil, reservations, nil, nil, service.NoopNotifier{},
		utils.NewSlotCalendar(time.UTC), utils.SystemClock{}, service.DefaultBookingPolicy)

	_, err := svc.Pay(ctx, domain.NewActor("staff", domain.RoleStaff, nil), "r-1",
		domain.PaymentMethod{Type: domain.PaymentTypeCash, Currency: domain.CurrencyForeign})
	assert.ErrorIs(t, err, domain.ErrStaleReservation)
	reservations.AssertExpectations(t)
}

func TestReservationService_Cancel(t *testing.T) {
	ctx := context.Background()
	method := domain.PaymentMethod{Type: domain.PaymentTypeCash, Currency: domain.CurrencyLocal}

	paidReservation := func(t *testing.T, f *fixture) *domain.Reservation {
		res, err := f.svc.Create(ctx, f.customer, f.jetSkiInput(10, 11))
		require.NoError(t, err)
		_, err = f.svc.Pay(ctx, f.staff, res.ID, method)
		require.NoError(t, err)
		return res
	}

	t.Run("Paid before deadline is refunded", func(t *testing.T) {
		f := newFixture(t)
		res := paidReservation(t, f)
		f.clock.now = res.PaymentDeadline.Add(-time.Second)

		out, err := f.svc.Cancel(ctx, f.customer, res.ID)
		require.NoError(t, err)
		assert.True(t, out.Refunded)
		assert.Equal(t, "Reservation canceled with full refund", out.Message)
		assert.Equal(t, domain.StateRefunded, out.Reservation.State())
		assert.Equal(t, res.TotalPriceCents, out.Reservation.RefundAmountCents)
		assert.Equal(t, int32(0), f.committed(t, f.catalog.jetSki, 10))
		assert.Equal(t, int32(0), f.committed(t, f.catalog.helmetM, 11))
		assert.Equal(t, int32(0), f.committed(t, f.catalog.lifeJacket, 11))
	})

	t.Run("Paid at deadline by staff is not refunded", func(t *testing.T) {
		f := newFixture(t)
		res := paidReservation(t, f)
		f.clock.now = res.PaymentDeadline

		out, err := f.svc.Cancel(ctx, f.staff, res.ID)
		require.NoError(t, err)
		assert.False(t, out.Refunded)
		assert.Equal(t, "Reservation canceled without refund", out.Message)
		assert.Equal(t, domain.PaymentStatusPaid, out.Reservation.PaymentStatus)
		assert.Equal(t, domain.CancellationStatusCanceled, out.Reservation.CancellationStatus)
		assert.Equal(t, int32(0), out.Reservation.RefundAmountCents)
		assert.Equal(t, int32(0), f.committed(t, f.catalog.jetSki, 10))
	})

	t.Run("Owner past deadline is rejected", func(t *testing.T) {
		f := newFixture(t)
		res := paidReservation(t, f)
		f.clock.now = res.PaymentDeadline.Add(time.Minute)

		_, err := f.svc.Cancel(ctx, f.customer, res.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, int32(1), f.committed(t, f.catalog.jetSki, 10))
	})

	t.Run("Other customer is rejected", func(t *testing.T) {
		f := newFixture(t)
		res := paidReservation(t, f)
		other := domain.NewActor("cust-2", domain.RoleCustomer, nil)

		_, err := f.svc.Cancel(ctx, other, res.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("Pending is canceled", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.svc.Create(ctx, f.customer, f.jetSkiInput(10))
		require.NoError(t, err)

		out, err := f.svc.Cancel(ctx, f.customer, res.ID)
		require.NoError(t, err)
		assert.Equal(t, "Reservation canceled", out.Message)
		assert.Equal(t, domain.StateCanceled, out.Reservation.State())
		assert.Equal(t, domain.PaymentStatusCanceled, out.Reservation.PaymentStatus)

		_, err = f.svc.Cancel(ctx, f.customer, res.ID)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestReservationService_StormRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pricey := f.seed(t, "Pro Diving Set", domain.CategoryDivingEquipment, "", 20000, 1)

	res, err := f.svc.Create(ctx, f.staff, service.CreateReservationInput{
		Customer: customer(),
		Date:     bookingDate,
		Slots:    []int{30},
		Items:    []service.LineItemInput{{ResourceID: pricey.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int32(20000), res.TotalPriceCents)

	_, err = f.svc.StormRefund(ctx, f.staff, res.ID)
	assert.ErrorIs(t, err, domain.ErrValidation, "unpaid reservations are not storm refunded")

	_, err = f.svc.Pay(ctx, f.staff, res.ID, domain.PaymentMethod{Type: domain.PaymentTypeCard, Currency: domain.CurrencyForeign})
	require.NoError(t, err)

	_, err = f.svc.StormRefund(ctx, f.customer, res.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	out, err := f.svc.StormRefund(ctx, f.staff, res.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(10000), out.RefundAmountCents)
	assert.Equal(t, domain.PaymentStatusPartialRefund, out.Reservation.PaymentStatus)
	assert.Equal(t, domain.CancellationStatusStormRefund, out.Reservation.CancellationStatus)
	assert.Equal(t, domain.WeatherStorm, out.Reservation.WeatherCondition)
	assert.Equal(t, int32(0), f.committed(t, pricey, 30))

	stored, err := f.store.ReservationRepository.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePartialRefund, stored.State())

	admin := domain.NewActor("admin", domain.RoleAdmin, nil)
	sunny := domain.WeatherSunny
	_, err = f.svc.Update(ctx, admin, res.ID, service.UpdateReservationInput{WeatherCondition: &sunny})
	assert.ErrorIs(t, err, domain.ErrValidation)

	name := "Dana Q."
	out2, err := f.svc.Update(ctx, admin, res.ID, service.UpdateReservationInput{CustomerName: &name})
	require.NoError(t, err)
	assert.Equal(t, domain.WeatherStorm, out2.WeatherCondition)
}

func TestReservationService_GetAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Create(ctx, f.customer, f.jetSkiInput(10))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.customer, res.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Items[0].Resource)
	assert.Equal(t, "Jet Ski", got.Items[0].Resource.Name)
	require.NotNil(t, got.SafetyGear[0].Resource)

	_, err = f.svc.Get(ctx, domain.NewActor("cust-2", domain.RoleCustomer, nil), res.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.Get(ctx, f.staff, res.ID)
	assert.NoError(t, err)

	list, err := f.svc.ListByDate(ctx, f.staff, bookingDate)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.ListByDate(ctx, f.staff, "2026-06-03")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.ListByDate(ctx, f.customer, bookingDate)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.svc.ListByDate(ctx, f.staff, "06/02/2026")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.ListByDateRange(ctx, f.staff, "2026-06-05", "2026-06-01")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReservationService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := domain.NewActor("admin", domain.RoleAdmin, nil)
	res, err := f.svc.Create(ctx, f.customer, f.jetSkiInput(10))
	require.NoError(t, err)

	name := "Dana Q."
	rainy := domain.WeatherRainy
	_, err = f.svc.Update(ctx, f.staff, res.ID, service.UpdateReservationInput{CustomerName: &name})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	out, err := f.svc.Update(ctx, admin, res.ID, service.UpdateReservationInput{CustomerName: &name, WeatherCondition: &rainy})
	require.NoError(t, err)
	assert.Equal(t, "Dana Q.", out.Customer.Name)
	assert.Equal(t, "dana@example.com", out.Customer.Contact)
	assert.Equal(t, domain.WeatherRainy, out.WeatherCondition)
	assert.Equal(t, domain.StatePending, out.State())

	storm := domain.WeatherStorm
	_, err = f.svc.Update(ctx, admin, res.ID, service.UpdateReservationInput{WeatherCondition: &storm})
	assert.ErrorIs(t, err, domain.ErrValidation)

	empty := ""
	_, err = f.svc.Update(ctx, admin, res.ID, service.UpdateReservationInput{CustomerContact: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
