package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/repository/memory"
	"beachrental-backend/internal/service"
	"beachrental-backend/internal/utils"
)

// bookingDate is the day after the fixture clock's start.
const bookingDate = "2026-06-02"

type catalog struct {
	jetSki     *domain.Resource
	atv        *domain.Resource
	diving     *domain.Resource
	surfboard  *domain.Resource
	helmetM    *domain.Resource
	helmetL    *domain.Resource
	lifeJacket *domain.Resource
}

type fixture struct {
	store     *memory.Store
	clock     *fixedClock
	inventory service.InventoryService
	svc       service.ReservationService
	sweeper   service.ExpirationSweeper
	avail     service.AvailabilityService
	catalog   catalog
	staff     *domain.Actor
	customer  *domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &fixedClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	calendar := utils.NewSlotCalendar(time.UTC)
	inventory := service.NewInventoryService(store.BookingRepository)
	resolver := service.NewEquipmentResolver(store.ResourceRepository, inventory)
	notifier := service.NoopNotifier{}

	f := &fixture{
		store:     store,
		clock:     clock,
		inventory: inventory,
		svc: service.NewReservationService(store.ResourceRepository, store.ReservationRepository,
			inventory, resolver, notifier, calendar, clock, service.DefaultBookingPolicy),
		sweeper:  service.NewExpirationSweeper(store.ReservationRepository, inventory, notifier),
		avail:    service.NewAvailabilityService(store.ResourceRepository, store.BookingRepository, calendar),
		staff:    domain.NewActor("staff-1", domain.RoleStaff, nil),
		customer: domain.NewActor("cust-1", domain.RoleCustomer, nil),
	}

	f.catalog = catalog{
		jetSki:     f.seed(t, "Jet Ski", domain.CategoryJetSki, "", 10000, 1),
		atv:        f.seed(t, "ATV", domain.CategoryATV, "", 8000, 3),
		diving:     f.seed(t, "Diving Set", domain.CategoryDivingEquipment, "", 4000, 10),
		surfboard:  f.seed(t, "Surfboard", domain.CategorySurfboard, domain.SizeAdult, 2500, 8),
		helmetM:    f.seed(t, "Helmet M", domain.CategoryHelmet, domain.SizeM, 0, 4),
		helmetL:    f.seed(t, "Helmet L", domain.CategoryHelmet, domain.SizeL, 0, 1),
		lifeJacket: f.seed(t, "Life Jacket M", domain.CategoryLifeJacket, domain.SizeM, 0, 10),
	}
	return f
}

func (f *fixture) seed(t *testing.T, name string, c domain.Category, size domain.Size, price, qty int32) *domain.Resource {
	t.Helper()
	res := &domain.Resource{
		Name: name, Category: c, Size: size, PriceCents: price, Quantity: qty,
		Status: domain.ResourceStatusAvailable,
	}
	require.NoError(t, res.Validate())
	require.NoError(t, f.store.ResourceRepository.Create(context.Background(), res))
	return res
}

func customer() domain.Customer {
	return domain.Customer{Name: "Dana", Contact: "dana@example.com"}
}

// jetSkiInput books the single jet ski for one rider.
func (f *fixture) jetSkiInput(slots ...int) service.CreateReservationInput {
	return service.CreateReservationInput{
		Customer: customer(),
		Date:     bookingDate,
		Slots:    slots,
		Items:    []service.LineItemInput{{ResourceID: f.catalog.jetSki.ID, Quantity: 1}},
		Riders:   1,
		SafetyGear: []service.GearRequest{
			{Category: domain.CategoryHelmet, Size: domain.SizeM, Quantity: 1},
			{Category: domain.CategoryLifeJacket, Size: domain.SizeM, Quantity: 1},
		},
	}
}

func (f *fixture) committed(t *testing.T, res *domain.Resource, slot int) int32 {
	t.Helper()
	l, err := f.store.BookingRepository.Ledger(context.Background(), res.ID, bookingDate)
	require.NoError(t, err)
	return l.Committed(bookingDate, slot)
}
