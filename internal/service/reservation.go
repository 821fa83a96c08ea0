package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
	"beachrental-backend/internal/utils"
)

// BookingPolicy holds the booking windows, both measured from slot starts.
type BookingPolicy struct {
	// MaxAdvance bounds how far ahead of now a reservation date may start.
	MaxAdvance time.Duration
	// DeadlineOffset is subtracted from the first slot start to get the
	// payment and cancellation deadline.
	DeadlineOffset time.Duration
}

// DefaultBookingPolicy is 48 hours ahead with a 2 hour deadline.
var DefaultBookingPolicy = BookingPolicy{MaxAdvance: 48 * time.Hour, DeadlineOffset: 2 * time.Hour}

type LineItemInput struct {
	ResourceID string `json:"resource_id"`
	Quantity   int32  `json:"quantity"`
}

type CreateReservationInput struct {
	Customer   domain.Customer `json:"customer"`
	Date       string          `json:"date"`
	Slots      []int           `json:"slots"`
	Items      []LineItemInput `json:"items"`
	Riders     int32           `json:"riders"`
	SafetyGear []GearRequest   `json:"safety_gear"`
}

// UpdateReservationInput patches the editable fields. Nil fields are kept.
type UpdateReservationInput struct {
	CustomerName     *string                  `json:"customer_name,omitempty"`
	CustomerContact  *string                  `json:"customer_contact,omitempty"`
	WeatherCondition *domain.WeatherCondition `json:"weather_condition,omitempty"`
}

type CancelResult struct {
	Reservation *domain.Reservation `json:"reservation"`
	Refunded    bool                `json:"refunded"`
	Message     string              `json:"message"`
}

type StormRefundResult struct {
	Reservation       *domain.Reservation `json:"reservation"`
	RefundAmountCents int32               `json:"refund_amount_cents"`
	Message           string              `json:"message"`
}

type reservationService struct {
	resources    repository.ResourceRepository
	reservations repository.ReservationRepository
	inventory    InventoryService
	resolver     EquipmentResolver
	notifier     Notifier
	calendar     *utils.SlotCalendar
	clock        utils.Clock
	policy       BookingPolicy
}

func NewReservationService(
	resources repository.ResourceRepository,
	reservations repository.ReservationRepository,
	inventory InventoryService,
	resolver EquipmentResolver,
	notifier Notifier,
	calendar *utils.SlotCalendar,
	clock utils.Clock,
	policy BookingPolicy,
) ReservationService {
	return &reservationService{
		resources:    resources,
		reservations: reservations,
		inventory:    inventory,
		resolver:     resolver,
		notifier:     notifier,
		calendar:     calendar,
		clock:        clock,
		policy:       policy,
	}
}

func (s *reservationService) Create(ctx context.Context, actor *domain.Actor, in CreateReservationInput) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Create", "date", in.Date, "slots", in.Slots, "items", len(in.Items))

	res, err := s.create(ctx, actor, in)
	if err != nil {
		logger.ExitMethodWithError("reservationService.Create", err)
		return nil, err
	}

	_ = s.notifier.ReservationCreated(ctx, res)
	logger.Info("Reservation created",
		"reservation_id", res.ID, "date", res.Date, "slots", res.Slots, "total_cents", res.TotalPriceCents)
	logger.ExitMethod("reservationService.Create", "reservation_id", res.ID)
	return res, nil
}

func (s *reservationService) create(ctx context.Context, actor *domain.Actor, in CreateReservationInput) (*domain.Reservation, error) {
	if err := actor.Require(domain.CapCreateReservations); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	day, err := s.calendar.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if day.After(now.Add(s.policy.MaxAdvance)) {
		return nil, domain.Validationf("reservations can only be made up to %s in advance", formatHours(s.policy.MaxAdvance))
	}

	slots, err := utils.NormalizeSlots(in.Slots)
	if err != nil {
		return nil, err
	}
	start, err := s.calendar.SlotStart(in.Date, slots[0])
	if err != nil {
		return nil, err
	}
	if !start.After(now) {
		return nil, domain.Validationf("cannot book a time slot that has already started")
	}

	customer := domain.Customer{
		Name:    strings.TrimSpace(in.Customer.Name),
		Contact: strings.TrimSpace(in.Customer.Contact),
	}
	if customer.Name == "" || customer.Contact == "" {
		return nil, domain.Validationf("customer name and contact are required")
	}

	lines, err := s.loadLines(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		ok, slot, err := s.inventory.CheckAvailability(ctx, l.Resource, in.Date, slots, l.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			avail, err := s.inventory.AvailableQuantity(ctx, l.Resource, in.Date, slot)
			if err != nil {
				return nil, err
			}
			return nil, &domain.ConflictError{
				ResourceID: l.Resource.ID, Date: in.Date, Slot: slot, Requested: l.Quantity, Available: avail,
			}
		}
	}

	gear, err := s.resolver.Resolve(ctx, GearResolution{
		Date:   in.Date,
		Slots:  slots,
		Items:  lines,
		Riders: in.Riders,
		Gear:   in.SafetyGear,
	})
	if err != nil {
		return nil, err
	}

	priced := make([]utils.PricedLine, len(lines))
	items := make([]domain.ReservationItem, len(lines))
	for i, l := range lines {
		priced[i] = utils.PricedLine{PriceCents: l.Resource.PriceCents, Quantity: l.Quantity}
		items[i] = domain.ReservationItem{ResourceID: l.Resource.ID, Quantity: l.Quantity}
	}
	price, err := utils.CalculateReservationPrice(priced, len(slots))
	if err != nil {
		return nil, err
	}

	riders := in.Riders
	if len(gear) == 0 {
		riders = 0
	}

	res := &domain.Reservation{
		Customer:           customer,
		CreatedBy:          actor.ID,
		Items:              items,
		SafetyGear:         gear,
		Riders:             riders,
		Date:               in.Date,
		Slots:              slots,
		GrossPriceCents:    price.GrossCents,
		DiscountCents:      price.DiscountCents,
		TotalPriceCents:    price.TotalCents,
		PaymentStatus:      domain.PaymentStatusPending,
		CancellationStatus: domain.CancellationStatusNone,
		WeatherCondition:   domain.WeatherSunny,
		PaymentDeadline:    start.Add(-s.policy.DeadlineOffset),
	}
	if actor.Role == domain.RoleCustomer {
		res.OwnerID = actor.ID
	}

	allocations := res.Allocations()
	if err := s.inventory.CommitAll(ctx, in.Date, slots, allocations); err != nil {
		return nil, err
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		if rerr := s.inventory.ReleaseAll(ctx, in.Date, slots, allocations); rerr != nil {
			logger.Error("Failed to release ledger after reservation insert failed", "error", rerr)
		}
		return nil, fmt.Errorf("failed to save reservation: %w", err)
	}
	return res, nil
}

// loadLines merges duplicate resource ids and loads each rentable resource.
func (s *reservationService) loadLines(ctx context.Context, in []LineItemInput) ([]RentedLine, error) {
	if len(in) == 0 {
		return nil, domain.Validationf("at least one product must be selected")
	}

	var order []string
	qty := map[string]int64{}
	for _, it := range in {
		if it.ResourceID == "" {
			return nil, domain.Validationf("product id is required")
		}
		if it.Quantity < 1 {
			return nil, domain.Validationf("quantity for %s must be at least 1", it.ResourceID)
		}
		if _, seen := qty[it.ResourceID]; !seen {
			order = append(order, it.ResourceID)
		}
		qty[it.ResourceID] += int64(it.Quantity)
	}

	lines := make([]RentedLine, 0, len(order))
	for _, id := range order {
		res, err := s.resources.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !res.Category.IsRentable() {
			return nil, domain.Validationf("%s is %s and cannot be rented directly", res.Name, res.Category)
		}
		if !res.Bookable() {
			return nil, domain.Validationf("%s is %s", res.Name, res.Status)
		}
		if qty[id] > int64(res.Quantity) {
			return nil, domain.Validationf("requested %d of %s but only %d exist", qty[id], res.Name, res.Quantity)
		}
		lines = append(lines, RentedLine{Resource: res, Quantity: int32(qty[id])})
	}
	return lines, nil
}

func (s *reservationService) Get(ctx context.Context, actor *domain.Actor, id string) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Get", "reservation_id", id)

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("reservationService.Get", err)
		return nil, err
	}
	if !actor.Owns(res) {
		if err := actor.Require(domain.CapViewReservations); err != nil {
			logger.ExitMethodWithError("reservationService.Get", err)
			return nil, err
		}
	}
	if err := s.expand(ctx, res); err != nil {
		logger.ExitMethodWithError("reservationService.Get", err)
		return nil, err
	}

	logger.ExitMethod("reservationService.Get")
	return res, nil
}

// expand attaches the referenced resources for display. Deleted resources
// are left unset.
func (s *reservationService) expand(ctx context.Context, res *domain.Reservation) error {
	cache := map[string]*domain.Resource{}
	fill := func(items []domain.ReservationItem) error {
		for i := range items {
			id := items[i].ResourceID
			if r, ok := cache[id]; ok {
				items[i].Resource = r
				continue
			}
			r, err := s.resources.GetByID(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			cache[id] = r
			items[i].Resource = r
		}
		return nil
	}
	if err := fill(res.Items); err != nil {
		return err
	}
	return fill(res.SafetyGear)
}

func (s *reservationService) ListByDate(ctx context.Context, actor *domain.Actor, date string) ([]domain.Reservation, error) {
	if _, err := s.calendar.ParseDate(date); err != nil {
		return nil, err
	}
	return s.ListByDateRange(ctx, actor, date, date)
}

func (s *reservationService) ListByDateRange(ctx context.Context, actor *domain.Actor, from, to string) ([]domain.Reservation, error) {
	logger.EnterMethod("reservationService.ListByDateRange", "from", from, "to", to)

	if err := actor.Require(domain.CapViewReservations); err != nil {
		logger.ExitMethodWithError("reservationService.ListByDateRange", err)
		return nil, err
	}
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := s.calendar.ParseDate(d); err != nil {
			logger.ExitMethodWithError("reservationService.ListByDateRange", err)
			return nil, err
		}
	}
	if from != "" && to != "" && from > to {
		err := domain.Validationf("start date %s is after end date %s", from, to)
		logger.ExitMethodWithError("reservationService.ListByDateRange", err)
		return nil, err
	}

	list, err := s.reservations.ListByDateRange(ctx, from, to)
	if err != nil {
		logger.ExitMethodWithError("reservationService.ListByDateRange", err)
		return nil, err
	}
	for i := range list {
		if err := s.expand(ctx, &list[i]); err != nil {
			logger.ExitMethodWithError("reservationService.ListByDateRange", err)
			return nil, err
		}
	}

	logger.ExitMethod("reservationService.ListByDateRange", "count", len(list))
	return list, nil
}

func (s *reservationService) Update(ctx context.Context, actor *domain.Actor, id string, in UpdateReservationInput) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Update", "reservation_id", id)

	if err := actor.Require(domain.CapEditReservations); err != nil {
		logger.ExitMethodWithError("reservationService.Update", err)
		return nil, err
	}
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("reservationService.Update", err)
		return nil, err
	}

	if in.CustomerName != nil {
		name := strings.TrimSpace(*in.CustomerName)
		if name == "" {
			return nil, domain.Validationf("customer name must not be empty")
		}
		res.Customer.Name = name
	}
	if in.CustomerContact != nil {
		contact := strings.TrimSpace(*in.CustomerContact)
		if contact == "" {
			return nil, domain.Validationf("customer contact must not be empty")
		}
		res.Customer.Contact = contact
	}
	if in.WeatherCondition != nil {
		w, err := domain.ParseWeatherCondition(string(*in.WeatherCondition))
		if err != nil {
			return nil, err
		}
		if w == domain.WeatherStorm && w != res.WeatherCondition {
			return nil, domain.Validationf("storm weather is recorded through a storm refund")
		}
		if res.WeatherLocked() && w != res.WeatherCondition {
			return nil, domain.Validationf("weather of a storm-refunded reservation cannot be changed")
		}
		res.WeatherCondition = w
	}

	if err := s.reservations.Update(ctx, res); err != nil {
		logger.ExitMethodWithError("reservationService.Update", err)
		return nil, err
	}

	logger.ExitMethod("reservationService.Update")
	return res, nil
}

func (s *reservationService) Pay(ctx context.Context, actor *domain.Actor, id string, method domain.PaymentMethod) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService.Pay", "reservation_id", id, "type", method.Type, "currency", method.Currency)

	if err := actor.Require(domain.CapProcessPayments); err != nil {
		logger.ExitMethodWithError("reservationService.Pay", err)
		return nil, err
	}
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("reservationService.Pay", err)
		return nil, err
	}

	from := res.Status()
	if err := res.MarkPaid(method); err != nil {
		logger.ExitMethodWithError("reservationService.Pay", err)
		return nil, err
	}
	if err := s.transition(ctx, res, from); err != nil {
		logger.ExitMethodWithError("reservationService.Pay", err)
		return nil, err
	}

	logger.Info("Reservation paid", "reservation_id", res.ID, "total_cents", res.TotalPriceCents)
	logger.ExitMethod("reservationService.Pay")
	return res, nil
}

func (s *reservationService) Cancel(ctx context.Context, actor *domain.Actor, id string) (*CancelResult, error) {
	logger.EnterMethod("reservationService.Cancel", "reservation_id", id)

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("reservationService.Cancel", err)
		return nil, err
	}

	privileged := actor.Can(domain.CapManageReservations)
	if !privileged && !actor.Owns(res) {
		err := domain.Unauthorizedf("not authorized to cancel reservation %s", id)
		logger.ExitMethodWithError("reservationService.Cancel", err)
		return nil, err
	}

	beforeDeadline := s.clock.Now().Before(res.PaymentDeadline)
	if !beforeDeadline && !privileged {
		err := domain.Unauthorizedf("cancellation deadline has passed, contact staff to cancel")
		logger.ExitMethodWithError("reservationService.Cancel", err)
		return nil, err
	}

	from := res.Status()
	wasPaid := res.State() == domain.StatePaid
	if err := res.Cancel(beforeDeadline); err != nil {
		logger.ExitMethodWithError("reservationService.Cancel", err)
		return nil, err
	}
	if err := s.transition(ctx, res, from); err != nil {
		logger.ExitMethodWithError("reservationService.Cancel", err)
		return nil, err
	}
	s.release(ctx, res)

	refunded := res.PaymentStatus == domain.PaymentStatusRefunded
	msg := "Reservation canceled"
	switch {
	case refunded:
		msg = "Reservation canceled with full refund"
	case wasPaid:
		msg = "Reservation canceled without refund"
	}

	_ = s.notifier.ReservationCanceled(ctx, res, refunded)
	logger.Info(msg, "reservation_id", res.ID, "refund_cents", res.RefundAmountCents)
	logger.ExitMethod("reservationService.Cancel", "refunded", refunded)
	return &CancelResult{Reservation: res, Refunded: refunded, Message: msg}, nil
}

func (s *reservationService) StormRefund(ctx context.Context, actor *domain.Actor, id string) (*StormRefundResult, error) {
	logger.EnterMethod("reservationService.StormRefund", "reservation_id", id)

	if err := actor.Require(domain.CapProcessPayments); err != nil {
		logger.ExitMethodWithError("reservationService.StormRefund", err)
		return nil, err
	}
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("reservationService.StormRefund", err)
		return nil, err
	}

	from := res.Status()
	if err := res.ApplyStormRefund(); err != nil {
		logger.ExitMethodWithError("reservationService.StormRefund", err)
		return nil, err
	}
	if err := s.transition(ctx, res, from); err != nil {
		logger.ExitMethodWithError("reservationService.StormRefund", err)
		return nil, err
	}
	s.release(ctx, res)

	_ = s.notifier.StormRefundIssued(ctx, res)
	logger.Info("Storm refund processed", "reservation_id", res.ID, "refund_cents", res.RefundAmountCents)
	logger.ExitMethod("reservationService.StormRefund")
	return &StormRefundResult{
		Reservation:       res,
		RefundAmountCents: res.RefundAmountCents,
		Message:           "Storm refund processed successfully",
	}, nil
}

// transition persists a lifecycle change guarded on the statuses read before it.
func (s *reservationService) transition(ctx context.Context, res *domain.Reservation, from domain.StatusPair) error {
	ok, err := s.reservations.Transition(ctx, res, from)
	if err != nil {
		return fmt.Errorf("failed to update reservation %s: %w", res.ID, err)
	}
	if !ok {
		return domain.ErrStaleReservation
	}
	return nil
}

// release frees every ledger entry held by a reservation that has just left
// the active states. The status change is already stored, so failures are
// logged rather than returned.
func (s *reservationService) release(ctx context.Context, res *domain.Reservation) {
	if err := s.inventory.ReleaseAll(ctx, res.Date, res.Slots, res.Allocations()); err != nil {
		logger.Error("Failed to release reservation inventory", "reservation_id", res.ID, "error", err)
	}
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%d hours", int(d.Hours()))
}
