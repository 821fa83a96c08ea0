package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "pending"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusPartialRefund PaymentStatus = "partial-refund"
	PaymentStatusCanceled      PaymentStatus = "canceled"
)

type CancellationStatus string

const (
	CancellationStatusNone           CancellationStatus = "none"
	CancellationStatusCanceled       CancellationStatus = "canceled"
	CancellationStatusStormRefund    CancellationStatus = "storm-refund"
	CancellationStatusPaymentExpired CancellationStatus = "payment-expired"
)

type WeatherCondition string

const (
	WeatherSunny  WeatherCondition = "sunny"
	WeatherCloudy WeatherCondition = "cloudy"
	WeatherRainy  WeatherCondition = "rainy"
	WeatherStorm  WeatherCondition = "storm"
)

func ParseWeatherCondition(s string) (WeatherCondition, error) {
	switch WeatherCondition(s) {
	case WeatherSunny, WeatherCloudy, WeatherRainy, WeatherStorm:
		return WeatherCondition(s), nil
	}
	return "", Validationf("unknown weather condition %q", s)
}

type PaymentType string

const (
	PaymentTypeCash PaymentType = "cash"
	PaymentTypeCard PaymentType = "card"
)

type Currency string

const (
	CurrencyLocal   Currency = "local"
	CurrencyForeign Currency = "foreign"
)

type PaymentMethod struct {
	Type     PaymentType `json:"type"`
	Currency Currency    `json:"currency"`
}

func (m PaymentMethod) Validate() error {
	if m.Type == "" || m.Currency == "" {
		return Validationf("payment method and currency are required")
	}
	if m.Type != PaymentTypeCash && m.Type != PaymentTypeCard {
		return Validationf("unknown payment type %q", m.Type)
	}
	if m.Currency != CurrencyLocal && m.Currency != CurrencyForeign {
		return Validationf("unknown currency %q", m.Currency)
	}
	return nil
}

type Customer struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// ReservationItem is one committed allocation. Resource is only populated
// when the reservation is fetched for display.
type ReservationItem struct {
	ResourceID string    `json:"resource_id"`
	Quantity   int32     `json:"quantity"`
	Resource   *Resource `json:"resource,omitempty"`
}

// LifecycleState is the position of a reservation in its state machine,
// derived from the payment and cancellation statuses.
type LifecycleState string

const (
	StatePending        LifecycleState = "PENDING"
	StatePaid           LifecycleState = "PAID"
	StateRefunded       LifecycleState = "REFUNDED"
	StatePartialRefund  LifecycleState = "PARTIAL_REFUND"
	StateCanceled       LifecycleState = "CANCELED"
	StatePaymentExpired LifecycleState = "PAYMENT_EXPIRED"
)

// StatusPair is the persisted pair a conditional update is guarded on.
type StatusPair struct {
	Payment      PaymentStatus
	Cancellation CancellationStatus
}

type Reservation struct {
	ID                 string             `json:"id"`
	Customer           Customer           `json:"customer"`
	OwnerID            string             `json:"owner_id,omitempty"`
	CreatedBy          string             `json:"created_by"`
	Items              []ReservationItem  `json:"items"`
	SafetyGear         []ReservationItem  `json:"safety_gear"`
	Riders             int32              `json:"riders"`
	Date               string             `json:"date"`
	Slots              []int              `json:"slots"`
	GrossPriceCents    int32              `json:"gross_price_cents"`
	DiscountCents      int32              `json:"discount_cents"`
	TotalPriceCents    int32              `json:"total_price_cents"`
	RefundAmountCents  int32              `json:"refund_amount_cents"`
	PaymentStatus      PaymentStatus      `json:"payment_status"`
	PaymentMethod      *PaymentMethod     `json:"payment_method,omitempty"`
	CancellationStatus CancellationStatus `json:"cancellation_status"`
	WeatherCondition   WeatherCondition   `json:"weather_condition"`
	PaymentDeadline    time.Time          `json:"payment_deadline"`
	CreatedOn          time.Time          `json:"created_on"`
	UpdatedOn          time.Time          `json:"updated_on"`
}

func (r *Reservation) Status() StatusPair {
	return StatusPair{Payment: r.PaymentStatus, Cancellation: r.CancellationStatus}
}

func (r *Reservation) State() LifecycleState {
	switch r.CancellationStatus {
	case CancellationStatusNone:
		if r.PaymentStatus == PaymentStatusPaid {
			return StatePaid
		}
		return StatePending
	case CancellationStatusStormRefund:
		return StatePartialRefund
	case CancellationStatusPaymentExpired:
		return StatePaymentExpired
	}
	if r.PaymentStatus == PaymentStatusRefunded {
		return StateRefunded
	}
	return StateCanceled
}

// Active reports whether the reservation still holds ledger commitments.
func (r *Reservation) Active() bool {
	return r.CancellationStatus == CancellationStatusNone
}

// WeatherLocked reports whether the recorded weather backs a storm refund and
// can no longer change.
func (r *Reservation) WeatherLocked() bool {
	return r.CancellationStatus == CancellationStatusStormRefund
}

// Allocations returns every committed line: rented items then safety gear.
func (r *Reservation) Allocations() []ReservationItem {
	out := make([]ReservationItem, 0, len(r.Items)+len(r.SafetyGear))
	out = append(out, r.Items...)
	return append(out, r.SafetyGear...)
}

// MarkPaid moves PENDING to PAID.
func (r *Reservation) MarkPaid(method PaymentMethod) error {
	if err := method.Validate(); err != nil {
		return err
	}
	if r.State() != StatePending {
		return Validationf("reservation %s is %s, only pending reservations can be paid", r.ID, r.State())
	}
	r.PaymentStatus = PaymentStatusPaid
	r.PaymentMethod = &method
	return nil
}

// Cancel ends an active reservation. A paid reservation is refunded only when
// refund is true; otherwise it stays paid.
func (r *Reservation) Cancel(refund bool) error {
	if !r.Active() {
		return Validationf("reservation %s is already %s", r.ID, r.State())
	}
	r.CancellationStatus = CancellationStatusCanceled
	switch r.PaymentStatus {
	case PaymentStatusPending:
		r.PaymentStatus = PaymentStatusCanceled
	case PaymentStatusPaid:
		if refund {
			r.PaymentStatus = PaymentStatusRefunded
			r.RefundAmountCents = r.TotalPriceCents
		}
	}
	return nil
}

// ApplyStormRefund moves PAID to PARTIAL_REFUND with half the total refunded.
func (r *Reservation) ApplyStormRefund() error {
	if r.State() != StatePaid {
		return Validationf("cannot process refund for unpaid reservation")
	}
	r.CancellationStatus = CancellationStatusStormRefund
	r.PaymentStatus = PaymentStatusPartialRefund
	r.WeatherCondition = WeatherStorm
	r.RefundAmountCents = r.TotalPriceCents / 2
	return nil
}

// Expire moves PENDING to PAYMENT_EXPIRED once the deadline has passed.
func (r *Reservation) Expire(now time.Time) error {
	if r.State() != StatePending {
		return Validationf("reservation %s is %s, only pending reservations expire", r.ID, r.State())
	}
	if !r.PaymentDeadline.Before(now) {
		return Validationf("reservation %s payment deadline has not passed", r.ID)
	}
	r.PaymentStatus = PaymentStatusCanceled
	r.CancellationStatus = CancellationStatusPaymentExpired
	return nil
}
