package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"beachrental-backend/internal/domain"
)

type reservationRepository struct {
	st *state
}

func clone(r *domain.Reservation) *domain.Reservation {
	cp := *r
	cp.Items = append([]domain.ReservationItem(nil), r.Items...)
	cp.SafetyGear = append([]domain.ReservationItem(nil), r.SafetyGear...)
	cp.Slots = append([]int(nil), r.Slots...)
	for i := range cp.Items {
		cp.Items[i].Resource = nil
	}
	for i := range cp.SafetyGear {
		cp.SafetyGear[i].Resource = nil
	}
	if r.PaymentMethod != nil {
		m := *r.PaymentMethod
		cp.PaymentMethod = &m
	}
	return &cp
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	res.CreatedOn, res.UpdatedOn = now, now

	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.reservations[res.ID] = clone(res)
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	res, ok := r.st.reservations[id]
	if !ok {
		return nil, domain.NotFoundf("reservation %s", id)
	}
	return clone(res), nil
}

func (r *reservationRepository) list(match func(*domain.Reservation) bool) []domain.Reservation {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	var out []domain.Reservation
	for _, res := range r.st.reservations {
		if match(res) {
			out = append(out, *clone(res))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if !out[i].CreatedOn.Equal(out[j].CreatedOn) {
			return out[i].CreatedOn.Before(out[j].CreatedOn)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *reservationRepository) ListByDateRange(ctx context.Context, from, to string) ([]domain.Reservation, error) {
	return r.list(func(res *domain.Reservation) bool {
		return (from == "" || res.Date >= from) && (to == "" || res.Date <= to)
	}), nil
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.reservations[res.ID]
	if !ok {
		return domain.NotFoundf("reservation %s", res.ID)
	}
	if cur.WeatherLocked() && cur.WeatherCondition != res.WeatherCondition {
		return domain.ErrStaleReservation
	}
	cur.Customer = res.Customer
	cur.WeatherCondition = res.WeatherCondition
	cur.UpdatedOn = time.Now().UTC()
	res.UpdatedOn = cur.UpdatedOn
	return nil
}

func (r *reservationRepository) Transition(ctx context.Context, res *domain.Reservation, from domain.StatusPair) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cur, ok := r.st.reservations[res.ID]
	if !ok {
		return false, domain.NotFoundf("reservation %s", res.ID)
	}
	if cur.Status() != from {
		return false, nil
	}
	cur.PaymentStatus = res.PaymentStatus
	cur.CancellationStatus = res.CancellationStatus
	cur.WeatherCondition = res.WeatherCondition
	cur.RefundAmountCents = res.RefundAmountCents
	if res.PaymentMethod != nil {
		m := *res.PaymentMethod
		cur.PaymentMethod = &m
	}
	cur.UpdatedOn = time.Now().UTC()
	res.UpdatedOn = cur.UpdatedOn
	return true, nil
}

func (r *reservationRepository) ListExpirable(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	return r.list(func(res *domain.Reservation) bool {
		return res.PaymentStatus == domain.PaymentStatusPending &&
			res.CancellationStatus == domain.CancellationStatusNone &&
			res.PaymentDeadline.Before(now)
	}), nil
}
