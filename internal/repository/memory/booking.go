package memory

import (
	"context"

	"beachrental-backend/internal/domain"
)

type bookingRepository struct {
	st *state
}

func (r *bookingRepository) quantity(resourceID string) (int32, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	res, ok := r.st.resources[resourceID]
	if !ok {
		return 0, domain.NotFoundf("resource %s", resourceID)
	}
	return res.Quantity, nil
}

func (r *bookingRepository) Ledger(ctx context.Context, resourceID, date string) (domain.Ledger, error) {
	lock, ledger := r.st.resourceLock(resourceID)
	lock.Lock()
	defer lock.Unlock()

	out := domain.Ledger{}
	for k, q := range ledger {
		if k.Date == date {
			out[k] = q
		}
	}
	return out, nil
}

func (r *bookingRepository) LedgersForDate(ctx context.Context, date string) (map[string]domain.Ledger, error) {
	r.st.mu.RLock()
	ids := make([]string, 0, len(r.st.resources))
	for id := range r.st.resources {
		ids = append(ids, id)
	}
	r.st.mu.RUnlock()

	out := make(map[string]domain.Ledger, len(ids))
	for _, id := range ids {
		l, err := r.Ledger(ctx, id, date)
		if err != nil {
			return nil, err
		}
		if len(l) > 0 {
			out[id] = l
		}
	}
	return out, nil
}

func (r *bookingRepository) Commit(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty < 1 {
		return domain.Validationf("booking quantity must be at least 1, got %d", qty)
	}
	total, err := r.quantity(resourceID)
	if err != nil {
		return err
	}

	lock, ledger := r.st.resourceLock(resourceID)
	lock.Lock()
	defer lock.Unlock()

	if ok, slot := ledger.Fits(total, date, slots, qty); !ok {
		return &domain.ConflictError{
			ResourceID: resourceID,
			Date:       date,
			Slot:       slot,
			Requested:  qty,
			Available:  ledger.Available(total, date, slot),
		}
	}
	ledger.Commit(date, slots, qty)
	return nil
}

func (r *bookingRepository) Release(ctx context.Context, resourceID, date string, slots []int, qty int32) error {
	if qty < 1 {
		return domain.Validationf("booking quantity must be at least 1, got %d", qty)
	}
	lock, ledger := r.st.resourceLock(resourceID)
	lock.Lock()
	defer lock.Unlock()
	return ledger.Release(date, slots, qty)
}
