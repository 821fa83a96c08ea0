package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"beachrental-backend/internal/domain"
	"beachrental-backend/internal/logger"
	"beachrental-backend/internal/repository"
)

const (
	itemKindProduct    = "product"
	itemKindSafetyGear = "safety_gear"
)

type reservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

const reservationColumns = `id, customer_name, customer_contact, owner_id, created_by, riders,
	to_char(reservation_date, 'YYYY-MM-DD'), slots, gross_price_cents, discount_cents, total_price_cents,
	refund_amount_cents, payment_status, payment_type, payment_currency, cancellation_status,
	weather_condition, payment_deadline, created_on, updated_on`

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var slots pq.Int64Array
	var payType, payCurrency string
	err := row.Scan(&res.ID, &res.Customer.Name, &res.Customer.Contact, &res.OwnerID, &res.CreatedBy, &res.Riders,
		&res.Date, &slots, &res.GrossPriceCents, &res.DiscountCents, &res.TotalPriceCents,
		&res.RefundAmountCents, &res.PaymentStatus, &payType, &payCurrency, &res.CancellationStatus,
		&res.WeatherCondition, &res.PaymentDeadline, &res.CreatedOn, &res.UpdatedOn)
	if err != nil {
		return nil, err
	}
	res.Slots = make([]int, len(slots))
	for i, s := range slots {
		res.Slots[i] = int(s)
	}
	if payType != "" {
		res.PaymentMethod = &domain.PaymentMethod{Type: domain.PaymentType(payType), Currency: domain.Currency(payCurrency)}
	}
	return res, nil
}

func paymentColumns(res *domain.Reservation) (string, string) {
	if res.PaymentMethod == nil {
		return "", ""
	}
	return string(res.PaymentMethod.Type), string(res.PaymentMethod.Currency)
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.Create", "date", res.Date, "slots", res.Slots)

	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err)
		return err
	}
	defer tx.Rollback()

	slots := make(pq.Int64Array, len(res.Slots))
	for i, s := range res.Slots {
		slots[i] = int64(s)
	}
	payType, payCurrency := paymentColumns(res)

	query := `INSERT INTO reservations (
			id, customer_name, customer_contact, owner_id, created_by, riders, reservation_date, slots,
			gross_price_cents, discount_cents, total_price_cents, refund_amount_cents, payment_status,
			payment_type, payment_currency, cancellation_status, weather_condition, payment_deadline,
			created_on, updated_on
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err = tx.ExecContext(ctx, query,
		res.ID, res.Customer.Name, res.Customer.Contact, res.OwnerID, res.CreatedBy, res.Riders, res.Date, slots,
		res.GrossPriceCents, res.DiscountCents, res.TotalPriceCents, res.RefundAmountCents, res.PaymentStatus,
		payType, payCurrency, res.CancellationStatus, res.WeatherCondition, res.PaymentDeadline,
		now, now,
	)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err, "reservationID", res.ID)
		return err
	}

	itemQuery := `INSERT INTO reservation_items (reservation_id, kind, position, resource_id, quantity)
	              VALUES ($1, $2, $3, $4, $5)`
	insert := func(kind string, items []domain.ReservationItem) error {
		for i, it := range items {
			if _, err := tx.ExecContext(ctx, itemQuery, res.ID, kind, i, it.ResourceID, it.Quantity); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(itemKindProduct, res.Items); err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err, "reservationID", res.ID)
		return err
	}
	if err := insert(itemKindSafetyGear, res.SafetyGear); err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err, "reservationID", res.ID)
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err, "reservationID", res.ID)
		return err
	}
	res.CreatedOn, res.UpdatedOn = now, now
	logger.ExitMethod("reservationRepository.Create", "reservationID", res.ID)
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	if !validID(id) {
		return nil, domain.NotFoundf("reservation %s", id)
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("reservation %s", id)
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, []*domain.Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

// attachItems loads line items and safety gear for a batch of reservations.
func (r *reservationRepository) attachItems(ctx context.Context, list []*domain.Reservation) error {
	if len(list) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Reservation, len(list))
	ids := make([]string, 0, len(list))
	for _, res := range list {
		byID[res.ID] = res
		ids = append(ids, res.ID)
	}

	query := `SELECT reservation_id, kind, resource_id, quantity FROM reservation_items
	          WHERE reservation_id = ANY($1) ORDER BY reservation_id, kind, position`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var resID, kind string
		var it domain.ReservationItem
		if err := rows.Scan(&resID, &kind, &it.ResourceID, &it.Quantity); err != nil {
			return err
		}
		res, ok := byID[resID]
		if !ok {
			continue
		}
		if kind == itemKindSafetyGear {
			res.SafetyGear = append(res.SafetyGear, it)
		} else {
			res.Items = append(res.Items, it)
		}
	}
	return rows.Err()
}

func (r *reservationRepository) query(ctx context.Context, where string, args ...any) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY reservation_date, created_on, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}

	out := make([]domain.Reservation, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out, nil
}

func (r *reservationRepository) ListByDateRange(ctx context.Context, from, to string) ([]domain.Reservation, error) {
	var where []string
	var args []any
	if from != "" {
		args = append(args, from)
		where = append(where, fmt.Sprintf("reservation_date >= $%d", len(args)))
	}
	if to != "" {
		args = append(args, to)
		where = append(where, fmt.Sprintf("reservation_date <= $%d", len(args)))
	}
	return r.query(ctx, strings.Join(where, " AND "), args...)
}

// Update writes the editable fields. The weather of a storm-refunded
// reservation is fixed, so a write that would change it matches no row.
func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	if !validID(res.ID) {
		return domain.NotFoundf("reservation %s", res.ID)
	}
	now := time.Now().UTC()
	query := `UPDATE reservations SET customer_name=$1, customer_contact=$2, weather_condition=$3, updated_on=$4
	          WHERE id=$5 AND (cancellation_status <> $6 OR weather_condition = $3)`
	result, err := r.db.ExecContext(ctx, query, res.Customer.Name, res.Customer.Contact, res.WeatherCondition, now,
		res.ID, domain.CancellationStatusStormRefund)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, res.ID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrStaleReservation
		}
		return domain.NotFoundf("reservation %s", res.ID)
	}
	res.UpdatedOn = now
	return nil
}

func (r *reservationRepository) Transition(ctx context.Context, res *domain.Reservation, from domain.StatusPair) (bool, error) {
	logger.EnterMethod("reservationRepository.Transition", "reservationID", res.ID,
		"from", from, "toPayment", res.PaymentStatus, "toCancellation", res.CancellationStatus)

	if !validID(res.ID) {
		err := domain.NotFoundf("reservation %s", res.ID)
		logger.ExitMethodWithError("reservationRepository.Transition", err)
		return false, err
	}
	now := time.Now().UTC()
	payType, payCurrency := paymentColumns(res)
	query := `UPDATE reservations SET payment_status=$1, cancellation_status=$2, weather_condition=$3,
	          refund_amount_cents=$4, payment_type=$5, payment_currency=$6, updated_on=$7
	          WHERE id=$8 AND payment_status=$9 AND cancellation_status=$10`
	result, err := r.db.ExecContext(ctx, query,
		res.PaymentStatus, res.CancellationStatus, res.WeatherCondition,
		res.RefundAmountCents, payType, payCurrency, now,
		res.ID, from.Payment, from.Cancellation,
	)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Transition", err, "reservationID", res.ID)
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Transition", err, "reservationID", res.ID)
		return false, err
	}
	if n == 1 {
		res.UpdatedOn = now
	}
	logger.ExitMethod("reservationRepository.Transition", "reservationID", res.ID, "applied", n == 1)
	return n == 1, nil
}

func (r *reservationRepository) ListExpirable(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	return r.query(ctx, "payment_status = $1 AND cancellation_status = $2 AND payment_deadline < $3",
		domain.PaymentStatusPending, domain.CancellationStatusNone, now)
}
