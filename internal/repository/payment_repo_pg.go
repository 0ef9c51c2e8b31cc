package repository

import (
	"context"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository interface {
	CreateCompleted(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	Refund(ctx context.Context, id int64) (*domain.Payment, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount_cents, method, status, transaction_id, COALESCE(idempotency_key, ''), created_at, updated_at`

// CreateCompleted inserts the payment and confirms the booking in one
// transaction. The booking update is conditional on Pending status; the
// partial unique index on completed payments rejects a second charge for
// the same booking at the database level.
func (r *PGPaymentRepository) CreateCompleted(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	payment.Status = domain.PaymentStateCompleted
	if err := tx.QueryRow(ctx, `INSERT INTO payments (booking_id, amount_cents, method, status, transaction_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, created_at, updated_at`,
		payment.BookingID, payment.AmountCents, payment.Method, payment.Status, payment.TransactionID, payment.IdempotencyKey).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt); err != nil {
		return translate(err)
	}

	res, err := tx.Exec(ctx, `UPDATE bookings SET status=$2, payment_status=$3, updated_at=now() WHERE id=$1 AND status=$4`,
		payment.BookingID, domain.BookingStatusConfirmed, domain.PaymentStateCompleted, domain.BookingStatusPending)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id)
	return scanPayment(row)
}

func (r *PGPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE idempotency_key=$1`, key)
	return scanPayment(row)
}

// Refund flips a Completed payment to Refunded, cancels its booking and
// returns the seats to the flight, all in one transaction. The booking
// update is conditional on not being Cancelled yet: a booking the user
// already cancelled had its seats restored by Cancel, so refunding it only
// marks the payment state and must not restore seats a second time.
func (r *PGPaymentRepository) Refund(ctx context.Context, id int64) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE payments SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3
		RETURNING `+paymentColumns, id, domain.PaymentStateRefunded, domain.PaymentStateCompleted)
	payment, err := scanPayment(row)
	if err != nil {
		return nil, err
	}

	var flightID int64
	var passengers int
	err = tx.QueryRow(ctx, `UPDATE bookings SET status=$2, payment_status=$3, updated_at=now()
		WHERE id=$1 AND status <> $2
		RETURNING flight_id, passengers`,
		payment.BookingID, domain.BookingStatusCancelled, domain.PaymentStateRefunded).
		Scan(&flightID, &passengers)
	switch {
	case err == nil:
		if _, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats + $2, updated_at = now() WHERE id=$1`,
			flightID, passengers); err != nil {
			return nil, err
		}
	case err == pgx.ErrNoRows:
		// Booking is already Cancelled and its seats already restored.
		if _, err := tx.Exec(ctx, `UPDATE bookings SET payment_status=$2, updated_at=now() WHERE id=$1`,
			payment.BookingID, domain.PaymentStateRefunded); err != nil {
			return nil, err
		}
	default:
		return nil, translate(err)
	}

	return payment, tx.Commit(ctx)
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Method, &p.Status, &p.TransactionID, &p.IdempotencyKey, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
