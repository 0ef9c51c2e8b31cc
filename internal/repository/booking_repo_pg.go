package repository

import (
	"context"
	"time"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	Cancel(ctx context.Context, id int64) (*domain.Booking, error)
	CompleteDeparted(ctx context.Context, now time.Time) (int64, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, reference, user_id, flight_id, passengers, total_amount_cents, status, payment_status, contact_email, contact_phone, created_at, updated_at`

// Create reserves seats and inserts the booking in one transaction. The seat
// decrement is conditional on sufficient availability, so available_seats
// cannot go negative under concurrent requests; the flight's current price
// comes back from the same statement and fixes the booking total.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var priceCents int64
	err = tx.QueryRow(ctx, `UPDATE flights SET available_seats = available_seats - $2, updated_at = now()
		WHERE id=$1 AND active AND available_seats >= $2
		RETURNING price_cents`, booking.FlightID, booking.Passengers).Scan(&priceCents)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNoSeats
		}
		return err
	}

	booking.Status = domain.BookingStatusPending
	booking.PaymentStatus = domain.PaymentStatePending
	booking.TotalAmountCents = priceCents * int64(booking.Passengers)

	if err := tx.QueryRow(ctx, `INSERT INTO bookings (reference, user_id, flight_id, passengers, total_amount_cents, status, payment_status, contact_email, contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		booking.Reference, booking.UserID, booking.FlightID, booking.Passengers, booking.TotalAmountCents, booking.Status, booking.PaymentStatus, booking.ContactEmail, booking.ContactPhone).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return translate(err)
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBooking(row)
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.Reference, &b.UserID, &b.FlightID, &b.Passengers, &b.TotalAmountCents, &b.Status, &b.PaymentStatus, &b.ContactEmail, &b.ContactPhone, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Cancel flips the booking to Cancelled and gives the seats back to the
// flight in the same transaction. A booking that is already Cancelled
// matches no row, so a double cancel never restores seats twice.
func (r *PGBookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE bookings SET status=$2, updated_at=now()
		WHERE id=$1 AND status <> $2
		RETURNING `+bookingColumns, id, domain.BookingStatusCancelled)
	booking, err := scanBooking(row)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats + $2, updated_at = now() WHERE id=$1`,
		booking.FlightID, booking.Passengers); err != nil {
		return nil, err
	}

	return booking, tx.Commit(ctx)
}

// CompleteDeparted moves Confirmed bookings whose flight has already arrived
// to Completed. Returns the number of bookings updated.
func (r *PGBookingRepository) CompleteDeparted(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		FROM flights
		WHERE bookings.flight_id = flights.id AND bookings.status = $2 AND flights.arrival_time <= $3`,
		domain.BookingStatusCompleted, domain.BookingStatusConfirmed, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.FlightID, &b.Passengers, &b.TotalAmountCents, &b.Status, &b.PaymentStatus, &b.ContactEmail, &b.ContactPhone, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
