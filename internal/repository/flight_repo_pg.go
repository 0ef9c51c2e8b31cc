package repository

import (
	"context"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightFilter struct {
	Origin        string
	Destination   string
	DepartureDate string // YYYY-MM-DD
	ActiveOnly    bool
}

type FlightRepository interface {
	List(ctx context.Context, filter FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	Update(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, id int64) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline, origin, destination, departure_time, arrival_time, price_cents, total_seats, available_seats, cabin_class, active, created_at, updated_at`

func (r *PGFlightRepository) List(ctx context.Context, filter FlightFilter) ([]domain.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights
		WHERE ($1 = '' OR origin = $1)
		AND ($2 = '' OR destination = $2)
		AND ($3 = '' OR departure_time::date = $3::date)
		AND ($4 = false OR active)
		ORDER BY departure_time`
	rows, err := r.db.Query(ctx, query, filter.Origin, filter.Destination, filter.DepartureDate, filter.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := rows.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.PriceCents, &f.TotalSeats, &f.AvailableSeats, &f.CabinClass, &f.Active, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.PriceCents, &f.TotalSeats, &f.AvailableSeats, &f.CabinClass, &f.Active, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *PGFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	err := r.db.QueryRow(ctx, `INSERT INTO flights (flight_number, airline, origin, destination, departure_time, arrival_time, price_cents, total_seats, available_seats, cabin_class, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9, $10)
		RETURNING id, available_seats, created_at, updated_at`,
		flight.FlightNumber, flight.Airline, flight.Origin, flight.Destination, flight.DepartureTime, flight.ArrivalTime, flight.PriceCents, flight.TotalSeats, flight.CabinClass, flight.Active).
		Scan(&flight.ID, &flight.AvailableSeats, &flight.CreatedAt, &flight.UpdatedAt)
	return translate(err)
}

// Update applies a total_seats change as a delta against available_seats,
// so already-booked seats stay booked. Shrinking capacity below the booked
// count would drive available_seats negative and is refused with ErrNoSeats.
func (r *PGFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	row := r.db.QueryRow(ctx, `UPDATE flights SET flight_number=$2, airline=$3, origin=$4, destination=$5, departure_time=$6, arrival_time=$7, price_cents=$8, cabin_class=$9, active=$10,
		available_seats = available_seats + $11 - total_seats, total_seats=$11, updated_at=now()
		WHERE id=$1 AND available_seats + $11 - total_seats >= 0
		RETURNING updated_at`,
		flight.ID, flight.FlightNumber, flight.Airline, flight.Origin, flight.Destination, flight.DepartureTime, flight.ArrivalTime, flight.PriceCents, flight.CabinClass, flight.Active, flight.TotalSeats)
	err := row.Scan(&flight.UpdatedAt)
	if err == pgx.ErrNoRows {
		var exists bool
		if qerr := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE id=$1)`, flight.ID).Scan(&exists); qerr != nil {
			return qerr
		}
		if exists {
			return ErrNoSeats
		}
		return ErrNotFound
	}
	return translate(err)
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	var referenced bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE flight_id=$1)`, id).Scan(&referenced); err != nil {
		return err
	}
	if referenced {
		return ErrReferenced
	}

	res, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
