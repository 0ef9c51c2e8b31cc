package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore mimics the database semantics the PG repositories rely on: the
// seat decrement is conditional and atomic under the store lock, like the
// single-statement UPDATE in postgres.
type memStore struct {
	mu          sync.Mutex
	flights     map[int64]*domain.Flight
	bookings    map[int64]*domain.Booking
	nextBooking int64
}

func newMemStore() *memStore {
	return &memStore{
		flights:  make(map[int64]*domain.Flight),
		bookings: make(map[int64]*domain.Booking),
	}
}

func (s *memStore) addFlight(f domain.Flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := f
	s.flights[f.ID] = &clone
}

func (s *memStore) flightSeats(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flights[id].AvailableSeats
}

type memFlightRepo struct{ store *memStore }

func (r *memFlightRepo) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	flights := make([]domain.Flight, 0, len(r.store.flights))
	for _, f := range r.store.flights {
		flights = append(flights, *f)
	}
	return flights, nil
}

func (r *memFlightRepo) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f, ok := r.store.flights[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *memFlightRepo) Create(ctx context.Context, flight *domain.Flight) error { return nil }
func (r *memFlightRepo) Update(ctx context.Context, flight *domain.Flight) error { return nil }
func (r *memFlightRepo) Delete(ctx context.Context, id int64) error              { return nil }

type memBookingRepo struct{ store *memStore }

func (r *memBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	flight, ok := r.store.flights[booking.FlightID]
	if !ok || !flight.Active || flight.AvailableSeats < booking.Passengers {
		return repository.ErrNoSeats
	}
	flight.AvailableSeats -= booking.Passengers

	r.store.nextBooking++
	booking.ID = r.store.nextBooking
	booking.Status = domain.BookingStatusPending
	booking.PaymentStatus = domain.PaymentStatePending
	booking.TotalAmountCents = flight.PriceCents * int64(booking.Passengers)
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	clone := *booking
	r.store.bookings[booking.ID] = &clone
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	bookings := make([]domain.Booking, 0)
	for _, b := range r.store.bookings {
		if b.UserID == userID {
			bookings = append(bookings, *b)
		}
	}
	return bookings, nil
}

func (r *memBookingRepo) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.bookings[id]
	if !ok || b.Status == domain.BookingStatusCancelled {
		return nil, repository.ErrNotFound
	}
	b.Status = domain.BookingStatusCancelled
	b.UpdatedAt = time.Now()

	if flight, ok := r.store.flights[b.FlightID]; ok {
		flight.AvailableSeats += b.Passengers
	}

	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) CompleteDeparted(ctx context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var count int64
	for _, b := range r.store.bookings {
		flight, ok := r.store.flights[b.FlightID]
		if ok && b.Status == domain.BookingStatusConfirmed && !flight.ArrivalTime.After(now) {
			b.Status = domain.BookingStatusCompleted
			count++
		}
	}
	return count, nil
}

func newMemService(store *memStore) *BookingService {
	return NewBookingService(&memBookingRepo{store: store}, &memFlightRepo{store: store}, nil, zap.NewNop(), "")
}

func TestSeatInventory_NeverNegativeUnderConcurrentBookings(t *testing.T) {
	store := newMemStore()
	store.addFlight(domain.Flight{ID: 1, PriceCents: 10000, TotalSeats: 10, AvailableSeats: 10, Active: true})

	service := newMemService(store)
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	booked := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			passengers := 1 + n%3
			created, err := service.Create(ctx, userClaims(int64(n+1)), CreateBookingInput{
				FlightID:     1,
				Passengers:   passengers,
				ContactEmail: fmt.Sprintf("pax%d@example.com", n),
				ContactPhone: "+100",
			})
			if err == nil {
				mu.Lock()
				booked += created.Passengers
				mu.Unlock()
			} else {
				assert.Equal(t, domain.CodeCapacityExceeded, domain.CodeOf(err))
			}
		}(i)
	}
	wg.Wait()

	remaining := store.flightSeats(1)
	assert.GreaterOrEqual(t, remaining, 0, "available seats must never go negative")
	assert.Equal(t, 10-booked, remaining, "every successful booking accounts for its seats exactly once")
}

func TestSeatInventory_ExactCapacityThenExceeded(t *testing.T) {
	store := newMemStore()
	store.addFlight(domain.Flight{ID: 1, PriceCents: 5000, TotalSeats: 5, AvailableSeats: 5, Active: true})

	service := newMemService(store)
	ctx := context.Background()

	created, err := service.Create(ctx, userClaims(1), CreateBookingInput{
		FlightID: 1, Passengers: 5, ContactEmail: "a@b.co", ContactPhone: "+1",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, store.flightSeats(1))
	assert.Equal(t, int64(25000), created.TotalAmountCents)

	_, err = service.Create(ctx, userClaims(2), CreateBookingInput{
		FlightID: 1, Passengers: 1, ContactEmail: "c@d.co", ContactPhone: "+1",
	})
	assert.Equal(t, domain.CodeCapacityExceeded, domain.CodeOf(err))
}

func TestBookingTotal_EqualsPriceTimesPassengers(t *testing.T) {
	store := newMemStore()
	store.addFlight(domain.Flight{ID: 1, PriceCents: 12345, TotalSeats: 100, AvailableSeats: 100, Active: true})

	service := newMemService(store)
	ctx := context.Background()

	for passengers := 1; passengers <= 5; passengers++ {
		created, err := service.Create(ctx, userClaims(int64(passengers)), CreateBookingInput{
			FlightID:     1,
			Passengers:   passengers,
			ContactEmail: "pax@example.com",
			ContactPhone: "+1",
		})
		require.NoError(t, err)
		assert.Equal(t, 12345*int64(passengers), created.TotalAmountCents)
	}
}

func TestCancel_RestoresSeatsExactlyOnce(t *testing.T) {
	store := newMemStore()
	store.addFlight(domain.Flight{ID: 1, PriceCents: 10000, TotalSeats: 10, AvailableSeats: 10, Active: true})

	service := newMemService(store)
	ctx := context.Background()

	created, err := service.Create(ctx, userClaims(1), CreateBookingInput{
		FlightID: 1, Passengers: 3, ContactEmail: "a@b.co", ContactPhone: "+1",
	})
	require.NoError(t, err)
	require.Equal(t, 7, store.flightSeats(1))

	cancelled, err := service.Cancel(ctx, userClaims(1), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, store.flightSeats(1))

	_, err = service.Cancel(ctx, userClaims(1), created.ID)
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))
	assert.Equal(t, 10, store.flightSeats(1), "double cancel must not double-restore")
}
