package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avlobanov/aerobook/internal/auth"
	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CompleteDeparted(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func activeFlight(id int64, priceCents int64, seats int) *domain.Flight {
	return &domain.Flight{
		ID:             id,
		FlightNumber:   "AB100",
		Airline:        "Aeroline",
		Origin:         "LIS",
		Destination:    "AMS",
		DepartureTime:  time.Now().Add(24 * time.Hour),
		ArrivalTime:    time.Now().Add(27 * time.Hour),
		PriceCents:     priceCents,
		TotalSeats:     seats,
		AvailableSeats: seats,
		CabinClass:     domain.CabinEconomy,
		Active:         true,
	}
}

func userClaims(id int64) auth.Claims {
	return auth.Claims{UserID: id, Email: "user@example.com", Role: domain.RoleUser}
}

func adminClaims() auth.Claims {
	return auth.Claims{UserID: 99, Email: "admin@example.com", Role: domain.RoleAdmin}
}

func TestBookingService_Create_Success(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockFlightRepo := &MockFlightRepository{}
	mockProducer := &MockProducer{}

	service := NewBookingService(mockBookingRepo, mockFlightRepo, mockProducer, zap.NewNop(), "booking-events")

	ctx := context.Background()
	input := CreateBookingInput{
		FlightID:     4,
		Passengers:   2,
		ContactEmail: "pax@example.com",
		ContactPhone: "+351000111222",
	}

	mockFlightRepo.On("GetByID", ctx, int64(4)).Return(activeFlight(4, 10000, 10), nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Run(func(args mock.Arguments) {
		b := args.Get(1).(*domain.Booking)
		b.ID = 1
		b.Status = domain.BookingStatusPending
		b.PaymentStatus = domain.PaymentStatePending
		b.TotalAmountCents = 10000 * int64(b.Passengers)
	}).Return(nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	created, err := service.Create(ctx, userClaims(7), input)

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, domain.BookingStatusPending, created.Status)
	assert.Equal(t, int64(7), created.UserID)
	assert.Equal(t, int64(20000), created.TotalAmountCents)
	assert.NotEmpty(t, created.Reference)

	mockFlightRepo.AssertExpectations(t)
	mockBookingRepo.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_Create_ValidationErrors(t *testing.T) {
	service := NewBookingService(&MockBookingRepository{}, &MockFlightRepository{}, nil, zap.NewNop(), "")

	ctx := context.Background()

	testCases := []struct {
		name  string
		input CreateBookingInput
		field string
	}{
		{
			name:  "zero passengers",
			input: CreateBookingInput{FlightID: 1, Passengers: 0, ContactEmail: "a@b.co", ContactPhone: "1"},
			field: "passengers",
		},
		{
			name:  "too many passengers",
			input: CreateBookingInput{FlightID: 1, Passengers: 10, ContactEmail: "a@b.co", ContactPhone: "1"},
			field: "passengers",
		},
		{
			name:  "malformed email",
			input: CreateBookingInput{FlightID: 1, Passengers: 1, ContactEmail: "not-an-email", ContactPhone: "1"},
			field: "contact_email",
		},
		{
			name:  "empty phone",
			input: CreateBookingInput{FlightID: 1, Passengers: 1, ContactEmail: "a@b.co", ContactPhone: ""},
			field: "contact_phone",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			created, err := service.Create(ctx, userClaims(7), tc.input)

			assert.Nil(t, created)
			var de *domain.Error
			assert.ErrorAs(t, err, &de)
			assert.Equal(t, domain.CodeValidation, de.Code)
			assert.Contains(t, de.Fields, tc.field)
		})
	}
}

func TestBookingService_Create_NonPositiveMaxPassengersKeepsDefault(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockFlightRepo := &MockFlightRepository{}

	service := NewBookingService(mockBookingRepo, mockFlightRepo, nil, zap.NewNop(), "",
		WithMaxPassengers(0))

	ctx := context.Background()
	mockFlightRepo.On("GetByID", ctx, int64(4)).Return(activeFlight(4, 10000, 20), nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()

	created, err := service.Create(ctx, userClaims(7), CreateBookingInput{
		FlightID: 4, Passengers: 9, ContactEmail: "a@b.co", ContactPhone: "1",
	})

	assert.NoError(t, err)
	assert.NotNil(t, created)
}

func TestBookingService_Create_FlightNotFound(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockFlightRepo := &MockFlightRepository{}

	service := NewBookingService(mockBookingRepo, mockFlightRepo, nil, zap.NewNop(), "")

	ctx := context.Background()
	mockFlightRepo.On("GetByID", ctx, int64(42)).Return(nil, repository.ErrNotFound).Once()

	created, err := service.Create(ctx, userClaims(7), CreateBookingInput{
		FlightID: 42, Passengers: 1, ContactEmail: "a@b.co", ContactPhone: "1",
	})

	assert.Nil(t, created)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	mockBookingRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBookingService_Create_InactiveFlight(t *testing.T) {
	mockFlightRepo := &MockFlightRepository{}

	service := NewBookingService(&MockBookingRepository{}, mockFlightRepo, nil, zap.NewNop(), "")

	flight := activeFlight(4, 10000, 10)
	flight.Active = false

	ctx := context.Background()
	mockFlightRepo.On("GetByID", ctx, int64(4)).Return(flight, nil).Once()

	created, err := service.Create(ctx, userClaims(7), CreateBookingInput{
		FlightID: 4, Passengers: 1, ContactEmail: "a@b.co", ContactPhone: "1",
	})

	assert.Nil(t, created)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestBookingService_Create_CapacityExceeded(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockFlightRepo := &MockFlightRepository{}
	mockProducer := &MockProducer{}

	service := NewBookingService(mockBookingRepo, mockFlightRepo, mockProducer, zap.NewNop(), "booking-events")

	ctx := context.Background()
	mockFlightRepo.On("GetByID", ctx, int64(4)).Return(activeFlight(4, 10000, 1), nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(repository.ErrNoSeats).Once()

	created, err := service.Create(ctx, userClaims(7), CreateBookingInput{
		FlightID: 4, Passengers: 2, ContactEmail: "a@b.co", ContactPhone: "1",
	})

	assert.Nil(t, created)
	assert.Equal(t, domain.CodeCapacityExceeded, domain.CodeOf(err))
	mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_Cancel_Success(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockProducer := &MockProducer{}

	service := NewBookingService(mockBookingRepo, &MockFlightRepository{}, mockProducer, zap.NewNop(), "booking-events")

	current := &domain.Booking{ID: 5, UserID: 7, FlightID: 4, Passengers: 2, Status: domain.BookingStatusPending}
	cancelled := &domain.Booking{ID: 5, UserID: 7, FlightID: 4, Passengers: 2, Status: domain.BookingStatusCancelled}

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(5)).Return(current, nil).Once()
	mockBookingRepo.On("Cancel", ctx, int64(5)).Return(cancelled, nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := service.Cancel(ctx, userClaims(7), 5)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, result.Status)
	mockBookingRepo.AssertExpectations(t)
}

func TestBookingService_Cancel_AlreadyCancelled(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockFlightRepository{}, nil, zap.NewNop(), "")

	current := &domain.Booking{ID: 5, UserID: 7, Status: domain.BookingStatusCancelled}

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(5)).Return(current, nil).Once()

	result, err := service.Cancel(ctx, userClaims(7), 5)

	assert.Nil(t, result)
	assert.Equal(t, domain.CodeInvalidState, domain.CodeOf(err))
	mockBookingRepo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestBookingService_Cancel_Forbidden(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockFlightRepository{}, nil, zap.NewNop(), "")

	current := &domain.Booking{ID: 5, UserID: 8, Status: domain.BookingStatusPending}

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(5)).Return(current, nil).Once()

	result, err := service.Cancel(ctx, userClaims(7), 5)

	assert.Nil(t, result)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
}

func TestBookingService_Cancel_AdminCanCancelAnyBooking(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockFlightRepository{}, nil, zap.NewNop(), "")

	current := &domain.Booking{ID: 5, UserID: 8, Status: domain.BookingStatusPending}
	cancelled := &domain.Booking{ID: 5, UserID: 8, Status: domain.BookingStatusCancelled}

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(5)).Return(current, nil).Once()
	mockBookingRepo.On("Cancel", ctx, int64(5)).Return(cancelled, nil).Once()

	result, err := service.Cancel(ctx, adminClaims(), 5)

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, result.Status)
}

func TestBookingService_ListForUser_Authorization(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockFlightRepository{}, nil, zap.NewNop(), "")

	ctx := context.Background()

	_, err := service.ListForUser(ctx, userClaims(7), 8)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))

	mockBookingRepo.On("ListByUser", ctx, int64(8)).Return([]domain.Booking{}, nil).Twice()

	_, err = service.ListForUser(ctx, adminClaims(), 8)
	assert.NoError(t, err)

	_, err = service.ListForUser(ctx, userClaims(8), 8)
	assert.NoError(t, err)
}

func TestBookingService_GetByID_NotFound(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}

	service := NewBookingService(mockBookingRepo, &MockFlightRepository{}, nil, zap.NewNop(), "")

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(404)).Return(nil, repository.ErrNotFound).Once()

	result, err := service.GetByID(ctx, userClaims(7), 404)

	assert.Nil(t, result)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestBookingService_Create_PublishFailureDoesNotFailBooking(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockFlightRepo := &MockFlightRepository{}
	mockProducer := &MockProducer{}

	service := NewBookingService(mockBookingRepo, mockFlightRepo, mockProducer, zap.NewNop(), "booking-events")

	ctx := context.Background()
	mockFlightRepo.On("GetByID", ctx, int64(4)).Return(activeFlight(4, 10000, 10), nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).Return(nil).Once()
	mockProducer.On("Publish", ctx, "booking-events", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	created, err := service.Create(ctx, userClaims(7), CreateBookingInput{
		FlightID: 4, Passengers: 1, ContactEmail: "a@b.co", ContactPhone: "1",
	})

	assert.NoError(t, err)
	assert.NotNil(t, created)
}
