package booking

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/avlobanov/aerobook/internal/auth"
	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/kafka"
	"github.com/avlobanov/aerobook/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	Create(ctx context.Context, claims auth.Claims, input CreateBookingInput) (*domain.Booking, error)
	Cancel(ctx context.Context, claims auth.Claims, bookingID int64) (*domain.Booking, error)
	GetByID(ctx context.Context, claims auth.Claims, bookingID int64) (*domain.Booking, error)
	ListForUser(ctx context.Context, claims auth.Claims, userID int64) ([]domain.Booking, error)
	CompleteDeparted(ctx context.Context) (int64, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateBookingInput struct {
	FlightID     int64  `json:"flight_id"`
	Passengers   int    `json:"passengers"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	producer           Producer
	logger             *zap.Logger
	eventsTopic        string
	notificationsTopic string
	maxPassengers      int
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithMaxPassengers(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.maxPassengers = n
		}
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	producer Producer,
	logger *zap.Logger,
	eventsTopic string,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:      bookings,
		flights:       flights,
		producer:      producer,
		logger:        logger,
		eventsTopic:   eventsTopic,
		maxPassengers: 9,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (s *BookingService) Create(ctx context.Context, claims auth.Claims, input CreateBookingInput) (*domain.Booking, error) {
	fields := map[string]string{}
	if input.Passengers < 1 {
		fields["passengers"] = "must be at least 1"
	} else if input.Passengers > s.maxPassengers {
		fields["passengers"] = "exceeds the allowed maximum"
	}
	if !emailPattern.MatchString(input.ContactEmail) {
		fields["contact_email"] = "must be a valid email address"
	}
	if input.ContactPhone == "" {
		fields["contact_phone"] = "is required"
	}
	if len(fields) > 0 {
		return nil, domain.Validation(fields)
	}

	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("flight")
		}
		return nil, err
	}
	if !flight.Active {
		return nil, domain.NotFound("flight")
	}

	booking := &domain.Booking{
		Reference:    uuid.NewString(),
		UserID:       claims.UserID,
		FlightID:     input.FlightID,
		Passengers:   input.Passengers,
		ContactEmail: input.ContactEmail,
		ContactPhone: input.ContactPhone,
	}

	// The repository performs the seat decrement conditionally inside the
	// insert transaction, so a concurrent burst of requests cannot push
	// available_seats below zero.
	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrNoSeats) {
			return nil, domain.CapacityExceeded("not enough seats available")
		}
		return nil, err
	}

	s.publish(ctx, "booking_created", booking, nil)
	return booking, nil
}

func (s *BookingService) Cancel(ctx context.Context, claims auth.Claims, bookingID int64) (*domain.Booking, error) {
	current, err := s.getAuthorized(ctx, claims, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return nil, domain.InvalidState("booking is already cancelled")
	}

	updated, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a race with another cancel.
			return nil, domain.InvalidState("booking is already cancelled")
		}
		return nil, err
	}

	s.publish(ctx, "booking_cancelled", updated, nil)
	return updated, nil
}

func (s *BookingService) GetByID(ctx context.Context, claims auth.Claims, bookingID int64) (*domain.Booking, error) {
	return s.getAuthorized(ctx, claims, bookingID)
}

func (s *BookingService) ListForUser(ctx context.Context, claims auth.Claims, userID int64) ([]domain.Booking, error) {
	if !claims.CanAccessUser(userID) {
		return nil, domain.Forbidden("cannot view another user's bookings")
	}
	return s.bookings.ListByUser(ctx, userID)
}

// CompleteDeparted is called by the worker sweep and moves Confirmed
// bookings past their flight's arrival time to Completed.
func (s *BookingService) CompleteDeparted(ctx context.Context) (int64, error) {
	return s.bookings.CompleteDeparted(ctx, time.Now())
}

func (s *BookingService) getAuthorized(ctx context.Context, claims auth.Claims, bookingID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("booking")
		}
		return nil, err
	}
	if !claims.CanAccessUser(booking.UserID) {
		return nil, domain.Forbidden("booking belongs to another user")
	}
	return booking, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking, extra func(*kafka.BookingEvent)) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:       eventType,
		Reference:  booking.Reference,
		BookingID:  booking.ID,
		FlightID:   booking.FlightID,
		Passengers: booking.Passengers,
		Email:      booking.ContactEmail,
		Status:     string(booking.Status),
		OccurredAt: time.Now(),
	}
	if extra != nil {
		extra(&event)
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, booking.Reference, event); err != nil {
		s.logger.Warn("failed to publish booking event", zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event); err != nil {
			s.logger.Warn("failed to publish notification", zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
