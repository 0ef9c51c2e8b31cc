package payments

import (
	"context"
	"errors"
	"time"

	"github.com/avlobanov/aerobook/internal/auth"
	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/avlobanov/aerobook/internal/kafka"
	"github.com/avlobanov/aerobook/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentUseCase interface {
	Process(ctx context.Context, claims auth.Claims, input ProcessPaymentInput) (*domain.Payment, error)
	Refund(ctx context.Context, paymentID int64) (*domain.Payment, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// IdempotencyStore guards against duplicate charges from retried requests.
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

type ProcessPaymentInput struct {
	BookingID      int64                `json:"booking_id"`
	AmountCents    int64                `json:"amount_cents"`
	Method         domain.PaymentMethod `json:"method"`
	IdempotencyKey string               `json:"-"`
}

type PaymentService struct {
	payments           repository.PaymentRepository
	bookings           repository.BookingRepository
	idempotency        IdempotencyStore
	producer           Producer
	logger             *zap.Logger
	eventsTopic        string
	notificationsTopic string
	idempotencyTTL     time.Duration
}

type PaymentServiceOption func(*PaymentService)

func WithNotificationsTopic(topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notificationsTopic = topic
	}
}

func NewPaymentService(
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	idempotency IdempotencyStore,
	producer Producer,
	logger *zap.Logger,
	eventsTopic string,
	idempotencyTTL time.Duration,
	opts ...PaymentServiceOption,
) *PaymentService {
	service := &PaymentService{
		payments:       payments,
		bookings:       bookings,
		idempotency:    idempotency,
		producer:       producer,
		logger:         logger,
		eventsTopic:    eventsTopic,
		idempotencyTTL: idempotencyTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *PaymentService) Process(ctx context.Context, claims auth.Claims, input ProcessPaymentInput) (*domain.Payment, error) {
	if !input.Method.Valid() {
		return nil, domain.ValidationField("method", "unsupported payment method")
	}
	if input.AmountCents <= 0 {
		return nil, domain.ValidationField("amount_cents", "must be positive")
	}

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("booking")
		}
		return nil, err
	}
	if booking.UserID != claims.UserID && !claims.IsAdmin() {
		return nil, domain.Forbidden("booking belongs to another user")
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, domain.InvalidState("booking is not awaiting payment")
	}
	if input.AmountCents != booking.TotalAmountCents {
		return nil, domain.AmountMismatch("amount does not match the booking total")
	}

	claimed := false
	if input.IdempotencyKey != "" {
		existing, err := s.payments.GetByIdempotencyKey(ctx, input.IdempotencyKey)
		if err == nil {
			if existing.BookingID != booking.ID || existing.AmountCents != input.AmountCents {
				return nil, domain.Conflict("idempotency key was already used for a different payment")
			}
			// Replayed request: return the original payment, write nothing.
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		if s.idempotency != nil {
			ok, err := s.idempotency.ClaimIdempotencyKey(ctx, input.IdempotencyKey, s.idempotencyTTL)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.Conflict("a payment with this idempotency key is already in progress")
			}
			claimed = true
		}
	}

	payment := &domain.Payment{
		BookingID:      booking.ID,
		AmountCents:    input.AmountCents,
		Method:         input.Method,
		TransactionID:  uuid.NewString(),
		IdempotencyKey: input.IdempotencyKey,
	}

	if err := s.payments.CreateCompleted(ctx, payment); err != nil {
		if claimed {
			_ = s.idempotency.ReleaseIdempotencyKey(ctx, input.IdempotencyKey)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Conflict("booking already has a completed payment")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.InvalidState("booking is not awaiting payment")
		}
		return nil, err
	}

	s.publish(ctx, "payment_completed", payment, booking)
	return payment, nil
}

func (s *PaymentService) Refund(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	current, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("payment")
		}
		return nil, err
	}
	if current.Status != domain.PaymentStateCompleted {
		return nil, domain.InvalidState("only completed payments can be refunded")
	}

	refunded, err := s.payments.Refund(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.InvalidState("only completed payments can be refunded")
		}
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, refunded.BookingID)
	if err != nil {
		s.logger.Warn("refund notification skipped, booking lookup failed", zap.Int64("booking_id", refunded.BookingID), zap.Error(err))
		return refunded, nil
	}

	s.publish(ctx, "payment_refunded", refunded, booking)
	return refunded, nil
}

func (s *PaymentService) publish(ctx context.Context, eventType string, payment *domain.Payment, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		Reference:     booking.Reference,
		BookingID:     booking.ID,
		FlightID:      booking.FlightID,
		Passengers:    booking.Passengers,
		Email:         booking.ContactEmail,
		Status:        string(payment.Status),
		AmountCents:   payment.AmountCents,
		TransactionID: payment.TransactionID,
		OccurredAt:    time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, payment.TransactionID, event); err != nil {
		s.logger.Warn("failed to publish payment event", zap.String("type", eventType), zap.String("transaction_id", payment.TransactionID), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, payment.TransactionID, event); err != nil {
			s.logger.Warn("failed to publish notification", zap.String("type", eventType), zap.String("transaction_id", payment.TransactionID), zap.Error(err))
		}
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
