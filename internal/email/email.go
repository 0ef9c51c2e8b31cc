package email

import (
	"context"

	"github.com/avlobanov/aerobook/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers booking and payment notifications. The current
// implementation logs the message instead of talking to an SMTP relay.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logger.Info("sending notification email",
		zap.String("to", event.Email),
		zap.String("event", event.Type),
		zap.String("reference", event.Reference),
		zap.Int64("flight_id", event.FlightID),
		zap.Int("passengers", event.Passengers),
	)
	return nil
}
