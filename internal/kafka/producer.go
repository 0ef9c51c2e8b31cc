package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// BookingEvent is the payload published on booking and payment lifecycle
// transitions and consumed by the notifications worker.
type BookingEvent struct {
	Type          string    `json:"type"`
	Reference     string    `json:"reference"`
	BookingID     int64     `json:"booking_id"`
	FlightID      int64     `json:"flight_id"`
	Passengers    int       `json:"passengers"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
