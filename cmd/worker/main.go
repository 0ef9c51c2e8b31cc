package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avlobanov/aerobook/config"
	"github.com/avlobanov/aerobook/internal/app"
	"github.com/avlobanov/aerobook/internal/email"
	"github.com/avlobanov/aerobook/internal/kafka"
	"github.com/avlobanov/aerobook/internal/repository"
	"github.com/avlobanov/aerobook/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		producer,
		logger,
		cfg.Kafka.BookingEventsTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender(logger)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				logger.Warn("decode event", zap.Error(err))
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			logger.Warn("consumer stopped", zap.Error(err))
		}
	}()

	sweepInterval := time.Duration(cfg.Worker.CompletionSweepMinutes) * time.Minute
	if sweepInterval <= 0 {
		sweepInterval = 15 * time.Minute
	}
	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-sweepTicker.C:
			completed, err := bookingService.CompleteDeparted(ctx)
			if err != nil {
				logger.Error("completion sweep failed", zap.Error(err))
				continue
			}
			if completed > 0 {
				logger.Info("completed departed bookings", zap.Int64("count", completed))
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}
