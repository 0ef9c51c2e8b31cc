package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avlobanov/aerobook/api"
	"github.com/avlobanov/aerobook/config"
	"github.com/avlobanov/aerobook/internal/app"
	"github.com/avlobanov/aerobook/internal/auth"
	"github.com/avlobanov/aerobook/internal/bootstrap"
	"github.com/avlobanov/aerobook/internal/cache"
	"github.com/avlobanov/aerobook/internal/kafka"
	"github.com/avlobanov/aerobook/internal/repository"
	"github.com/avlobanov/aerobook/internal/service/booking"
	"github.com/avlobanov/aerobook/internal/service/flights"
	"github.com/avlobanov/aerobook/internal/service/payments"
	"github.com/avlobanov/aerobook/internal/service/stats"
	"github.com/avlobanov/aerobook/internal/service/users"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
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

	if cfg.Database.MigrationsPath != "" {
		migrator, err := app.NewMigrator(pool, cfg.Database.MigrationsPath)
		if err != nil {
			logger.Fatal("init migrator", zap.Error(err))
		}
		if err := migrator.Run(ctx); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
		migrator.Close()
	}

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.FlightsCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	flightService := flights.NewFlightService(flightRepo, redisCache, logger)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		producer,
		logger,
		cfg.Kafka.BookingEventsTopic,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithMaxPassengers(cfg.Booking.MaxPassengers),
	)
	paymentService := payments.NewPaymentService(
		paymentRepo,
		bookingRepo,
		redisCache,
		producer,
		logger,
		cfg.Kafka.PaymentEventsTopic,
		time.Duration(cfg.Payment.IdempotencyTTLHours)*time.Hour,
		payments.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	statsService := stats.NewStatsService(statsRepo)
	userService := users.NewUserService(userRepo, tokens)

	services := api.Services{
		Flights:  flightService,
		Bookings: bookingService,
		Payments: paymentService,
		Stats:    statsService,
		Users:    userService,
	}

	if err := bootstrap.Run(ctx, cfg, logger, tokens, services); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
