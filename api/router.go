package api

import (
	"github.com/avlobanov/aerobook/config"
	"github.com/avlobanov/aerobook/internal/auth"
	"github.com/avlobanov/aerobook/internal/service/booking"
	"github.com/avlobanov/aerobook/internal/service/flights"
	"github.com/avlobanov/aerobook/internal/service/payments"
	"github.com/avlobanov/aerobook/internal/service/stats"
	"github.com/avlobanov/aerobook/internal/service/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Services struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
	Payments payments.PaymentUseCase
	Stats    stats.StatsUseCase
	Users    users.UserUseCase
}

func NewRouter(cfg *config.Config, logger *zap.Logger, tokens *auth.TokenManager, svc Services) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), RateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst))

	if cfg.HTTP.DocsDir != "" {
		router.Static("/docs", cfg.HTTP.DocsDir)
	}

	v1 := router.Group("/api/v1")

	userHandler := NewUserHandler(svc.Users)
	userHandler.Register(v1)

	flightHandler := NewFlightHandler(svc.Flights)
	flightHandler.Register(v1)

	authed := v1.Group("", AuthMiddleware(tokens))
	bookingHandler := NewBookingHandler(svc.Bookings)
	bookingHandler.Register(authed)

	paymentHandler := NewPaymentHandler(svc.Payments)
	paymentHandler.Register(authed)

	admin := v1.Group("/admin", AuthMiddleware(tokens), RequireAdmin())
	flightHandler.RegisterAdmin(admin)
	paymentHandler.RegisterAdmin(admin)
	NewAdminHandler(svc.Stats).Register(admin)

	return router
}
