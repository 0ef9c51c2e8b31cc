package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avlobanov/aerobook/internal/auth"
	"github.com/avlobanov/aerobook/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const claimsKey = "auth_claims"

// AuthMiddleware validates the bearer token and stores the request-scoped
// claims for handlers to pass into the workflows.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, domain.Unauthorized("missing bearer token"))
			c.Abort()
			return
		}

		claims, err := tokens.Parse(token)
		if err != nil {
			respondError(c, domain.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(claimsKey, *claims)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if !claims.IsAdmin() {
			respondError(c, domain.Forbidden("admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) auth.Claims {
	value, _ := c.Get(claimsKey)
	claims, _ := value.(auth.Claims)
	return claims
}

// RateLimit applies a token-bucket limit per client IP.
func RateLimit(rps, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = rps
	}

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, envelope{Success: false, Message: "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
