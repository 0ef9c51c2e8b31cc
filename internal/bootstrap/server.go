package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avlobanov/aerobook/api"
	"github.com/avlobanov/aerobook/config"
	"github.com/avlobanov/aerobook/internal/auth"
	"go.uber.org/zap"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger, tokens *auth.TokenManager, svc api.Services) error {
	router := api.NewRouter(cfg, logger, tokens, svc)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	logger.Info("http server started", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
