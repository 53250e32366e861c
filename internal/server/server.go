// Package server binds the port and runs the HTTP server until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/pkg/cache"
	"github.com/yellowrose/possrv/pkg/logger"
)

// Start loads config, connects the log sink and the session store, then
// serves handler on addr until ctx is cancelled or SIGINT/SIGTERM arrives.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := logger.AttachMongo(config.LogMongoURI(), config.LogMongoDatabase(), config.LogMongoCollection()); err != nil {
		logger.Warn("mongo log sink disabled", "error", err)
	}
	defer logger.Close()

	// A missing Redis is not fatal: sessions fall back to memory.
	_ = cache.Connect(ctx)
	if c, ok := cache.Default.(io.Closer); ok {
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Writes can wait on the backend for up to BACKEND_TIMEOUT.
		WriteTimeout: config.BackendTimeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("possrv listening", "addr", addr, "env", config.AppEnv(), "backend", config.BackendURL(), "cache", cache.Default.Driver())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", config.ShutdownTimeout().String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
