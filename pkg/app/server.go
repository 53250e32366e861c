package app

import (
	"context"
	"net"

	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/internal/server"
)

// startServer hands the built handler to internal/server.
func startServer(ctx context.Context, a *Application) error {
	return server.Start(ctx, net.JoinHostPort("", config.AppPort()), a.Handler())
}
