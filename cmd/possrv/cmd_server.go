package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yellowrose/possrv/app/listeners"
	"github.com/yellowrose/possrv/app/routes"
	"github.com/yellowrose/possrv/pkg/app"
)

func application() *app.Application {
	return app.New().
		Boot(listeners.Register).
		Routes(routes.RegisterWeb)
}

// possrv serve: start the HTTP server.
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return application().Serve(cmd.Context())
	},
}

// possrv route:list: print all named routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return application().PrintRoutes(os.Stdout)
	},
}
