package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/config"
)

var checkTimeout time.Duration

// possrv check: probe the backend's session endpoint.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the sales backend answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()

		backend := repositories.NewBackend(config.BackendURL(), checkTimeout)
		status, err := backend.CheckSession(ctx, nil)
		out := cmd.OutOrStdout()
		switch {
		case err == nil:
			fmt.Fprintf(out, "backend %s reachable (logged_in=%t)\n", config.BackendURL(), status.LoggedIn)
			return nil
		case errors.Is(err, repositories.ErrRejected):
			fmt.Fprintf(out, "backend %s reachable (session check answered success=false)\n", config.BackendURL())
			return nil
		default:
			return fmt.Errorf("backend %s unreachable: %w", config.BackendURL(), err)
		}
	},
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Second, "how long to wait for the backend")
}
