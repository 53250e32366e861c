// Package app assembles the HTTP application: global middleware, the
// metrics endpoint and the route callbacks supplied by the caller.
//
//	app.New().
//	    Routes(routes.RegisterWeb).
//	    Serve(ctx)
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/yellowrose/possrv/pkg/router"
)

// Application is built with New, configured with Routes and then served.
type Application struct {
	routesFns []func(*router.Router)
	bootFns   []func()
}

// New creates an empty Application.
func New() *Application {
	return &Application{}
}

// Routes registers a route-registration callback. Callbacks run in order
// when the handler is built.
func (a *Application) Routes(fn func(*router.Router)) *Application {
	a.routesFns = append(a.routesFns, fn)
	return a
}

// Boot registers a callback run once before serving, such as event
// listener registration.
func (a *Application) Boot(fn func()) *Application {
	a.bootFns = append(a.bootFns, fn)
	return a
}

// Serve boots the application and blocks until ctx is cancelled or the
// server fails.
func (a *Application) Serve(ctx context.Context) error {
	for _, fn := range a.bootFns {
		fn()
	}
	return startServer(ctx, a)
}

// PrintRoutes writes the named routes as a table.
func (a *Application) PrintRoutes(w io.Writer) error {
	r := router.New()
	for _, fn := range a.routesFns {
		fn(r)
	}

	routes := r.Routes()
	if len(routes) == 0 {
		_, err := fmt.Fprintln(w, "No named routes registered.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH\tNAME")
	fmt.Fprintln(tw, strings.Repeat("-", 6)+"\t"+strings.Repeat("-", 4)+"\t"+strings.Repeat("-", 4))
	for _, ri := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return tw.Flush()
}
