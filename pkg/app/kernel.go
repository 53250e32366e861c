package app

import (
	"net/http"

	"github.com/yellowrose/possrv/pkg/metrics"
	"github.com/yellowrose/possrv/pkg/middleware"
	"github.com/yellowrose/possrv/pkg/reqid"
	"github.com/yellowrose/possrv/pkg/router"
	"github.com/yellowrose/possrv/pkg/session"
)

// Handler builds the HTTP handler. Global middleware, outermost first:
// metrics, recovery, request id, logger, session.
func (a *Application) Handler() http.Handler {
	r := router.New()

	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(session.Middleware(session.DefaultOptions()))

	r.Get("/metrics", "metrics", metrics.Handler())

	for _, fn := range a.routesFns {
		fn(r)
	}

	return r.Handler()
}
