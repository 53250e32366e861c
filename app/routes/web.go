package routes

import (
	"time"

	"github.com/yellowrose/possrv/app/controllers"
	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/app/services"
	"github.com/yellowrose/possrv/app/views"
	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/pkg/ctx"
	"github.com/yellowrose/possrv/pkg/middleware"
	"github.com/yellowrose/possrv/pkg/router"
	"github.com/yellowrose/possrv/pkg/view"
)

// pendingGrace is added to the backend timeout before a stuck in-flight
// flag stops blocking new submissions.
const pendingGrace = 5 * time.Second

// RegisterWeb mounts the screens and their form endpoints.
func RegisterWeb(r *router.Router) {
	backend := repositories.NewBackendFromConfig()
	terminals := repositories.NewTerminalRepository(config.SessionTTL())
	staleAfter := config.BackendTimeout() + pendingGrace
	minDigits := config.PhoneLookupMinDigits()

	sessions := services.NewSessionService(backend, terminals)
	login := services.NewLoginService(backend, terminals, sessions, staleAfter)
	sales := services.NewSalesService(backend, terminals, minDigits, staleAfter)

	engine := view.Must(views.New())
	auth := controllers.NewAuthController(engine, sessions, login)
	pos := controllers.NewPOSController(engine, sessions, sales, minDigits)

	loginLimit := middleware.RateLimit(middleware.NewLimiter(config.LoginRateLimit(), time.Minute))

	r.Get("/", "home", ctx.Wrap(auth.Index))
	r.Get("/boot", "boot", ctx.Wrap(auth.Boot))
	r.Get("/login", "login.show", ctx.Wrap(auth.ShowLogin))
	r.Post("/login", "login.submit", ctx.Wrap(auth.Login), loginLimit)
	r.Post("/logout", "logout", ctx.Wrap(auth.Logout))

	g := r.Group("/pos")
	g.Get("/", "pos", ctx.Wrap(pos.Index))
	g.Post("/refresh", "pos.refresh", ctx.Wrap(pos.Refresh))
	g.Post("/cart/add", "pos.cart.add", ctx.Wrap(pos.AddToCart))
	g.Post("/cart/update", "pos.cart.update", ctx.Wrap(pos.UpdateQuantity))
	g.Get("/customer/lookup", "pos.customer.lookup", ctx.Wrap(pos.LookupCustomer))
	g.Post("/customer", "pos.customer", ctx.Wrap(pos.SetCustomer))
	g.Post("/payment", "pos.payment", ctx.Wrap(pos.SetPaymentMethod))
	g.Post("/sale", "pos.sale", ctx.Wrap(pos.SubmitSale))

	r.Get("/healthz", "health", ctx.Wrap(controllers.Health))
}
