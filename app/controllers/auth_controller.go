package controllers

import (
	"errors"

	"github.com/yellowrose/possrv/app/models"
	"github.com/yellowrose/possrv/app/repositories"
	"github.com/yellowrose/possrv/app/services"
	"github.com/yellowrose/possrv/pkg/ctx"
	"github.com/yellowrose/possrv/pkg/view"
)

// AuthController serves the root screen: loading, session check, login and
// logout.
type AuthController struct {
	base
	sessions *services.SessionService
	login    *services.LoginService
}

func NewAuthController(views *view.Engine, sessions *services.SessionService, login *services.LoginService) *AuthController {
	return &AuthController{base: base{views: views}, sessions: sessions, login: login}
}

type loadingPage struct {
	Next string
}

type loginPage struct {
	Action   string
	Username string
	Error    string
	Pending  bool
}

// Index shows the loading indicator and moves on to the session check.
func (a *AuthController) Index(c *ctx.Context) {
	terminalID(c)
	a.render(c, "loading", loadingPage{Next: "/boot"})
}

// Boot runs the session check and routes to the matching screen.
func (a *AuthController) Boot(c *ctx.Context) {
	t, err := a.sessions.Start(c.Context(), terminalID(c))
	if err != nil {
		a.fail(c, err, "/")
		return
	}
	if t.SignedIn() {
		a.redirect(c, "/pos")
		return
	}
	a.redirect(c, "/login")
}

// ShowLogin renders the login form.
func (a *AuthController) ShowLogin(c *ctx.Context) {
	t := a.sessions.Terminal(c.Context(), terminalID(c))
	switch {
	case t.SignedIn():
		a.redirect(c, "/pos")
		return
	case t.Screen == "" || t.Screen == models.ScreenLoading:
		a.redirect(c, "/")
		return
	}

	var username string
	c.Session().GetFlash("username", &username)
	a.render(c, "login", loginPage{
		Action:   "/login",
		Username: username,
		Error:    t.LoginError,
		Pending:  t.LoginPending,
	})
}

// Login submits the credentials.
func (a *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if _, ok := c.BindForm(&in); !ok {
		return
	}

	id := terminalID(c)
	t, err := a.login.Submit(c.Context(), id, in)
	switch {
	case err == nil && t.SignedIn():
		c.Session().Regenerate()
		a.redirect(c, "/pos")
	case err == nil,
		errors.Is(err, services.ErrValidation),
		errors.Is(err, repositories.ErrRejected),
		errors.Is(err, repositories.ErrTransport):
		_ = c.Session().Flash("username", in.Username)
		a.redirect(c, "/login")
	default:
		a.fail(c, err, "/login")
	}
}

// Logout ends the session whatever the backend answers.
func (a *AuthController) Logout(c *ctx.Context) {
	if _, err := a.sessions.Logout(c.Context(), terminalID(c)); err != nil {
		c.Log().Error("logout: terminal save failed", "error", err)
	}
	c.Session().Regenerate()
	a.redirect(c, "/login")
}
