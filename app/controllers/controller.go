package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/yellowrose/possrv/app/services"
	"github.com/yellowrose/possrv/pkg/ctx"
	"github.com/yellowrose/possrv/pkg/view"
)

// terminalKey is the session key holding the browser's terminal id.
const terminalKey = "terminal_id"

// base carries what every page controller needs.
type base struct {
	views *view.Engine
}

// terminalID returns the session's terminal id, creating one on first use.
func terminalID(c *ctx.Context) string {
	sess := c.Session()
	var id string
	if sess.Get(terminalKey, &id) && id != "" {
		return id
	}
	id = uuid.NewString()
	if err := sess.Set(terminalKey, id); err != nil {
		c.Log().Error("session set failed", "error", err)
	}
	return id
}

func (b base) render(c *ctx.Context, page string, data interface{}) {
	c.SaveSession()
	if err := b.views.Render(c.W, http.StatusOK, page, data); err != nil {
		c.Log().Error("render failed", "page", page, "error", err)
		http.Error(c.W, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		c.MarkWritten(http.StatusInternalServerError)
		return
	}
	c.MarkWritten(http.StatusOK)
}

func (b base) redirect(c *ctx.Context, to string) {
	c.SaveSession()
	c.Redirect(http.StatusSeeOther, to)
}

// fail maps a service error to a response. Backend and validation errors are
// already reflected in the terminal, so those just go back to the page.
func (b base) fail(c *ctx.Context, err error, back string) {
	switch {
	case errors.Is(err, services.ErrNotSignedIn):
		if c.WantsJSON() {
			c.SaveSession()
			c.Unauthorized()
			return
		}
		b.redirect(c, "/")
	case errors.Is(err, services.ErrInFlight):
		if c.WantsJSON() {
			c.SaveSession()
			c.Error(http.StatusConflict, err.Error())
			return
		}
		b.redirect(c, back)
	default:
		c.Log().Error("request failed", "error", err)
		http.Error(c.W, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		c.MarkWritten(http.StatusInternalServerError)
	}
}
