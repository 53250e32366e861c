// Package ctx gives handlers a single *Context instead of the
// (http.ResponseWriter, *http.Request) pair:
//
//	router.Post("/pos/cart/add", "pos.cart.add", ctx.Wrap(func(c *ctx.Context) {
//	    var in AddInput
//	    errs, ok := c.BindForm(&in)
//	    if !ok || len(errs) > 0 {
//	        return
//	    }
//	    c.Redirect(http.StatusSeeOther, "/pos")
//	}))
package ctx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/yellowrose/possrv/pkg/bind"
	"github.com/yellowrose/possrv/pkg/logger"
	"github.com/yellowrose/possrv/pkg/response"
	"github.com/yellowrose/possrv/pkg/session"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// Param returns a URL path parameter.
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a query-string value, or "".
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger { return logger.WithCtx(c.R.Context()) }

// Session returns the request's session.
func (c *Context) Session() *session.Session { return session.FromCtx(c.R) }

// SaveSession persists the session; failures are logged, not surfaced, so the
// page still renders.
func (c *Context) SaveSession() {
	if err := c.Session().Save(c.R.Context(), c.W); err != nil {
		c.Log().Error("session save failed", "error", err)
	}
}

// BindForm decodes form values into dest. On a malformed body it answers 400
// and returns false. Field errors are returned to the caller, not written.
func (c *Context) BindForm(dest any) (map[string]string, bool) {
	errs, err := bind.Form(c.R, dest)
	if err != nil {
		http.Error(c.W, err.Error(), http.StatusBadRequest)
		c.status = http.StatusBadRequest
		return nil, false
	}
	return errs, true
}

// Success sends a 200 JSON envelope.
func (c *Context) Success(data any) {
	c.status = http.StatusOK
	response.Success(c.W, data)
}

// Error sends a JSON error envelope.
func (c *Context) Error(code int, message string) {
	c.status = code
	response.Error(c.W, code, message)
}

// WantsJSON reports whether the client asked for a JSON answer.
func (c *Context) WantsJSON() bool {
	return strings.Contains(c.R.Header.Get("Accept"), "application/json")
}

// ValidationError sends a 422 JSON envelope.
func (c *Context) ValidationError(errs map[string]string) {
	c.status = http.StatusUnprocessableEntity
	response.ValidationError(c.W, errs)
}

// Unauthorized sends a 401 JSON envelope.
func (c *Context) Unauthorized() {
	c.status = http.StatusUnauthorized
	response.Unauthorized(c.W)
}

// Redirect sends an HTTP redirect response.
func (c *Context) Redirect(code int, url string) {
	c.status = code
	http.Redirect(c.W, c.R, url, code)
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }

// MarkWritten records a status written outside Context helpers.
func (c *Context) MarkWritten(code int) { c.status = code }
