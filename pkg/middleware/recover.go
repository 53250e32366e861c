package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/yellowrose/possrv/pkg/logger"
)

// Recovery catches a panic in downstream handlers, logs the stack and
// answers 500. Register it before Logger so the panic is logged with the
// request still in scope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithCtx(r.Context()).Error("panic recovered",
					"error", fmt.Sprintf("%v", err),
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
