// internal/middleware/recover.go
//
// Panic recovery with a JSON 500 body.

package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recover turns a handler panic into a JSON 500 and an ERROR log line with
// the stack.  http.ErrAbortHandler is re-raised so net/http can abort the
// connection as usual.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			zap.S().Errorw("handler panic",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail":"Internal Server Error"}` + "\n"))
		}()
		next.ServeHTTP(w, r)
	})
}
