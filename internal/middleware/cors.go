// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows every origin, method, and header.  Preflight requests are
// answered here and never reach the router.
func CORS(next http.Handler) http.Handler {
	return cors.AllowAll().Handler(next)
}
