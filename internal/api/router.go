// internal/api/router.go
//
// HTTP surface.
//
// Context
// -------
// NewRouter assembles the chi tree the web binary serves:
//
//	GET  /                      service metadata
//	GET  /health                liveness
//	GET  /health/ready          readiness (database ping when configured)
//	GET  /metrics               Prometheus exposition
//	GET  <prefix>/items         fixed item list
//	GET  <prefix>/items/{id}    single item, 404 above MaxItemID
//	POST <prefix>/items         echo the posted object
//
// Settings are passed in, never looked up, so tests build a router over a
// hand-made *config.Settings without touching the process cache.
//
// Middleware order (outermost first): CORS, request-id, real-ip, access
// log + metrics, panic recovery, security headers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/fleetapp/internal/config"
	"github.com/yanizio/fleetapp/internal/database"
	"github.com/yanizio/fleetapp/internal/middleware"
)

// Version is reported by GET /.
const Version = "1.0.1"

// Options carries optional collaborators.
type Options struct {
	// DB backs /health/ready.  Nil means no database is configured and the
	// service reports ready unconditionally.
	DB database.Pinger
}

type handler struct {
	settings *config.Settings
	db       database.Pinger
}

// NewRouter returns the root handler for s.
func NewRouter(s *config.Settings, opts Options) http.Handler {
	h := &handler{settings: s, db: opts.DB}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, middleware.Access, middleware.Recover, middleware.Security)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/health/ready", h.ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route(s.APIPrefix, func(r chi.Router) {
		r.Get("/items", h.listItems)
		r.Get("/items/{item_id}", h.getItem)
		r.Post("/items", h.createItem)
	})

	return middleware.CORS(r)
}
