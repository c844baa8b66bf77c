// Package httptransport assembles the engine's HTTP surface: module
// handlers, shared middleware, health and metrics endpoints.
package httptransport

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keystone/internal/platform/middleware"
	platformredis "keystone/internal/platform/redis"
	"keystone/pkg/platform/httputil"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// Deps are the router's dependencies. DB and Redis may be nil when the
// engine runs memory-backed; health reports only what is configured.
type Deps struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Handlers []Registrar
	DB       *sql.DB
	Redis    *platformredis.Client
}

// NewRouter builds the engine's router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps))
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	for _, h := range deps.Handlers {
		h.Register(r)
	}
	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		healthy := true
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				checks["postgres"] = err.Error()
				healthy = false
			} else {
				checks["postgres"] = "ok"
			}
		}
		if deps.Redis != nil {
			if err := deps.Redis.Health(r.Context()); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, map[string]any{
			"healthy": healthy,
			"checks":  checks,
		})
	}
}
