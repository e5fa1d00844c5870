// Package httpapi assembles the HTTP surface: the shared middleware chain,
// the health and metrics endpoints, and every feature handler's routes.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credvault/internal/http/shared"
	"credvault/internal/platform/middleware"
)

const requestTimeout = 30 * time.Second

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthInfo is rendered by the health endpoint.
type HealthInfo struct {
	Status  string `json:"status"`
	Network string `json:"network"`
}

// NewRouter wires the full API. Handlers register their own route groups so
// each feature keeps its own middleware chain.
func NewRouter(logger *slog.Logger, health HealthInfo, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{
			"status":    health.Status,
			"network":   health.Network,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
