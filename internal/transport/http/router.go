// Package httptransport is the thin HTTP layer. Handlers decode requests,
// delegate to the directory and vault services, and translate protocol errors
// to JSON responses; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultd/internal/platform/metrics"
	"vaultd/internal/platform/middleware"
	"vaultd/internal/transport/http/shared"
)

// NewRouter wires all public endpoints behind the standard middleware chain.
func NewRouter(directory *DirectoryHandler, vaults *VaultHandler, permits *PermitHandler, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(latency(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	directory.Register(r)
	vaults.Register(r)
	permits.Register(r)
	return r
}

func latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			m.ObserveRequestDuration(time.Since(start).Seconds())
		})
	}
}
