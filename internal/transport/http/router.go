// Package httptransport wires the HTTP surface: certificate issuance and
// minting, public verification, health and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "attest/internal/certificate/handler"
	"attest/internal/platform/middleware"
	verifyhandler "attest/internal/verify/handler"
)

// NewRouter assembles the middleware chain and mounts the handlers.
func NewRouter(
	logger *slog.Logger,
	certificates *certhandler.Handler,
	verification *verifyhandler.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	certificates.Register(r)
	verification.Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
