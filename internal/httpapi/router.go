// Package httpapi assembles the public HTTP surface: the wallet, DID,
// credential, and presentation endpoints plus health and metrics.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/pkg/platform/httputil"
	"custodia/pkg/platform/middleware/device"
	"custodia/pkg/platform/middleware/metadata"
	"custodia/pkg/platform/middleware/recovery"
	"custodia/pkg/platform/middleware/requestid"
	"custodia/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every context handler.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the service router with the shared middleware chain and
// mounts each context's handler.
func NewRouter(logger *slog.Logger, handlers ...Registrar) chi.Router {
	router := chi.NewRouter()
	router.Use(recovery.Middleware(logger))
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(device.Middleware)

	router.Get("/healthz", handleHealth)
	router.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(router)
	}
	return router
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
