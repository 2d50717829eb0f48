// Package evalapi exposes a client over HTTP so non-Go processes on the
// same host can evaluate feature flags through a local sidecar.
package evalapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API holds the router and the evaluation client it fronts.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// client is the evaluation surface. An interface so tests can stub it.
	client Evaluator

	// gatherer serves the client's metric registry on /metrics.
	gatherer prometheus.Gatherer

	logger *slog.Logger
}

// NewAPI wires the evaluation client into a configured router.
// Panics on nil dependencies, they are programmer errors.
func NewAPI(client Evaluator, gatherer prometheus.Gatherer, logger *slog.Logger) *API {
	if client == nil {
		panic("evalapi: client cannot be nil")
	}
	if logger == nil {
		panic("evalapi: logger cannot be nil")
	}

	api := &API{
		Router:   chi.NewRouter(),
		client:   client,
		gatherer: gatherer,
		logger:   logger,
	}
	api.configureRoutes()
	return api
}

func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(requestLogger(a.logger))
	a.Router.Use(middleware.Recoverer)

	a.Router.Get("/health", a.handleHealth)
	a.Router.Get("/ready", a.handleReady)
	if a.gatherer != nil {
		a.Router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/flags", func(r chi.Router) {
			r.Get("/", a.handleListFlags)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/variation", a.handleGetVariation)
				r.Get("/active", a.handleIsActive)
				r.Get("/variables", a.handleGetVariables)
				r.Get("/variables/{variableKey}", a.handleGetVariable)
			})
		})

		r.Route("/visitors/{visitorCode}", func(r chi.Router) {
			r.Get("/flags", a.handleActiveFeatures)
			r.Post("/data", a.handleAddData)
			r.Post("/conversion", a.handleTrackConversion)
			r.Post("/consent", a.handleSetConsent)
			r.Post("/flush", a.handleFlush)
		})
	})
}

// handleHealth reports HTTP serving capability. Liveness only, it stays
// green while the first configuration fetch is still in flight.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleReady reports whether the client finished its first configuration
// fetch. Used as the readiness probe so traffic only arrives once flags
// can actually be evaluated.
func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.client.WaitInit(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_NOT_READY",
			Message: "Configuration has not been fetched yet",
		})
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ready"})
}
