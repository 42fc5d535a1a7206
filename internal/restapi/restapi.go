// Package restapi is the HTTP adapter over the tracker's core: nearby
// stops, reconciled arrivals, route shapes, and the vehicle simulation.
package restapi

import (
	"net/http"
	"sync"

	"github.com/klauspost/compress/gzhttp"

	"tracker.wpgtransit.org/internal/app"
	"tracker.wpgtransit.org/internal/appconf"
)

// RestAPI serves the REST surface.
type RestAPI struct {
	*app.Application

	// simMu guards the active simulation's route id. The simulator
	// itself is internally synchronized.
	simMu       sync.Mutex
	activeRoute string
}

// New creates the REST API over the given application.
func New(application *app.Application) *RestAPI {
	return &RestAPI{Application: application}
}

// SetRoutes registers all endpoints on mux. Data endpoints require an API
// key when keys are configured; health and debug stay open.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/stops/nearby", api.requireAPIKey(api.nearbyStopsHandler))
	mux.HandleFunc("GET /api/v1/stops/{stopID}/arrivals", api.requireAPIKey(api.arrivalsHandler))
	mux.HandleFunc("GET /api/v1/routes", api.requireAPIKey(api.routesHandler))
	mux.HandleFunc("GET /api/v1/routes/{routeID}/shapes", api.requireAPIKey(api.shapesHandler))
	mux.HandleFunc("GET /api/v1/routes/{routeID}/vehicles", api.requireAPIKey(api.vehiclesHandler))
	mux.HandleFunc("POST /api/v1/routes/{routeID}/simulation/start", api.requireAPIKey(api.startSimulationHandler))
	mux.HandleFunc("POST /api/v1/simulation/stop", api.requireAPIKey(api.stopSimulationHandler))
	mux.HandleFunc("GET /api/v1/health", api.healthHandler)

	if api.Config.Env != appconf.Production {
		mux.HandleFunc("GET /api/v1/debug/schema", api.debugSchemaHandler)
		mux.HandleFunc("POST /api/v1/debug/harvest", api.debugHarvestHandler)
	}
}

// requireAPIKey rejects requests missing a valid ?key= parameter. A
// deployment with no configured keys accepts everything.
func (api *RestAPI) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.sendError(w, r, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

// Handler wraps the routed mux in the middleware chain: gzip, metrics,
// rate limiting, and request logging (outermost).
func (api *RestAPI) Handler(mux *http.ServeMux, rateLimiter *RateLimitMiddleware) http.Handler {
	var handler http.Handler = gzhttp.GzipHandler(mux)
	handler = MetricsHandler(api.Metrics)(handler)
	if rateLimiter != nil {
		handler = rateLimiter.Handler()(handler)
	}
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	return handler
}

// Shutdown stops the background work the API owns.
func (api *RestAPI) Shutdown() {
	api.Simulator.Stop()
}
