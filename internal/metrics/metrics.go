// Package metrics provides Prometheus metrics for the tracker application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Harvest metrics
	HarvestRunsTotal   prometheus.Counter
	HarvestTilesTotal  *prometheus.CounterVec
	InventorySize      prometheus.Gauge
	HarvestLastSuccess prometheus.Gauge

	// Arrivals metrics
	ArrivalsResultsTotal *prometheus.CounterVec

	// Simulator metrics
	SimulatedVehicles prometheus.Gauge
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	harvestRunsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_harvest_runs_total",
		Help: "Number of completed harvest runs",
	})

	harvestTilesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_harvest_tiles_total",
			Help: "Grid tiles processed by the harvester, by outcome",
		},
		[]string{"result"},
	)

	inventorySize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_stop_inventory_size",
		Help: "Number of unique stops in the published inventory",
	})

	harvestLastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_harvest_last_success_timestamp_seconds",
		Help: "Unix time of the last persisted inventory snapshot",
	})

	arrivalsResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_arrivals_results_total",
			Help: "Arrival reconciliation outcomes, by chosen source",
		},
		[]string{"source"},
	)

	simulatedVehicles := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_simulated_vehicles",
		Help: "Vehicle markers currently maintained by the simulator",
	})

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		harvestRunsTotal,
		harvestTilesTotal,
		inventorySize,
		harvestLastSuccess,
		arrivalsResultsTotal,
		simulatedVehicles,
	)

	return &Metrics{
		Registry:             registry,
		HTTPRequestsTotal:    httpRequestsTotal,
		HTTPRequestDuration:  httpRequestDuration,
		HarvestRunsTotal:     harvestRunsTotal,
		HarvestTilesTotal:    harvestTilesTotal,
		InventorySize:        inventorySize,
		HarvestLastSuccess:   harvestLastSuccess,
		ArrivalsResultsTotal: arrivalsResultsTotal,
		SimulatedVehicles:    simulatedVehicles,
	}
}
