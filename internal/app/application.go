// Package app wires the application's components together for the HTTP
// layer.
package app

import (
	"log/slog"

	"tracker.wpgtransit.org/internal/appconf"
	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/harvest"
	"tracker.wpgtransit.org/internal/metrics"
	"tracker.wpgtransit.org/internal/scheddb"
	"tracker.wpgtransit.org/internal/schedule"
	"tracker.wpgtransit.org/internal/sim"
	"tracker.wpgtransit.org/internal/stops"
)

// Application holds the dependencies for the HTTP handlers, helpers, and
// middleware.
type Application struct {
	Config    appconf.Config
	Logger    *slog.Logger
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Stops     *stops.Cache
	Arrivals  schedule.ArrivalsSource
	Schedule  *scheddb.Client
	Simulator *sim.Simulator
	Harvester *harvest.Harvester
}
