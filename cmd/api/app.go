package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tracker.wpgtransit.org/internal/app"
	"tracker.wpgtransit.org/internal/appconf"
	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/harvest"
	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/metrics"
	"tracker.wpgtransit.org/internal/providers"
	"tracker.wpgtransit.org/internal/restapi"
	"tracker.wpgtransit.org/internal/scheddb"
	"tracker.wpgtransit.org/internal/schedule"
	"tracker.wpgtransit.org/internal/sim"
	"tracker.wpgtransit.org/internal/stops"
)

// harvestHour is when the daily stop harvest fires, agency local time.
const harvestHour = 3

// ParseAPIKeys splits a comma-separated key list, trimming whitespace.
func ParseAPIKeys(raw string) []string {
	keys := []string{}
	for _, key := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(key)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}

// BuildApplication assembles the application graph from config. The
// returned cleanup closes the schedule database and stops background
// work; call it on shutdown.
func BuildApplication(cfg appconf.Config, logger *slog.Logger) (*app.Application, *harvest.Scheduler, func(), error) {
	clk := clock.RealClock{}
	m := metrics.New()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}

	cache := stops.NewCache()
	store := stops.NewStore(cfg.InventoryPath)
	inventory, lastUpdated, err := store.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading stop inventory: %w", err)
	}
	if len(inventory) > 0 {
		cache.Publish(inventory, lastUpdated)
		m.InventorySize.Set(float64(len(inventory)))
		logging.LogOperation(logger, "stop_inventory_loaded",
			slog.Int("stops", len(inventory)),
			slog.Time("last_updated", lastUpdated))
	}

	sched, err := scheddb.NewClient(scheddb.Config{DBPath: cfg.ScheduleDBPath, Location: loc}, clk, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening schedule database: %w", err)
	}
	if cfg.GTFSPath != "" {
		if err := sched.ImportFromFile(context.Background(), cfg.GTFSPath); err != nil {
			_ = sched.Close()
			return nil, nil, nil, fmt.Errorf("importing GTFS data: %w", err)
		}
	}

	lookup := providers.NewHTTPStopLookup(cfg.ProviderBaseURL, cfg.ProviderAPIKey, logger)
	live := providers.NewHTTPLiveArrivals(cfg.ProviderBaseURL, cfg.ProviderAPIKey, loc, logger)

	reconciler := schedule.NewReconciler(schedule.DefaultConfig(), live, sched, clk, logger, m)
	arrivals := schedule.NewCachedReconciler(reconciler, clk, time.Minute)

	harvester := harvest.New(harvest.DefaultConfig(), lookup, cache, store, clk, logger, m)
	scheduler := harvest.NewScheduler(harvester, clk, loc, harvestHour, logger)

	application := &app.Application{
		Config:    cfg,
		Logger:    logger,
		Clock:     clk,
		Metrics:   m,
		Stops:     cache,
		Arrivals:  arrivals,
		Schedule:  sched,
		Simulator: sim.New(sim.DefaultTickInterval, clk, logger, m),
		Harvester: harvester,
	}

	cleanup := func() {
		scheduler.Stop()
		application.Simulator.Stop()
		logging.SafeCloseWithLogging(sched, logger, "schedule_database")
	}
	return application, scheduler, cleanup, nil
}

// CreateServer builds the HTTP server with the full middleware chain and
// the metrics endpoint.
func CreateServer(application *app.Application, rateLimiter *restapi.RateLimitMiddleware) (*http.Server, *restapi.RestAPI) {
	api := restapi.New(application)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(application.Metrics.Registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", application.Config.Port),
		Handler:      api.Handler(mux, rateLimiter),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}, api
}
