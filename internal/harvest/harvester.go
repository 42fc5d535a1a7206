package harvest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/geo"
	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/metrics"
	"tracker.wpgtransit.org/internal/providers"
	"tracker.wpgtransit.org/internal/stops"
)

// ErrRunActive is returned by Run when a harvest is already in progress.
// A scheduled trigger that lands mid-run is a no-op.
var ErrRunActive = errors.New("harvest run already active")

// Config controls the harvest lattice and its failure-handling pacing.
type Config struct {
	CenterLat float64
	CenterLon float64
	RadiusKm  float64
	StepKm    float64

	// TileRadiusMeters is the search radius of each point-radius query.
	// Must be at least StepKm*500 (half the step, in meters) or the
	// lattice leaves gaps.
	TileRadiusMeters float64

	MaxAttempts   int           // per-tile attempt budget for permanent errors
	RetryDelay    time.Duration // delay between budgeted attempts
	TileDelay     time.Duration // pacing between tiles, throttle protection
	CooldownDelay time.Duration // pause after a 429/5xx, budget untouched
}

// DefaultConfig covers downtown Winnipeg and its surroundings with the
// provider-friendly pacing the endpoint tolerates.
func DefaultConfig() Config {
	return Config{
		CenterLat:        49.8955,
		CenterLon:        -97.1384,
		RadiusKm:         10,
		StepKm:           1.5,
		TileRadiusMeters: 2000,
		MaxAttempts:      3,
		RetryDelay:       2 * time.Second,
		TileDelay:        1200 * time.Millisecond,
		CooldownDelay:    5 * time.Minute,
	}
}

// Harvester owns the write path of the stop inventory. It runs one
// sequential worker: no parallel tile fetches, by provider rate-limit
// requirement.
type Harvester struct {
	cfg     Config
	lookup  providers.StopLookup
	cache   *stops.Cache
	store   *stops.Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	pacer   *rate.Limiter
	running atomic.Bool

	// sleep is replaceable in tests so retry and cooldown waits do not
	// consume wall-clock time.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a harvester. metrics may be nil.
func New(cfg Config, lookup providers.StopLookup, cache *stops.Cache, store *stops.Store, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Harvester {
	return &Harvester{
		cfg:     cfg,
		lookup:  lookup,
		cache:   cache,
		store:   store,
		clock:   clk,
		logger:  logger.With(slog.String("component", "harvester")),
		metrics: m,
		pacer:   rate.NewLimiter(rate.Every(cfg.TileDelay), 1),
		sleep:   sleepWithContext,
	}
}

// Active reports whether a harvest run is currently in progress.
func (h *Harvester) Active() bool {
	return h.running.Load()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run performs one full harvest over the configured lattice. The merged
// inventory is persisted and re-published after every tile, so a crash
// mid-run loses at most one tile's progress. Individual tile failures are
// contained; only context cancellation aborts the run early. At most one
// run is active at a time.
func (h *Harvester) Run(ctx context.Context) error {
	if !h.running.CompareAndSwap(false, true) {
		return ErrRunActive
	}
	defer h.running.Store(false)

	grid := GenerateGrid(h.cfg.CenterLat, h.cfg.CenterLon, h.cfg.RadiusKm, h.cfg.StepKm)

	// Seed from the published inventory. Last-write-wins per stop id:
	// stops the provider no longer returns are kept, never evicted.
	merged := make(map[string]stops.Stop, h.cache.Len())
	for _, stop := range h.cache.All() {
		merged[stop.ID] = stop
	}

	logging.LogOperation(h.logger, "harvest_run_started",
		slog.Int("tiles", len(grid)),
		slog.Int("seed_stops", len(merged)))

	failed := 0
	for i, tile := range grid {
		if err := h.pacer.Wait(ctx); err != nil {
			return err
		}

		found, err := h.harvestTile(ctx, tile)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			h.countTile("failed")
			logging.LogError(h.logger, "tile failed, moving on", err,
				slog.Int("tile", i+1),
				slog.Int("tiles", len(grid)),
				slog.Float64("lat", tile.Lat),
				slog.Float64("lon", tile.Lon))
		} else {
			for _, stop := range found {
				merged[stop.ID] = stop
			}
			h.countTile("ok")
			h.logger.Debug("tile harvested",
				slog.Int("tile", i+1),
				slog.Int("tiles", len(grid)),
				slog.Int("found", len(found)),
				slog.Int("total", len(merged)))
		}

		// Persist after every tile, success or not, and publish the
		// whole merged snapshot for readers.
		now := h.clock.Now()
		if err := h.store.Save(merged, now); err != nil {
			logging.LogError(h.logger, "failed to persist inventory snapshot", err)
		} else if h.metrics != nil {
			h.metrics.HarvestLastSuccess.Set(float64(now.Unix()))
		}
		h.cache.Publish(merged, now)
		if h.metrics != nil {
			h.metrics.InventorySize.Set(float64(len(merged)))
		}
	}

	if h.metrics != nil {
		h.metrics.HarvestRunsTotal.Inc()
	}
	logging.LogOperation(h.logger, "harvest_run_completed",
		slog.Int("tiles", len(grid)),
		slog.Int("failed_tiles", failed),
		slog.Int("stops", len(merged)))
	return nil
}

// harvestTile fetches one tile, applying the retry policy: throttling and
// server errors pause for the long cooldown and retry without touching
// the budget; other errors burn one of the fixed attempts with a short
// delay in between.
func (h *Harvester) harvestTile(ctx context.Context, tile geo.Point) ([]stops.Stop, error) {
	state := newRetryState(h.cfg.MaxAttempts)
	for {
		if wait, cooling := state.coolingDown(h.clock.Now()); cooling {
			if err := h.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		found, err := h.lookup.StopsNear(ctx, tile.Lat, tile.Lon, h.cfg.TileRadiusMeters)
		if err == nil {
			return found, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if providers.IsTransient(err) {
			h.logger.Warn("provider throttling, entering cooldown",
				slog.String("error", err.Error()),
				slog.Duration("cooldown", h.cfg.CooldownDelay))
			state.onTransient(h.clock.Now(), h.cfg.CooldownDelay)
			continue
		}

		if !state.onFailure() {
			return nil, err
		}
		if err := h.sleep(ctx, h.cfg.RetryDelay); err != nil {
			return nil, err
		}
	}
}

func (h *Harvester) countTile(result string) {
	if h.metrics != nil {
		h.metrics.HarvestTilesTotal.WithLabelValues(result).Inc()
	}
}
