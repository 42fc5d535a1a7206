package restapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tracker.wpgtransit.org/internal/app"
	"tracker.wpgtransit.org/internal/appconf"
	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/harvest"
	"tracker.wpgtransit.org/internal/scheddb"
	"tracker.wpgtransit.org/internal/schedule"
	"tracker.wpgtransit.org/internal/sim"
	"tracker.wpgtransit.org/internal/stops"
)

// 2025-06-02 is a Monday.
var testNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

type fakeStopLookup struct {
	found []stops.Stop
}

func (f *fakeStopLookup) StopsNear(ctx context.Context, lat, lon, radiusMeters float64) ([]stops.Stop, error) {
	return f.found, nil
}

type fakeArrivals struct {
	result schedule.Result
	err    error
}

func (f *fakeArrivals) ArrivalsFor(ctx context.Context, stopID string) (schedule.Result, error) {
	if f.err != nil {
		return schedule.Result{}, f.err
	}
	if !schedule.ValidStopID(stopID) {
		return schedule.Result{}, schedule.ErrInvalidStopID
	}
	result := f.result
	result.StopID = stopID
	return result, nil
}

func newTestAPI(t *testing.T, arrivals schedule.ArrivalsSource) (*RestAPI, http.Handler, *clock.MockClock) {
	t.Helper()

	clk := clock.NewMockClock(testNow)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cache := stops.NewCache()
	cache.Publish(map[string]stops.Stop{
		"10625": {ID: "10625", Name: "Portage & Main", Lat: 49.8951, Lon: -97.1385},
		"10626": {ID: "10626", Name: "Graham & Vaughan", Lat: 49.8907, Lon: -97.1494},
		"60001": {ID: "60001", Name: "Far North", Lat: 50.2, Lon: -97.1},
	}, testNow.Add(-time.Hour))

	sched, err := scheddb.NewClient(scheddb.Config{DBPath: ":memory:", Location: time.UTC}, clk, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Close() })
	seedRoutes(t, sched)

	if arrivals == nil {
		arrivals = &fakeArrivals{result: schedule.Result{Source: schedule.SourceNone, Entries: []schedule.ArrivalEstimate{}}}
	}

	// A tiny lattice so a manual harvest completes in a handful of tiles.
	harvestCfg := harvest.DefaultConfig()
	harvestCfg.RadiusKm = 0.5
	harvestCfg.StepKm = 1
	harvestCfg.TileDelay = time.Nanosecond
	store := stops.NewStore(filepath.Join(t.TempDir(), "stops.json"))
	harvester := harvest.New(harvestCfg,
		&fakeStopLookup{found: []stops.Stop{{ID: "90001", Name: "Harvested", Lat: 49.9, Lon: -97.1}}},
		cache, store, clk, logger, nil)

	application := &app.Application{
		Config:    appconf.Config{Env: appconf.Test, Port: 4000},
		Logger:    logger,
		Clock:     clk,
		Stops:     cache,
		Arrivals:  arrivals,
		Schedule:  sched,
		Simulator: sim.New(time.Hour, clk, logger, nil),
		Harvester: harvester,
	}

	api := New(application)
	t.Cleanup(api.Shutdown)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	return api, mux, clk
}

func seedRoutes(t *testing.T, c *scheddb.Client) {
	t.Helper()
	ctx := context.Background()

	stmts := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO routes (id, short_name, long_name) VALUES (?, ?, ?)", []any{"11", "11", "Portage"}},
		{"INSERT INTO calendar (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date) VALUES (?, 1, 1, 1, 1, 1, 1, 1, ?, ?)",
			[]any{"daily", "20250101", "20251231"}},
		{"INSERT INTO trips (id, route_id, service_id, shape_id) VALUES (?, ?, ?, ?)", []any{"trip-1", "11", "daily", "shape-1"}},
		// trip-1 runs 11:50 to 12:10, so it is mid-run at testNow.
		{"INSERT INTO stop_times (trip_id, stop_id, arrival_secs, departure_secs, stop_sequence) VALUES (?, ?, ?, ?, ?)",
			[]any{"trip-1", "10625", 11*3600 + 50*60, 11*3600 + 50*60, 1}},
		{"INSERT INTO stop_times (trip_id, stop_id, arrival_secs, departure_secs, stop_sequence) VALUES (?, ?, ?, ?, ?)",
			[]any{"trip-1", "10626", 12*3600 + 10*60, 12*3600 + 10*60, 2}},
		{"INSERT INTO shapes (shape_id, lat, lon, sequence) VALUES (?, ?, ?, ?)", []any{"shape-1", 49.8951, -97.1385, 0}},
		{"INSERT INTO shapes (shape_id, lat, lon, sequence) VALUES (?, ?, ?, ?)", []any{"shape-1", 49.8907, -97.1494, 1}},
	}
	for _, s := range stmts {
		_, err := c.DB.ExecContext(ctx, s.query, s.args...)
		require.NoError(t, err)
	}
}
