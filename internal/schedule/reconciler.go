package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/metrics"
	"tracker.wpgtransit.org/internal/providers"
)

// Config tunes the reconciliation policy.
type Config struct {
	// StalenessWindow bounds how old the freshest live estimate may be
	// before the whole feed is considered untrustworthy.
	StalenessWindow time.Duration
	// LivePerRouteCap limits entries per route when the live feed wins.
	LivePerRouteCap int
	// StaticCap limits total entries when falling back to the timetable.
	StaticCap int
}

// DefaultConfig returns the production policy settings.
func DefaultConfig() Config {
	return Config{
		StalenessWindow: 90 * time.Minute,
		LivePerRouteCap: 3,
		StaticCap:       3,
	}
}

// Reconciler merges the live feed and the static timetable into one
// arrival board per stop. Stateless per call, safe for concurrent use.
type Reconciler struct {
	cfg    Config
	live   providers.LiveArrivals
	static StaticSource
	clock  clock.Clock
	logger *slog.Logger
	m      *metrics.Metrics
}

// NewReconciler creates a reconciler. m may be nil.
func NewReconciler(cfg Config, live providers.LiveArrivals, static StaticSource, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		cfg:    cfg,
		live:   live,
		static: static,
		clock:  clk,
		logger: logger.With(slog.String("component", "reconciler")),
		m:      m,
	}
}

// ArrivalsFor returns the reconciled arrival board for stopID. Fetch
// failures of either source are contained: the other source still
// serves, and a stop with genuinely nothing upcoming yields a SourceNone
// result rather than an error. Only a malformed stop id fails the call.
func (r *Reconciler) ArrivalsFor(ctx context.Context, stopID string) (Result, error) {
	if !ValidStopID(stopID) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidStopID, stopID)
	}

	now := r.clock.Now()

	var (
		wg         sync.WaitGroup
		liveRoutes []providers.RouteSchedule
		liveErr    error
		staticRows []StaticEntry
		staticErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		liveRoutes, liveErr = r.live.ScheduleForStop(ctx, stopID)
	}()
	go func() {
		defer wg.Done()
		staticRows, staticErr = r.static.StopArrivals(ctx, stopID)
	}()
	wg.Wait()

	if liveErr != nil {
		logging.LogError(r.logger, "live feed fetch failed", liveErr, slog.String("stop_id", stopID))
	}
	if staticErr != nil {
		logging.LogError(r.logger, "static timetable fetch failed", staticErr, slog.String("stop_id", stopID))
	}

	// A usable live feed decides the source even when no upcoming entry
	// survives the filter. Only a failed, empty, or all-stale feed
	// demotes the stop to the static timetable.
	if liveErr == nil && r.liveUsable(liveRoutes, now) {
		r.countResult("live")
		return Result{StopID: stopID, Source: SourceLive, Entries: r.liveEntries(liveRoutes, now)}, nil
	}

	if staticErr == nil {
		if entries := r.staticEntries(staticRows, now); len(entries) > 0 {
			r.countResult("static")
			return Result{StopID: stopID, Source: SourceStatic, Entries: entries}, nil
		}
	}

	r.countResult("none")
	return Result{StopID: stopID, Source: SourceNone, Entries: []ArrivalEstimate{}}, nil
}

// liveUsable reports whether the feed carries at least one estimate no
// older than the staleness window. Entries without a usable estimate fall
// back to their scheduled time for this test.
func (r *Reconciler) liveUsable(routes []providers.RouteSchedule, now time.Time) bool {
	cutoff := now.Add(-r.cfg.StalenessWindow)
	for _, route := range routes {
		for _, a := range route.Arrivals {
			t := effectiveTime(a)
			if !t.IsZero() && !t.Before(cutoff) {
				return true
			}
		}
	}
	return false
}

// effectiveTime prefers the estimate and falls back to the schedule.
func effectiveTime(a providers.LiveArrival) time.Time {
	if !a.Estimated.IsZero() {
		return a.Estimated
	}
	return a.Scheduled
}

// liveEntries applies the LIVE policy: per route, upcoming arrivals only,
// ascending, capped; routes ordered by their earliest upcoming arrival.
func (r *Reconciler) liveEntries(routes []providers.RouteSchedule, now time.Time) []ArrivalEstimate {
	type routeBoard struct {
		earliest time.Time
		entries  []ArrivalEstimate
	}

	boards := make([]routeBoard, 0, len(routes))
	for _, route := range routes {
		upcoming := make([]ArrivalEstimate, 0, len(route.Arrivals))
		for _, a := range route.Arrivals {
			t := effectiveTime(a)
			if t.IsZero() || t.Before(now) {
				continue
			}
			upcoming = append(upcoming, ArrivalEstimate{
				RouteLabel: route.RouteLabel,
				Scheduled:  a.Scheduled,
				Estimated:  a.Estimated,
				Source:     SourceLive,
			})
		}
		if len(upcoming) == 0 {
			continue
		}
		sort.Slice(upcoming, func(i, j int) bool {
			return entryTime(upcoming[i]).Before(entryTime(upcoming[j]))
		})
		if len(upcoming) > r.cfg.LivePerRouteCap {
			upcoming = upcoming[:r.cfg.LivePerRouteCap]
		}
		boards = append(boards, routeBoard{earliest: entryTime(upcoming[0]), entries: upcoming})
	}

	sort.Slice(boards, func(i, j int) bool {
		return boards[i].earliest.Before(boards[j].earliest)
	})

	entries := []ArrivalEstimate{}
	for _, b := range boards {
		entries = append(entries, b.entries...)
	}
	return entries
}

// staticEntries applies the STATIC policy: flatten, upcoming only,
// ascending, capped overall.
func (r *Reconciler) staticEntries(rows []StaticEntry, now time.Time) []ArrivalEstimate {
	entries := make([]ArrivalEstimate, 0, len(rows))
	for _, row := range rows {
		if row.Arrival.IsZero() || row.Arrival.Before(now) {
			continue
		}
		entries = append(entries, ArrivalEstimate{
			RouteLabel: row.RouteLabel,
			Scheduled:  row.Arrival,
			Source:     SourceStatic,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Scheduled.Before(entries[j].Scheduled)
	})
	if len(entries) > r.cfg.StaticCap {
		entries = entries[:r.cfg.StaticCap]
	}
	return entries
}

// entryTime is the instant an entry is sorted and filtered by.
func entryTime(e ArrivalEstimate) time.Time {
	if !e.Estimated.IsZero() {
		return e.Estimated
	}
	return e.Scheduled
}

func (r *Reconciler) countResult(source string) {
	if r.m != nil {
		r.m.ArrivalsResultsTotal.WithLabelValues(source).Inc()
	}
}
