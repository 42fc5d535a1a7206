// Package sim animates vehicles along a route using nothing but the
// static timetable and shape geometry. There is no real vehicle feed;
// positions are an approximation derived from where the schedule says a
// bus should be.
package sim

import (
	"log/slog"
	"sync"
	"time"

	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/geo"
	"tracker.wpgtransit.org/internal/metrics"
	"tracker.wpgtransit.org/internal/scheddb"
)

// Observer receives marker changes. Calls happen synchronously inside the
// tick, never concurrently.
type Observer interface {
	UpdateVehicle(tripID string, lat, lon float64)
	RemoveVehicle(tripID string)
}

// TripState is where a trip stands relative to the current time.
type TripState int

const (
	StateNotStarted TripState = iota
	StateInService
	StateDwelling
	StateEnded
)

func (s TripState) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateInService:
		return "IN_SERVICE"
	case StateDwelling:
		return "DWELLING"
	case StateEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// DefaultTickInterval is the production re-evaluation period.
const DefaultTickInterval = 10 * time.Second

// Simulator owns the marker set for the currently selected route. One
// timer per selection; Start replaces any previous run, Stop tears it
// down synchronously.
type Simulator struct {
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	m        *metrics.Metrics

	mu  sync.Mutex
	run *simRun
}

type simRun struct {
	trips    []scheddb.Trip
	shapes   map[string][]geo.Point
	observer Observer
	markers  map[string]geo.Point
	shutdown chan struct{}
	done     chan struct{}
}

// New creates a simulator. m may be nil.
func New(interval time.Duration, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Simulator {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Simulator{
		interval: interval,
		clock:    clk,
		logger:   logger.With(slog.String("component", "simulator")),
		m:        m,
	}
}

// Start begins simulating the given trips over their shapes, reporting
// marker changes to observer. A previous run is stopped first, and its
// markers removed. The first evaluation happens before Start returns.
func (s *Simulator) Start(trips []scheddb.Trip, shapes map[string][]geo.Point, observer Observer) {
	s.Stop()

	run := &simRun{
		trips:    trips,
		shapes:   shapes,
		observer: observer,
		markers:  make(map[string]geo.Point),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.run = run
	s.evaluateLocked(run)
	s.mu.Unlock()

	s.logger.Debug("simulation started", slog.Int("trips", len(trips)))

	go s.loop(run)
}

func (s *Simulator) loop(run *simRun) {
	defer close(run.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.run == run {
				s.evaluateLocked(run)
			}
			s.mu.Unlock()
		case <-run.shutdown:
			return
		}
	}
}

// Stop halts the current run and removes its markers. It does not return
// until the run's goroutine has exited. Safe to call when idle.
func (s *Simulator) Stop() {
	s.mu.Lock()
	run := s.run
	s.run = nil
	s.mu.Unlock()

	if run == nil {
		return
	}

	close(run.shutdown)
	<-run.done

	for tripID := range run.markers {
		run.observer.RemoveVehicle(tripID)
	}
	if s.m != nil {
		s.m.SimulatedVehicles.Set(0)
	}
	s.logger.Debug("simulation stopped")
}

// Tick forces one re-evaluation immediately. Used by tests and by the
// REST layer's snapshot endpoint.
func (s *Simulator) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		s.evaluateLocked(s.run)
	}
}

// Positions returns the current marker set.
func (s *Simulator) Positions() map[string]geo.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.run == nil {
		return map[string]geo.Point{}
	}
	out := make(map[string]geo.Point, len(s.run.markers))
	for id, p := range s.run.markers {
		out[id] = p
	}
	return out
}

// evaluateLocked recomputes every trip's position and diffs the result
// against the marker set: new trips get a marker, surviving trips get an
// update, departed trips get a removal. Caller holds s.mu.
func (s *Simulator) evaluateLocked(run *simRun) {
	now := s.clock.Now()

	present := make(map[string]geo.Point)
	for _, trip := range run.trips {
		pos, state, ok := tripPosition(trip, run.shapes[trip.ShapeID], now)
		if !ok || state == StateNotStarted || state == StateEnded {
			continue
		}
		present[trip.ID] = pos
	}

	for tripID, pos := range present {
		run.markers[tripID] = pos
		run.observer.UpdateVehicle(tripID, pos.Lat, pos.Lon)
	}
	for tripID := range run.markers {
		if _, ok := present[tripID]; !ok {
			delete(run.markers, tripID)
			run.observer.RemoveVehicle(tripID)
		}
	}

	if s.m != nil {
		s.m.SimulatedVehicles.Set(float64(len(run.markers)))
	}
}

// tripPosition resolves a trip's state and interpolated position at the
// given instant. ok is false when the trip has no stop times or its shape
// is empty, in which case no marker can exist.
func tripPosition(trip scheddb.Trip, shape []geo.Point, now time.Time) (geo.Point, TripState, bool) {
	if len(trip.StopTimes) == 0 {
		return geo.Point{}, StateNotStarted, false
	}

	firstDeparture := trip.StopTimes[0].Departure
	lastArrival := trip.StopTimes[len(trip.StopTimes)-1].Arrival

	if now.Before(firstDeparture) {
		return geo.Point{}, StateNotStarted, true
	}
	if now.After(lastArrival) {
		return geo.Point{}, StateEnded, true
	}

	total := lastArrival.Sub(firstDeparture)

	// Dwelling: between one stop's arrival and departure the bus sits at
	// that stop, pinned to the stop's share of the trip rather than the
	// wall clock's. The stop's own coordinates exist in the inventory,
	// but stop times carry no distance-along-shape, so snapping to them
	// would make the marker jump off the interpolated path and back.
	for _, st := range trip.StopTimes {
		if !now.Before(st.Arrival) && !now.After(st.Departure) {
			pos, ok := geo.InterpolateOnPolyline(shape, progressAt(st.Arrival, firstDeparture, total))
			return pos, StateDwelling, ok
		}
	}

	// Trip progress is elapsed time over total duration, a deliberate
	// approximation: stop-to-stop distances along the shape are unknown,
	// so unequal segment lengths shift the marker off the true position.
	pos, ok := geo.InterpolateOnPolyline(shape, progressAt(now, firstDeparture, total))
	return pos, StateInService, ok
}

func progressAt(t, start time.Time, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(t.Sub(start)) / float64(total)
}
