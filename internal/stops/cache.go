package stops

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/tidwall/rtree"

	"tracker.wpgtransit.org/internal/geo"
)

// ErrInvalidCoordinates is returned by Nearby for coordinates outside the
// WGS84 domain. It is the only failure mode of the read path; an empty
// inventory or an empty result is not an error.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// snapshot is one immutable published version of the inventory. The
// harvester mutates a working copy and publishes whole snapshots; readers
// see either the previous or the next version, never a partial merge.
type snapshot struct {
	byID        map[string]Stop
	index       rtree.RTreeG[Stop]
	lastUpdated time.Time
}

// Cache is the in-memory stop inventory. Safe for concurrent readers with
// a single writer (the harvester) publishing replacement snapshots.
type Cache struct {
	current atomic.Pointer[snapshot]
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	c.current.Store(&snapshot{byID: map[string]Stop{}})
	return c
}

// Publish replaces the visible inventory with the given stop set. The map
// is copied; callers may keep mutating their working copy afterwards.
func (c *Cache) Publish(stops map[string]Stop, lastUpdated time.Time) {
	next := &snapshot{
		byID:        make(map[string]Stop, len(stops)),
		lastUpdated: lastUpdated,
	}
	for id, stop := range stops {
		next.byID[id] = stop
		next.index.Insert(
			[2]float64{stop.Lon, stop.Lat},
			[2]float64{stop.Lon, stop.Lat},
			stop,
		)
	}
	c.current.Store(next)
}

// Get returns the stop with the given identifier.
func (c *Cache) Get(id string) (Stop, bool) {
	stop, ok := c.current.Load().byID[id]
	return stop, ok
}

// All returns a copy of every stop in the current snapshot.
func (c *Cache) All() []Stop {
	snap := c.current.Load()
	out := make([]Stop, 0, len(snap.byID))
	for _, stop := range snap.byID {
		out = append(out, stop)
	}
	return out
}

// Len returns the number of stops in the current snapshot.
func (c *Cache) Len() int {
	return len(c.current.Load().byID)
}

// LastUpdated returns the timestamp of the current snapshot; zero when the
// inventory has never been populated.
func (c *Cache) LastUpdated() time.Time {
	return c.current.Load().lastUpdated
}

// Nearby returns every stop within radius meters of the given point, in
// unspecified order. An empty result is a valid answer, not an error;
// coordinates outside the WGS84 domain or a non-positive radius fail with
// ErrInvalidCoordinates.
func (c *Cache) Nearby(lat, lon, radius float64) ([]Stop, error) {
	if !geo.ValidCoordinates(lat, lon) || math.IsNaN(radius) || radius <= 0 {
		return nil, ErrInvalidCoordinates
	}

	snap := c.current.Load()

	// Bounding-box prefilter over the spatial index, then an exact
	// great-circle check to trim the box corners.
	latOffset := (radius / geo.EarthRadiusMeters) * 180 / math.Pi
	lonRadius := math.Cos(lat*math.Pi/180) * geo.EarthRadiusMeters
	lonOffset := latOffset
	if lonRadius > 0 {
		lonOffset = (radius / lonRadius) * 180 / math.Pi
	}

	results := []Stop{}
	snap.index.Search(
		[2]float64{lon - lonOffset, lat - latOffset},
		[2]float64{lon + lonOffset, lat + latOffset},
		func(_, _ [2]float64, stop Stop) bool {
			if geo.Distance(lat, lon, stop.Lat, stop.Lon) <= radius {
				results = append(results, stop)
			}
			return true
		},
	)
	return results, nil
}
