// Package harvest builds the stop inventory by brute-force tiling: the
// stop-lookup provider only answers point-radius queries, so the harvester
// walks a square lattice over the metro area and merges every tile's
// results into one deduplicated stop set.
package harvest

import (
	"math"

	"tracker.wpgtransit.org/internal/geo"
)

const earthRadiusKm = geo.EarthRadiusMeters / 1000

// GenerateGrid returns a square lattice of query centers covering a circle
// of radiusKm around the given center, spaced stepKm apart. Longitude
// spacing widens by 1/cos(lat) so tiles stay roughly square on the ground.
// Full coverage requires the per-tile query radius to be at least half the
// step; callers pick both (defaults: 1.5 km step, 2 km tile radius).
func GenerateGrid(centerLat, centerLon, radiusKm, stepKm float64) []geo.Point {
	if radiusKm <= 0 || stepKm <= 0 {
		return nil
	}

	stepDeg := (stepKm / earthRadiusKm) * (180 / math.Pi)
	steps := int(math.Ceil(radiusKm * 2 / stepKm))

	lonScale := math.Cos(centerLat * math.Pi / 180)

	grid := make([]geo.Point, 0, (steps+1)*(steps+1))
	for i := 0; i <= steps; i++ {
		latOffset := float64(i) - float64(steps)/2
		for j := 0; j <= steps; j++ {
			lonOffset := float64(j) - float64(steps)/2
			grid = append(grid, geo.Point{
				Lat: centerLat + latOffset*stepDeg,
				Lon: centerLon + lonOffset*stepDeg/lonScale,
			})
		}
	}
	return grid
}
