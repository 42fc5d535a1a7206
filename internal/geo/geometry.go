// Package geo provides the coordinate math shared by the stop cache, the
// grid harvester, and the vehicle simulator: great-circle distances and
// interpolation along polyline shapes.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for all distance math.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance in meters between two
// coordinates using the haversine formula. Non-numeric input (NaN) yields
// +Inf rather than an error so callers can filter it out with a plain
// comparison.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if math.IsNaN(lat1) || math.IsNaN(lon1) || math.IsNaN(lat2) || math.IsNaN(lon2) {
		return math.Inf(1)
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// DistanceBetween is Distance over two Points.
func DistanceBetween(a, b Point) float64 {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

// ValidCoordinates reports whether lat/lon form a plausible WGS84 pair.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// CumulativeDistances returns, for each point in the polyline, the
// great-circle distance in meters traveled from the first point. The slice
// has the same length as points; index 0 is always 0.
func CumulativeDistances(points []Point) []float64 {
	if len(points) == 0 {
		return nil
	}
	cum := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cum[i] = cum[i-1] + DistanceBetween(points[i-1], points[i])
	}
	return cum
}
