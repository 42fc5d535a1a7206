package geo

// InterpolateOnPolyline returns the point that lies at the given fraction
// of the polyline's total great-circle length. Progress is clamped to
// [0, 1]. A single-point polyline always resolves to that point; an empty
// polyline returns ok=false.
func InterpolateOnPolyline(points []Point, progress float64) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	if len(points) == 1 {
		return points[0], true
	}
	if progress <= 0 {
		return points[0], true
	}
	if progress >= 1 {
		return points[len(points)-1], true
	}

	cum := CumulativeDistances(points)
	total := cum[len(cum)-1]
	if total == 0 {
		// Degenerate shape: every point coincides.
		return points[0], true
	}

	target := progress * total
	for i := 1; i < len(points); i++ {
		if cum[i] < target {
			continue
		}
		segment := cum[i] - cum[i-1]
		if segment == 0 {
			// Zero-length segment resolves to its start point.
			return points[i-1], true
		}
		frac := (target - cum[i-1]) / segment
		return Point{
			Lat: points[i-1].Lat + (points[i].Lat-points[i-1].Lat)*frac,
			Lon: points[i-1].Lon + (points[i].Lon-points[i-1].Lon)*frac,
		}, true
	}

	return points[len(points)-1], true
}
