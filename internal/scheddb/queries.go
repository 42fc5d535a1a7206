package scheddb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tracker.wpgtransit.org/internal/geo"
	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/schedule"
)

// TripStopTime is one stop visit within a trip, with times resolved onto
// a concrete service day.
type TripStopTime struct {
	StopID    string
	Arrival   time.Time
	Departure time.Time
	Sequence  int
}

// Trip is a scheduled run of a route with its ordered stop visits.
type Trip struct {
	ID        string
	RouteID   string
	ShapeID   string
	StopTimes []TripStopTime
}

var weekdayColumns = map[time.Weekday]string{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

// serviceDay returns midnight of the current day in the agency timezone.
// GTFS times-of-day are offsets from it; values past 24h roll into the
// following calendar day, which the offset addition handles naturally.
func (c *Client) serviceDay() time.Time {
	local := c.clock.Now().In(c.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.cfg.Location)
}

// StopArrivals returns today's timetable rows for a stop, restricted to
// services running on the current weekday. Implements the reconciler's
// static source.
func (c *Client) StopArrivals(ctx context.Context, stopID string) ([]schedule.StaticEntry, error) {
	day := c.serviceDay()
	column, ok := weekdayColumns[day.Weekday()]
	if !ok {
		return nil, fmt.Errorf("no calendar column for weekday %v", day.Weekday())
	}

	query := fmt.Sprintf(`
		SELECT st.trip_id, st.arrival_secs, st.departure_secs,
		       COALESCE(NULLIF(r.short_name, ''), NULLIF(r.long_name, ''), r.id)
		FROM stop_times st
		JOIN trips t ON t.id = st.trip_id
		JOIN routes r ON r.id = t.route_id
		JOIN calendar c ON c.service_id = t.service_id
		WHERE st.stop_id = ? AND c.%s = 1
		ORDER BY st.arrival_secs`, column)

	rows, err := c.DB.QueryContext(ctx, query, stopID)
	if err != nil {
		return nil, fmt.Errorf("querying stop arrivals: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "database_rows")

	var entries []schedule.StaticEntry
	for rows.Next() {
		var (
			tripID, routeLabel   string
			arrivalSecs, depSecs int64
		)
		if err := rows.Scan(&tripID, &arrivalSecs, &depSecs, &routeLabel); err != nil {
			return nil, fmt.Errorf("scanning stop arrival row: %w", err)
		}
		entries = append(entries, schedule.StaticEntry{
			TripID:     tripID,
			RouteLabel: routeLabel,
			Arrival:    day.Add(time.Duration(arrivalSecs) * time.Second),
			Departure:  day.Add(time.Duration(depSecs) * time.Second),
		})
	}
	return entries, rows.Err()
}

// TripsForRoute returns today's trips on a route, each with its stop
// visits in sequence order. Trips without any stop time are omitted.
func (c *Client) TripsForRoute(ctx context.Context, routeID string) ([]Trip, error) {
	day := c.serviceDay()
	column := weekdayColumns[day.Weekday()]

	query := fmt.Sprintf(`
		SELECT t.id, t.route_id, t.shape_id,
		       st.stop_id, st.arrival_secs, st.departure_secs, st.stop_sequence
		FROM trips t
		JOIN calendar c ON c.service_id = t.service_id
		JOIN stop_times st ON st.trip_id = t.id
		WHERE t.route_id = ? AND c.%s = 1
		ORDER BY t.id, st.stop_sequence`, column)

	rows, err := c.DB.QueryContext(ctx, query, routeID)
	if err != nil {
		return nil, fmt.Errorf("querying trips for route: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "database_rows")

	var trips []Trip
	for rows.Next() {
		var (
			tripID, rID          string
			shapeID              sql.NullString
			stopID               string
			arrivalSecs, depSecs int64
			sequence             int64
		)
		if err := rows.Scan(&tripID, &rID, &shapeID, &stopID, &arrivalSecs, &depSecs, &sequence); err != nil {
			return nil, fmt.Errorf("scanning trip row: %w", err)
		}

		if len(trips) == 0 || trips[len(trips)-1].ID != tripID {
			trips = append(trips, Trip{ID: tripID, RouteID: rID, ShapeID: shapeID.String})
		}
		trip := &trips[len(trips)-1]
		trip.StopTimes = append(trip.StopTimes, TripStopTime{
			StopID:    stopID,
			Arrival:   day.Add(time.Duration(arrivalSecs) * time.Second),
			Departure: day.Add(time.Duration(depSecs) * time.Second),
			Sequence:  int(sequence),
		})
	}
	return trips, rows.Err()
}

// ShapePoints returns a shape's points in sequence order.
func (c *Client) ShapePoints(ctx context.Context, shapeID string) ([]geo.Point, error) {
	rows, err := c.DB.QueryContext(ctx,
		"SELECT lat, lon FROM shapes WHERE shape_id = ? ORDER BY sequence", shapeID)
	if err != nil {
		return nil, fmt.Errorf("querying shape points: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "database_rows")

	var points []geo.Point
	for rows.Next() {
		var p geo.Point
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, fmt.Errorf("scanning shape point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// RouteIDs lists all route identifiers, for the route index endpoint.
func (c *Client) RouteIDs(ctx context.Context) ([]string, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT id FROM routes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying routes: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "database_rows")

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning route id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
