package scheddb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/OneBusAway/go-gtfs"

	"tracker.wpgtransit.org/internal/logging"
)

// ImportFromFile loads a GTFS zip from disk into the database. An import
// whose content hash matches the previous one is skipped.
func (c *Client) ImportFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading GTFS file: %w", err)
	}
	return c.importStatic(ctx, data, path)
}

func (c *Client) importStatic(ctx context.Context, b []byte, source string) error {
	start := time.Now()

	hash := sha256.Sum256(b)
	hashStr := hex.EncodeToString(hash[:])

	var existingHash, existingSource string
	err := c.DB.QueryRowContext(ctx,
		"SELECT file_hash, file_source FROM import_metadata WHERE id = 1").
		Scan(&existingHash, &existingSource)
	switch {
	case err == nil:
		if existingHash == hashStr && existingSource == source {
			logging.LogOperation(c.logger, "gtfs_data_unchanged_skipping_import",
				slog.String("hash", hashStr[:8]))
			return nil
		}
	case err != sql.ErrNoRows:
		return fmt.Errorf("checking import metadata: %w", err)
	}

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return fmt.Errorf("parsing GTFS data: %w", err)
	}

	logging.LogOperation(c.logger, "starting_schedule_import",
		slog.String("source", source),
		slog.Int("routes", len(staticData.Routes)),
		slog.Int("trips", len(staticData.Trips)),
		slog.Int("shapes", len(staticData.Shapes)))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"stop_times", "trips", "shapes", "calendar", "routes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, r := range staticData.Routes {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO routes (id, short_name, long_name) VALUES (?, ?, ?)",
			r.Id, r.ShortName, r.LongName)
		if err != nil {
			return fmt.Errorf("inserting route %s: %w", r.Id, err)
		}
	}

	for _, s := range staticData.Services {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO calendar
			 (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.Id,
			boolToInt(s.Monday), boolToInt(s.Tuesday), boolToInt(s.Wednesday),
			boolToInt(s.Thursday), boolToInt(s.Friday), boolToInt(s.Saturday),
			boolToInt(s.Sunday),
			s.StartDate.Format("20060102"), s.EndDate.Format("20060102"))
		if err != nil {
			return fmt.Errorf("inserting service %s: %w", s.Id, err)
		}
	}

	for _, t := range staticData.Trips {
		var shapeID string
		if t.Shape != nil {
			shapeID = t.Shape.ID
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO trips (id, route_id, service_id, shape_id) VALUES (?, ?, ?, ?)",
			t.ID, t.Route.Id, t.Service.Id, shapeID)
		if err != nil {
			return fmt.Errorf("inserting trip %s: %w", t.ID, err)
		}

		for _, st := range t.StopTimes {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO stop_times (trip_id, stop_id, arrival_secs, departure_secs, stop_sequence)
				 VALUES (?, ?, ?, ?, ?)`,
				t.ID, st.Stop.Id,
				int64(st.ArrivalTime/time.Second),
				int64(st.DepartureTime/time.Second),
				int64(st.StopSequence))
			if err != nil {
				return fmt.Errorf("inserting stop time for trip %s: %w", t.ID, err)
			}
		}
	}

	for _, s := range staticData.Shapes {
		for idx, pt := range s.Points {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO shapes (shape_id, lat, lon, sequence) VALUES (?, ?, ?, ?)",
				s.ID, pt.Latitude, pt.Longitude, int64(idx))
			if err != nil {
				return fmt.Errorf("inserting shape %s: %w", s.ID, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO import_metadata (id, file_hash, file_source, import_time) VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET file_hash = excluded.file_hash,
		                                file_source = excluded.file_source,
		                                import_time = excluded.import_time`,
		hashStr, source, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("updating import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(c.logger, "schedule_import_completed",
		slog.Duration("duration", time.Since(start)),
		slog.String("hash", hashStr[:8]))
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
