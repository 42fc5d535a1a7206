// Package scheddb stores the static GTFS timetable in SQLite and serves
// the queries the reconciler and the vehicle simulator build on: arrival
// rows per stop, trips with ordered stop times per route, and shape
// points per shape.
package scheddb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver

	"tracker.wpgtransit.org/internal/clock"
)

//go:embed schema.sql
var ddl string

// Config holds the database settings.
type Config struct {
	// DBPath is the SQLite file path, or ":memory:".
	DBPath string
	// Location interprets GTFS times-of-day as concrete instants; it is
	// the agency's local timezone.
	Location *time.Location
}

// Client wraps the schedule database.
type Client struct {
	cfg    Config
	DB     *sql.DB
	clock  clock.Clock
	logger *slog.Logger
}

// NewClient opens (and migrates) the schedule database.
func NewClient(cfg Config, clk clock.Clock, logger *slog.Logger) (*Client, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening schedule database: %w", err)
	}

	ctx := context.Background()
	if err := configureSQLite(ctx, db); err != nil {
		return nil, fmt.Errorf("configuring sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrating schedule database: %w", err)
	}

	return &Client{
		cfg:    cfg,
		DB:     db,
		clock:  clk,
		logger: logger.With(slog.String("component", "scheddb")),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Path() string {
	return c.cfg.DBPath
}

func configureSQLite(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("executing %s: %w", pragma, err)
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}
