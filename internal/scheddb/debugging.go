package scheddb

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"tracker.wpgtransit.org/internal/logging"
)

// TableCounts returns row counts per table, for the debug endpoint and
// import sanity checks.
func (c *Client) TableCounts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"routes", "calendar", "trips", "stop_times", "shapes"} {
		var count int
		if err := c.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

// DumpSchema renders the database schema and row counts as a readable
// string for the debug endpoint.
func (c *Client) DumpSchema() (string, error) {
	rows, err := c.DB.Query(`
		SELECT type, name, sql
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY type, name`)
	if err != nil {
		return "", err
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "database_rows")

	type schemaObject struct {
		Type string
		Name string
		SQL  string
	}
	var objects []schemaObject
	for rows.Next() {
		var obj schemaObject
		if err := rows.Scan(&obj.Type, &obj.Name, &obj.SQL); err != nil {
			return "", err
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	counts, err := c.TableCounts()
	if err != nil {
		return "", err
	}

	return spew.Sdump(struct {
		Objects []schemaObject
		Counts  map[string]int
	}{Objects: objects, Counts: counts}), nil
}
