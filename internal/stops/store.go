package stops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// snapshotFile is the on-disk form of the inventory: a single JSON object
// fully overwritten on every save.
type snapshotFile struct {
	LastUpdated time.Time `json:"lastUpdated"`
	Stops       []Stop    `json:"stops"`
}

// Store persists inventory snapshots to a single JSON file.
type Store struct {
	path string
}

// NewStore creates a store writing to the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted snapshot. A missing file is not an error: it
// yields an empty inventory with a zero timestamp, same as first run.
func (s *Store) Load() (map[string]Stop, time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Stop{}, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("reading stops snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing stops snapshot: %w", err)
	}

	byID := make(map[string]Stop, len(file.Stops))
	for _, stop := range file.Stops {
		if stop.ID == "" {
			continue
		}
		byID[stop.ID] = stop
	}
	return byID, file.LastUpdated, nil
}

// Save overwrites the snapshot file with the given stop set. The write
// goes to a temp file first and is swapped in with a rename so a crash
// mid-write never leaves a truncated snapshot behind.
func (s *Store) Save(byID map[string]Stop, lastUpdated time.Time) error {
	stops := make([]Stop, 0, len(byID))
	for _, stop := range byID {
		stops = append(stops, stop)
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].ID < stops[j].ID })

	data, err := json.MarshalIndent(snapshotFile{LastUpdated: lastUpdated, Stops: stops}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stops snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".stops-*.json")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("swapping stops snapshot: %w", err)
	}
	return nil
}

// UpdatedOnDay reports whether lastUpdated falls on the same calendar day
// as now, evaluated in now's location. Governs whether a startup harvest
// run is skipped.
func UpdatedOnDay(lastUpdated, now time.Time) bool {
	if lastUpdated.IsZero() {
		return false
	}
	y1, m1, d1 := lastUpdated.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
