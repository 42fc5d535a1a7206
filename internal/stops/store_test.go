package stops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.json")
	store := NewStore(path)

	saved := map[string]Stop{
		"10064": {ID: "10064", Name: "Westbound Graham at Vaughan", Lat: 49.8912, Lon: -97.1460, Direction: "Westbound", Street: "Graham"},
		"10065": {ID: "10065", Name: "Eastbound Graham at Smith", Lat: 49.8909, Lon: -97.1410},
	}
	stamp := time.Date(2025, 6, 1, 3, 14, 0, 0, time.UTC)
	require.NoError(t, store.Save(saved, stamp))

	loaded, lastUpdated, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
	assert.True(t, stamp.Equal(lastUpdated))
}

func TestStore_LoadMissingFileIsEmptyInventory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist.json"))

	loaded, lastUpdated, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.True(t, lastUpdated.IsZero())
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.json")
	require.NoError(t, os.WriteFile(path, []byte("this is not json"), 0o644))

	_, _, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestStore_SaveOverwritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.json")
	store := NewStore(path)

	require.NoError(t, store.Save(map[string]Stop{
		"A": {ID: "A", Lat: 1, Lon: 1},
		"B": {ID: "B", Lat: 2, Lon: 2},
	}, time.Now()))
	require.NoError(t, store.Save(map[string]Stop{
		"A": {ID: "A", Lat: 1, Lon: 1},
	}, time.Now()))

	loaded, _, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
	assert.Contains(t, loaded, "A")
}

func TestStore_LoadSkipsStopsWithoutID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.json")
	content := `{"lastUpdated":"2025-06-01T03:00:00Z","stops":[{"stop_id":"A","lat":1,"lon":1},{"name":"orphan"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, _, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestUpdatedOnDay(t *testing.T) {
	winnipeg, err := time.LoadLocation("America/Winnipeg")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, winnipeg)

	tests := []struct {
		name        string
		lastUpdated time.Time
		expected    bool
	}{
		{"zero time", time.Time{}, false},
		{"same day earlier", time.Date(2025, 6, 1, 3, 0, 0, 0, winnipeg), true},
		{"previous day", time.Date(2025, 5, 31, 23, 59, 0, 0, winnipeg), false},
		{"same instant", now, true},
		{"same day in UTC crossing local midnight", time.Date(2025, 6, 1, 4, 30, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UpdatedOnDay(tt.lastUpdated, now))
		})
	}
}
