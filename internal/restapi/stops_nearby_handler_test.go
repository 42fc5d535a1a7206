package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nearbyResponse struct {
	Code int `json:"code"`
	Data struct {
		Stops []struct {
			ID   string  `json:"stop_id"`
			Name string  `json:"name"`
			Lat  float64 `json:"lat"`
			Lon  float64 `json:"lon"`
		} `json:"stops"`
		LastUpdated time.Time `json:"lastUpdated"`
	} `json:"data"`
}

func doNearby(t *testing.T, mux http.Handler, target string) (*httptest.ResponseRecorder, nearbyResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	var body nearbyResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestNearbyStopsDefaults(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	// No parameters: downtown center, 500 m radius.
	rec, body := doNearby(t, mux, "/api/v1/stops/nearby")
	require.Equal(t, http.StatusOK, rec.Code)

	ids := make([]string, 0, len(body.Data.Stops))
	for _, s := range body.Data.Stops {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, "10625")
	assert.NotContains(t, ids, "60001")
	assert.Equal(t, testNow.Add(-time.Hour), body.Data.LastUpdated.UTC())
}

func TestNearbyStopsRadius(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	rec, body := doNearby(t, mux, "/api/v1/stops/nearby?lat=49.8951&lon=-97.1385&radius=50")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body.Data.Stops, 1)
	assert.Equal(t, "10625", body.Data.Stops[0].ID)

	rec, body = doNearby(t, mux, "/api/v1/stops/nearby?lat=49.8951&lon=-97.1385&radius=2000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body.Data.Stops, 2)
}

func TestNearbyStopsNoMatches(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	rec, body := doNearby(t, mux, "/api/v1/stops/nearby?lat=49.0&lon=-96.0&radius=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body.Data.Stops)
}

func TestNearbyStopsInvalidInput(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	for _, target := range []string{
		"/api/v1/stops/nearby?lat=abc",
		"/api/v1/stops/nearby?lon=abc",
		"/api/v1/stops/nearby?radius=-5",
		"/api/v1/stops/nearby?radius=99999999",
		"/api/v1/stops/nearby?lat=95",
	} {
		rec, _ := doNearby(t, mux, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}
