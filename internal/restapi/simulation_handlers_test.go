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

type vehiclesResponse struct {
	Data struct {
		RouteID  string `json:"routeId"`
		Vehicles []struct {
			TripID string  `json:"tripId"`
			Lat    float64 `json:"lat"`
			Lon    float64 `json:"lon"`
		} `json:"vehicles"`
	} `json:"data"`
}

func TestSimulationLifecycle(t *testing.T) {
	_, mux, clk := newTestAPI(t, nil)

	// Start: trip-1 is mid-run at noon, so a vehicle appears right away.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/routes/11/simulation/start", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body vehiclesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.Vehicles, 1)
	assert.Equal(t, "trip-1", body.Data.Vehicles[0].TripID)

	// Poll: still in service.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/routes/11/vehicles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Vehicles, 1)

	// Past the trip's end the marker disappears on the next evaluation.
	clk.Advance(30 * time.Minute)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/routes/11/vehicles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Data.Vehicles)

	// Stop.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/simulation/stop", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// After stopping, polling is a conflict again.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/routes/11/vehicles", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVehiclesWithoutActiveSimulation(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/routes/11/vehicles", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartSimulationUnknownRoute(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/routes/nope/simulation/start", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
