package restapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker.wpgtransit.org/internal/schedule"
)

func TestArrivalsHandlerLiveResult(t *testing.T) {
	arrivals := &fakeArrivals{result: schedule.Result{
		Source: schedule.SourceLive,
		Entries: []schedule.ArrivalEstimate{
			{
				RouteLabel: "11",
				Scheduled:  testNow.Add(5 * time.Minute),
				Estimated:  testNow.Add(6 * time.Minute),
				Source:     schedule.SourceLive,
			},
		},
	}}
	_, mux, _ := newTestAPI(t, arrivals)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/stops/10625/arrivals", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			StopID  string `json:"stopId"`
			Source  string `json:"source"`
			Entries []struct {
				RouteLabel string `json:"routeLabel"`
			} `json:"entries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "10625", body.Data.StopID)
	assert.Equal(t, "LIVE", body.Data.Source)
	require.Len(t, body.Data.Entries, 1)
	assert.Equal(t, "11", body.Data.Entries[0].RouteLabel)
}

func TestArrivalsHandlerNoData(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/stops/10625/arrivals", nil))
	// A legitimately empty board is still a 200, with the NONE source.
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Source  string            `json:"source"`
			Entries []json.RawMessage `json:"entries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NONE", body.Data.Source)
	assert.Empty(t, body.Data.Entries)
}

func TestArrivalsHandlerInvalidStopID(t *testing.T) {
	_, mux, _ := newTestAPI(t, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/stops/bad%20id/arrivals", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
