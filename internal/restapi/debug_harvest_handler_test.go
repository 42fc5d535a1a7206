package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebugHarvestStartsRun(t *testing.T) {
	api, mux, _ := newTestAPI(t, nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/debug/harvest", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	// The run proceeds in the background; the harvested stop shows up in
	// the published inventory once it finishes.
	assert.Eventually(t, func() bool {
		_, ok := api.Stops.Get("90001")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDebugHarvestWithoutHarvester(t *testing.T) {
	api, mux, _ := newTestAPI(t, nil)
	api.Harvester = nil

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/debug/harvest", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
