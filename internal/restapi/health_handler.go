package restapi

import (
	"encoding/json"
	"net/http"

	"tracker.wpgtransit.org/internal/logging"
)

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	StopCount int    `json:"stopCount"`
}

// healthHandler verifies the schedule database is reachable and reports
// the inventory size. An empty inventory is not a failure; the first
// harvest may still be running.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if api.Application == nil || api.Schedule == nil || api.Schedule.DB == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "schedule database not initialized",
		})
		return
	}

	if err := api.Schedule.DB.PingContext(r.Context()); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "schedule DB ping failed", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status: "unavailable",
			Detail: "database connection failed",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		StopCount: api.Stops.Len(),
	})
}
