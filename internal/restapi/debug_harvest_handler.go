package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"tracker.wpgtransit.org/internal/harvest"
	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/models"
)

// debugHarvestHandler kicks off a harvest run outside the daily schedule.
// The run proceeds in the background; a run already in progress is not
// restarted. Registered outside production only.
func (api *RestAPI) debugHarvestHandler(w http.ResponseWriter, r *http.Request) {
	if api.Harvester == nil {
		api.sendError(w, r, http.StatusServiceUnavailable, "harvester not configured")
		return
	}
	if api.Harvester.Active() {
		api.sendError(w, r, http.StatusConflict, "harvest run already active")
		return
	}

	go func() {
		if err := api.Harvester.Run(context.Background()); err != nil && !errors.Is(err, harvest.ErrRunActive) {
			logging.LogError(api.Logger, "manual harvest run failed", err)
		}
	}()

	setJSONResponseType(&w)
	w.WriteHeader(http.StatusAccepted)
	response := models.ResponseModel{
		Code:        http.StatusAccepted,
		CurrentTime: models.ResponseCurrentTime(api.Clock),
		Text:        "harvest run started",
		Version:     2,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.serverErrorResponse(w, r, err)
	}
}
