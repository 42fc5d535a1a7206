package restapi

import (
	"errors"
	"net/http"

	"tracker.wpgtransit.org/internal/models"
	"tracker.wpgtransit.org/internal/schedule"
)

func (api *RestAPI) arrivalsHandler(w http.ResponseWriter, r *http.Request) {
	stopID := r.PathValue("stopID")

	result, err := api.Arrivals.ArrivalsFor(r.Context(), stopID)
	if err != nil {
		if errors.Is(err, schedule.ErrInvalidStopID) {
			api.sendError(w, r, http.StatusBadRequest, "invalid stop id")
			return
		}
		api.serverErrorResponse(w, r, err)
		return
	}

	// A stop with nothing upcoming still answers 200; the NONE source
	// tells clients apart from a fetch error.
	api.sendResponse(w, r, models.NewOKResponse(api.Clock, models.ArrivalsData{
		StopID:  result.StopID,
		Source:  result.Source,
		Entries: result.Entries,
	}))
}
