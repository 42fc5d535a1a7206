package restapi

import (
	"errors"
	"net/http"
	"strconv"

	"tracker.wpgtransit.org/internal/models"
	"tracker.wpgtransit.org/internal/stops"
)

// Query defaults cover downtown Winnipeg with a walkable radius.
const (
	defaultNearbyLat    = 49.8955
	defaultNearbyLon    = -97.1384
	defaultNearbyRadius = 500.0
	maxNearbyRadius     = 10000.0
)

func (api *RestAPI) nearbyStopsHandler(w http.ResponseWriter, r *http.Request) {
	lat, err := floatParam(r, "lat", defaultNearbyLat)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "invalid lat parameter")
		return
	}
	lon, err := floatParam(r, "lon", defaultNearbyLon)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "invalid lon parameter")
		return
	}
	radius, err := floatParam(r, "radius", defaultNearbyRadius)
	if err != nil || radius <= 0 || radius > maxNearbyRadius {
		api.sendError(w, r, http.StatusBadRequest, "invalid radius parameter")
		return
	}

	found, err := api.Stops.Nearby(lat, lon, radius)
	if err != nil {
		if errors.Is(err, stops.ErrInvalidCoordinates) {
			api.sendError(w, r, http.StatusBadRequest, "invalid coordinates")
			return
		}
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(api.Clock, models.NearbyStopsData{
		Stops:       found,
		LastUpdated: api.Stops.LastUpdated(),
	}))
}

func floatParam(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(raw, 64)
}
