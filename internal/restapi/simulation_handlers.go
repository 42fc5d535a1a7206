package restapi

import (
	"log/slog"
	"net/http"

	"tracker.wpgtransit.org/internal/geo"
	"tracker.wpgtransit.org/internal/models"
)

// loggingObserver traces marker changes at debug level. The simulator
// keeps the authoritative marker set; the vehicles endpoint reads it via
// Positions.
type loggingObserver struct {
	logger *slog.Logger
}

func (o *loggingObserver) UpdateVehicle(tripID string, lat, lon float64) {
	o.logger.Debug("vehicle marker updated",
		slog.String("trip_id", tripID),
		slog.Float64("lat", lat),
		slog.Float64("lon", lon))
}

func (o *loggingObserver) RemoveVehicle(tripID string) {
	o.logger.Debug("vehicle marker removed", slog.String("trip_id", tripID))
}

// startSimulationHandler selects a route for simulation, replacing any
// previously selected route.
func (api *RestAPI) startSimulationHandler(w http.ResponseWriter, r *http.Request) {
	routeID := r.PathValue("routeID")

	trips, err := api.Schedule.TripsForRoute(r.Context(), routeID)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	if len(trips) == 0 {
		api.sendNotFound(w, r)
		return
	}

	shapes := make(map[string][]geo.Point)
	for _, trip := range trips {
		if trip.ShapeID == "" || shapes[trip.ShapeID] != nil {
			continue
		}
		points, err := api.Schedule.ShapePoints(r.Context(), trip.ShapeID)
		if err != nil {
			api.serverErrorResponse(w, r, err)
			return
		}
		shapes[trip.ShapeID] = points
	}

	api.simMu.Lock()
	api.activeRoute = routeID
	api.simMu.Unlock()

	api.Simulator.Start(trips, shapes, &loggingObserver{logger: api.Logger})

	api.sendResponse(w, r, models.NewOKResponse(api.Clock, models.VehiclesData{
		RouteID:  routeID,
		Vehicles: api.currentVehicles(),
	}))
}

func (api *RestAPI) stopSimulationHandler(w http.ResponseWriter, r *http.Request) {
	api.simMu.Lock()
	api.activeRoute = ""
	api.simMu.Unlock()

	api.Simulator.Stop()
	api.sendResponse(w, r, models.NewOKResponse(api.Clock, nil))
}

// vehiclesHandler returns the simulated positions for the currently
// selected route. Selecting a different route than the active one is a
// conflict; clients must start a simulation for it first.
func (api *RestAPI) vehiclesHandler(w http.ResponseWriter, r *http.Request) {
	routeID := r.PathValue("routeID")

	api.simMu.Lock()
	active := api.activeRoute
	api.simMu.Unlock()

	if active != routeID {
		api.sendError(w, r, http.StatusConflict, "no active simulation for route")
		return
	}

	api.Simulator.Tick()
	api.sendResponse(w, r, models.NewOKResponse(api.Clock, models.VehiclesData{
		RouteID:  routeID,
		Vehicles: api.currentVehicles(),
	}))
}

func (api *RestAPI) currentVehicles() []models.VehicleModel {
	positions := api.Simulator.Positions()
	vehicles := make([]models.VehicleModel, 0, len(positions))
	for tripID, pos := range positions {
		vehicles = append(vehicles, models.VehicleModel{TripID: tripID, Lat: pos.Lat, Lon: pos.Lon})
	}
	return vehicles
}
