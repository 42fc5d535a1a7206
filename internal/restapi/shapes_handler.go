package restapi

import (
	"net/http"

	"github.com/twpayne/go-polyline"

	"tracker.wpgtransit.org/internal/models"
)

func (api *RestAPI) routesHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := api.Schedule.RouteIDs(r.Context())
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(api.Clock, models.RoutesData{RouteIDs: ids}))
}

func (api *RestAPI) shapesHandler(w http.ResponseWriter, r *http.Request) {
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

	seen := make(map[string]bool)
	shapes := make([]models.ShapeModel, 0, len(trips))
	for _, trip := range trips {
		if trip.ShapeID == "" || seen[trip.ShapeID] {
			continue
		}
		seen[trip.ShapeID] = true

		points, err := api.Schedule.ShapePoints(r.Context(), trip.ShapeID)
		if err != nil {
			api.serverErrorResponse(w, r, err)
			return
		}
		if len(points) == 0 {
			continue
		}

		coords := make([][]float64, len(points))
		for i, p := range points {
			coords[i] = []float64{p.Lat, p.Lon}
		}
		shapes = append(shapes, models.ShapeModel{
			ShapeID:  trip.ShapeID,
			Polyline: string(polyline.EncodeCoords(coords)),
			Points:   len(points),
		})
	}

	api.sendResponse(w, r, models.NewOKResponse(api.Clock, models.ShapeData{
		RouteID: routeID,
		Shapes:  shapes,
	}))
}
