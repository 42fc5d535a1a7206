// Package models defines the JSON response shapes of the REST surface.
package models

import (
	"time"

	"tracker.wpgtransit.org/internal/clock"
	"tracker.wpgtransit.org/internal/schedule"
	"tracker.wpgtransit.org/internal/stops"
)

// ResponseModel is the envelope every endpoint responds with.
type ResponseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
	Version     int    `json:"version"`
	Data        any    `json:"data,omitempty"`
}

// ResponseCurrentTime returns the envelope timestamp in Unix millis.
func ResponseCurrentTime(c clock.Clock) int64 {
	return c.NowUnixMilli()
}

// NewOKResponse wraps data in a 200 envelope.
func NewOKResponse(c clock.Clock, data any) ResponseModel {
	return ResponseModel{
		Code:        200,
		CurrentTime: ResponseCurrentTime(c),
		Text:        "OK",
		Version:     2,
		Data:        data,
	}
}

// NearbyStopsData is the payload of the nearby-stops endpoint.
type NearbyStopsData struct {
	Stops       []stops.Stop `json:"stops"`
	LastUpdated time.Time    `json:"lastUpdated"`
}

// ArrivalsData is the payload of the arrivals endpoint.
type ArrivalsData struct {
	StopID  string                     `json:"stopId"`
	Source  schedule.Source            `json:"source"`
	Entries []schedule.ArrivalEstimate `json:"entries"`
}

// ShapeData is the payload of the shape endpoint: one encoded polyline
// per shape the route's trips reference.
type ShapeData struct {
	RouteID string       `json:"routeId"`
	Shapes  []ShapeModel `json:"shapes"`
}

// ShapeModel is a single route shape as an encoded polyline.
type ShapeModel struct {
	ShapeID  string `json:"shapeId"`
	Polyline string `json:"polyline"`
	Points   int    `json:"points"`
}

// VehicleModel is one simulated vehicle position.
type VehicleModel struct {
	TripID string  `json:"tripId"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// VehiclesData is the payload of the vehicles endpoint.
type VehiclesData struct {
	RouteID  string         `json:"routeId"`
	Vehicles []VehicleModel `json:"vehicles"`
}

// RoutesData is the payload of the route index endpoint.
type RoutesData struct {
	RouteIDs []string `json:"routeIds"`
}
