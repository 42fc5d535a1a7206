// Package stops holds the harvested stop inventory: an immutable published
// snapshot with a spatial index for nearby queries, and a JSON snapshot
// store that persists the inventory across restarts.
package stops

// Stop is a fixed transit boarding location. Stops are created and
// overwritten only by the grid harvester; every other component treats
// them as read-only.
type Stop struct {
	ID        string  `json:"stop_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Direction string  `json:"direction,omitempty"`
	Street    string  `json:"street,omitempty"`
}
