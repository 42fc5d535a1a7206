// Package schedule reconciles live arrival predictions against the static
// timetable, deciding per stop which source is trustworthy enough to show.
package schedule

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// Source identifies where a stop's arrival entries came from.
type Source string

const (
	// SourceLive means the real-time feed was fresh enough to use.
	SourceLive Source = "LIVE"
	// SourceStatic means the timetable fallback was used.
	SourceStatic Source = "STATIC"
	// SourceNone means neither source yielded an upcoming arrival. This
	// is a legitimate empty state, not a failure.
	SourceNone Source = "NONE"
)

// ArrivalEstimate is one upcoming arrival at a stop, normalized across
// both sources. Estimated is zero for static entries and for live entries
// whose prediction was missing or unparsable.
type ArrivalEstimate struct {
	RouteLabel string    `json:"routeLabel"`
	Scheduled  time.Time `json:"scheduled"`
	Estimated  time.Time `json:"estimated,omitzero"`
	Source     Source    `json:"source"`
}

// Result is the reconciled arrival board for one stop.
type Result struct {
	StopID  string            `json:"stopId"`
	Source  Source            `json:"source"`
	Entries []ArrivalEstimate `json:"entries"`
}

// NoData reports whether the result is the explicit empty state.
func (r Result) NoData() bool {
	return r.Source == SourceNone
}

// StaticEntry is one timetable row for a stop, already parsed into
// concrete times by the static schedule store.
type StaticEntry struct {
	TripID     string
	RouteLabel string
	Arrival    time.Time
	Departure  time.Time
}

// StaticSource serves timetable rows for a stop.
type StaticSource interface {
	StopArrivals(ctx context.Context, stopID string) ([]StaticEntry, error)
}

// ErrInvalidStopID rejects malformed stop identifiers before any fetch.
var ErrInvalidStopID = errors.New("invalid stop id")

var stopIDPattern = regexp.MustCompile(`^[\w-]+$`)

// ValidStopID reports whether id is safe to pass to the providers.
func ValidStopID(id string) bool {
	return stopIDPattern.MatchString(id)
}
