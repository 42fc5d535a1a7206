package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tracker.wpgtransit.org/internal/logging"
)

// LiveArrival is one upcoming (or recently passed) vehicle arrival as
// reported by the live feed. Estimated is zero when the provider supplied
// no usable estimate; Scheduled is zero when the entry could not be
// parsed at all.
type LiveArrival struct {
	Scheduled time.Time
	Estimated time.Time
}

// RouteSchedule groups a route's live arrivals under its display label.
type RouteSchedule struct {
	RouteLabel string
	Arrivals   []LiveArrival
}

// LiveArrivals fetches the near-real-time arrival schedule for one stop.
type LiveArrivals interface {
	ScheduleForStop(ctx context.Context, stopID string) ([]RouteSchedule, error)
}

// HTTPLiveArrivals is the production LiveArrivals backed by the provider's
// per-stop schedule endpoint. Times in the feed carry no zone and are
// interpreted in the provider's local time.
type HTTPLiveArrivals struct {
	baseURL string
	apiKey  string
	loc     *time.Location
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPLiveArrivals creates a live arrivals client. loc is the
// provider's local timezone, used to interpret zone-less timestamps.
func NewHTTPLiveArrivals(baseURL, apiKey string, loc *time.Location, logger *slog.Logger) *HTTPLiveArrivals {
	return &HTTPLiveArrivals{
		baseURL: baseURL,
		apiKey:  apiKey,
		loc:     loc,
		client:  newProviderHTTPClient(),
		logger:  logger.With(slog.String("component", "live_arrivals")),
	}
}

// Wire shapes of the provider's schedule response.
type liveScheduleResponse struct {
	StopSchedule struct {
		RouteSchedules []struct {
			Route struct {
				Number json.Number `json:"number"`
				Name   string      `json:"name"`
			} `json:"route"`
			ScheduledStops []struct {
				Times struct {
					Arrival struct {
						Scheduled string `json:"scheduled"`
						Estimated string `json:"estimated"`
					} `json:"arrival"`
				} `json:"times"`
			} `json:"scheduled-stops"`
		} `json:"route-schedules"`
	} `json:"stop-schedule"`
}

// ScheduleForStop fetches the live schedule for the given stop.
func (p *HTTPLiveArrivals) ScheduleForStop(ctx context.Context, stopID string) ([]RouteSchedule, error) {
	endpoint := fmt.Sprintf("%s/stops/%s/schedule.json?api-key=%s",
		p.baseURL, url.PathEscape(stopID), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating live schedule request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing live schedule request: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, p.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ProviderError{Provider: "live arrivals", StatusCode: resp.StatusCode, Body: string(body)}
	}

	const maxBodySize = 5 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading live schedule response: %w", err)
	}
	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("live schedule response exceeds size limit of %d bytes", maxBodySize)
	}

	var payload liveScheduleResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing live schedule response: %w", err)
	}

	routes := make([]RouteSchedule, 0, len(payload.StopSchedule.RouteSchedules))
	for _, rs := range payload.StopSchedule.RouteSchedules {
		label := rs.Route.Number.String()
		if label == "" {
			label = rs.Route.Name
		}
		route := RouteSchedule{RouteLabel: label}
		for _, ss := range rs.ScheduledStops {
			route.Arrivals = append(route.Arrivals, LiveArrival{
				Scheduled: p.parseTime(ss.Times.Arrival.Scheduled),
				Estimated: p.parseTime(ss.Times.Arrival.Estimated),
			})
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// parseTime parses provider timestamps, which may arrive as RFC3339 or as
// zone-less local time. Unparsable input yields the zero time; callers
// treat such entries as stale/invalid rather than failing the whole stop.
func (p *HTTPLiveArrivals) parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, p.loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
