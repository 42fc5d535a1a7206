package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/stops"
)

// StopLookup answers point-radius stop queries. The provider has no bulk
// or export mode; this is the only way to enumerate stops, which is why
// the harvester tiles the whole region through it.
type StopLookup interface {
	StopsNear(ctx context.Context, lat, lon, radiusMeters float64) ([]stops.Stop, error)
}

// HTTPStopLookup is the production StopLookup backed by the provider's
// stops endpoint: GET {base}/stops.json?lat=&lon=&distance=&api-key=.
type HTTPStopLookup struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPStopLookup creates a stop lookup client for the given base URL.
func NewHTTPStopLookup(baseURL, apiKey string, logger *slog.Logger) *HTTPStopLookup {
	return &HTTPStopLookup{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  newProviderHTTPClient(),
		logger:  logger.With(slog.String("component", "stop_lookup")),
	}
}

type stopLookupResponse struct {
	Stops []stopPayload `json:"stops"`
}

type stopPayload struct {
	StopID    string  `json:"stop_id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Direction string  `json:"direction"`
	Street    string  `json:"street"`
}

// StopsNear fetches every stop within radiusMeters of the given point.
func (p *HTTPStopLookup) StopsNear(ctx context.Context, lat, lon, radiusMeters float64) ([]stops.Stop, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("distance", strconv.FormatFloat(radiusMeters, 'f', -1, 64))
	query.Set("api-key", p.apiKey)
	endpoint := p.baseURL + "/stops.json?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating stop lookup request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing stop lookup request: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, p.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ProviderError{Provider: "stop lookup", StatusCode: resp.StatusCode, Body: string(body)}
	}

	const maxBodySize = 10 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading stop lookup response: %w", err)
	}
	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("stop lookup response exceeds size limit of %d bytes", maxBodySize)
	}

	var payload stopLookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing stop lookup response: %w", err)
	}

	result := make([]stops.Stop, 0, len(payload.Stops))
	for _, s := range payload.Stops {
		if s.StopID == "" {
			continue
		}
		result = append(result, stops.Stop{
			ID:        s.StopID,
			Name:      s.Name,
			Lat:       s.Lat,
			Lon:       s.Lon,
			Direction: s.Direction,
			Street:    s.Street,
		})
	}
	return result, nil
}
