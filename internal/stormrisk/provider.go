package stormrisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ridgelineexteriors/lead-intake/internal/domain"
)

// searchRadiusDegrees bounds the query box around a coordinate; roughly 15
// miles of latitude.
const searchRadiusDegrees = 0.22

// HistoryProvider returns the severe-weather events near a coordinate since
// the given time.
type HistoryProvider interface {
	Name() string
	EventsNear(ctx context.Context, lat, lon float64, since time.Time) ([]domain.StormEvent, error)
}

// NOAAProvider queries an NCEI storm-events search endpoint for real history.
type NOAAProvider struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNOAAProvider creates a provider against the configured NCEI endpoint.
func NewNOAAProvider(baseURL, token string, timeout time.Duration, logger *slog.Logger) *NOAAProvider {
	return &NOAAProvider{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "noaa"),
	}
}

func (p *NOAAProvider) Name() string { return "noaa" }

// EventsNear fetches storm events inside a bounding box around the coordinate
// and converts them to domain events with severity and distance filled in.
func (p *NOAAProvider) EventsNear(ctx context.Context, lat, lon float64, since time.Time) ([]domain.StormEvent, error) {
	params := url.Values{
		"dataset":   {"stormevents"},
		"startDate": {since.UTC().Format("2006-01-02")},
		"boundingBox": {fmt.Sprintf("%.4f,%.4f,%.4f,%.4f",
			lat+searchRadiusDegrees, lon-searchRadiusDegrees,
			lat-searchRadiusDegrees, lon+searchRadiusDegrees)},
		"limit": {"1000"},
	}
	if p.token != "" {
		params.Set("token", p.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/data?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storm events request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("storm events API error: status %d: %s", resp.StatusCode, body)
	}

	var result noaaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	events := make([]domain.StormEvent, 0, len(result.Results))
	for _, rec := range result.Results {
		eventType := normalizeNOAAType(rec.EventType)
		if eventType == "" {
			continue
		}
		occurred, err := time.Parse(time.RFC3339, rec.Date)
		if err != nil {
			p.logger.Warn("skipping event with unparseable date", "id", rec.ID, "date", rec.Date)
			continue
		}
		events = append(events, domain.StormEvent{
			ID:            rec.ID,
			EventType:     eventType,
			Magnitude:     rec.Magnitude,
			Unit:          domain.DefaultUnit(eventType),
			Severity:      domain.DeriveSeverity(eventType, rec.Magnitude),
			OccurredAt:    occurred,
			Lat:           rec.Location.Lat,
			Lon:           rec.Location.Lon,
			DistanceMiles: haversineMiles(lat, lon, rec.Location.Lat, rec.Location.Lon),
		})
	}
	return events, nil
}

// normalizeNOAAType maps NCEI event type labels onto the three types the risk
// model understands; everything else (floods, heat, winter weather) is
// irrelevant to roof damage and dropped.
func normalizeNOAAType(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "hail", "marine hail":
		return "hail"
	case "thunderstorm wind", "high wind", "strong wind", "wind":
		return "wind"
	case "tornado", "funnel cloud":
		return "tornado"
	default:
		return ""
	}
}

// haversineMiles computes the great-circle distance between two WGS-84 points.
func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusMiles = 3958.8

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// NCEI API response types.

type noaaResponse struct {
	Results []noaaRecord `json:"results"`
}

type noaaRecord struct {
	ID        string       `json:"id"`
	EventType string       `json:"eventType"`
	Magnitude float64      `json:"magnitude"`
	Date      string       `json:"date"`
	Location  noaaLocation `json:"location"`
}

type noaaLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
