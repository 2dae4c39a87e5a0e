package stormrisk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ridgelineexteriors/lead-intake/internal/domain"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

var (
	// ErrNoGeocoder is returned for address lookups when geocoding is disabled.
	ErrNoGeocoder = errors.New("stormrisk: address lookups require geocoding to be enabled")
	// ErrAddressNotFound is returned when the geocoder has no match for an address.
	ErrAddressNotFound = errors.New("stormrisk: address could not be geocoded")
)

// Service answers storm-history questions for coordinates and addresses.
type Service struct {
	provider HistoryProvider
	geocoder domain.Geocoder // nil when geocoding is disabled
	scorer   *Scorer
	lookback time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService wires a storm-risk service. geocoder may be nil, which disables
// lookups by address.
func NewService(provider HistoryProvider, geocoder domain.Geocoder, lookback time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		provider: provider,
		geocoder: geocoder,
		scorer:   NewScorer(clock),
		lookback: lookback,
		clock:    clock,
		logger:   logger.With("component", "stormrisk"),
		metrics:  metrics,
	}
}

// AssessCoordinate scores the storm history around a latitude/longitude pair.
func (s *Service) AssessCoordinate(ctx context.Context, lat, lon float64) (Assessment, error) {
	since := s.clock.Now().Add(-s.lookback)

	events, err := s.provider.EventsNear(ctx, lat, lon, since)
	if err != nil {
		s.metrics.StormLookups.WithLabelValues(s.provider.Name(), "error").Inc()
		return Assessment{}, fmt.Errorf("fetch storm history: %w", err)
	}

	assessment := s.scorer.Score(events)
	s.metrics.StormLookups.WithLabelValues(s.provider.Name(), "success").Inc()
	s.logger.Debug("storm history assessed",
		"lat", lat, "lon", lon,
		"events", assessment.EventCount,
		"risk_level", assessment.RiskLevel,
	)
	return assessment, nil
}

// AssessAddress geocodes a street address and scores its storm history.
func (s *Service) AssessAddress(ctx context.Context, address string) (Assessment, domain.GeocodingResult, error) {
	if s.geocoder == nil {
		return Assessment{}, domain.GeocodingResult{}, ErrNoGeocoder
	}

	location, err := s.geocoder.GeocodeAddress(ctx, address)
	if err != nil {
		return Assessment{}, domain.GeocodingResult{}, fmt.Errorf("geocode address: %w", err)
	}
	if location.FormattedAddress == "" {
		return Assessment{}, domain.GeocodingResult{}, ErrAddressNotFound
	}

	assessment, err := s.AssessCoordinate(ctx, location.Lat, location.Lon)
	if err != nil {
		return Assessment{}, domain.GeocodingResult{}, err
	}
	return assessment, location, nil
}
