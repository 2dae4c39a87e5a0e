package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0-1.0 provider confidence score
}

// Geocoder converts street addresses to coordinates.
type Geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (GeocodingResult, error)
}
