package domain

import "time"

// StormEvent is a single historical severe-weather report near a property.
type StormEvent struct {
	ID         string    `json:"id"`
	EventType  string    `json:"type"` // "hail", "wind", or "tornado"
	Magnitude  float64   `json:"magnitude"`
	Unit       string    `json:"unit"`
	Severity   string    `json:"severity,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Lat        float64   `json:"lat,omitempty"`
	Lon        float64   `json:"lon,omitempty"`

	// DistanceMiles is the distance from the queried coordinate.
	DistanceMiles float64 `json:"distance_miles,omitempty"`
}

// DefaultUnit infers the magnitude unit for an event type: inches for hail,
// mph for wind, F-scale for tornado.
func DefaultUnit(eventType string) string {
	switch eventType {
	case "hail":
		return "in"
	case "wind":
		return "mph"
	case "tornado":
		return "f_scale"
	default:
		return ""
	}
}

// DeriveSeverity maps magnitude to a severity label based on operational
// thresholds informed by NWS Severe Weather Criteria and the Enhanced Fujita
// Scale:
//   - hail: <0.75in minor, <1.5in moderate, <2.5in severe, else extreme
//   - wind: <50mph minor, <74mph moderate (tropical storm threshold), <96mph severe (hurricane Cat 2), else extreme
//   - tornado: EF0-1 minor, EF2 moderate, EF3-4 severe, EF5 extreme
//
// Returns "" when magnitude is 0 or the event type is unrecognized.
func DeriveSeverity(eventType string, magnitude float64) string {
	if magnitude == 0 {
		return ""
	}

	switch eventType {
	case "hail":
		switch {
		case magnitude < 0.75:
			return "minor"
		case magnitude < 1.5:
			return "moderate"
		case magnitude < 2.5:
			return "severe"
		default:
			return "extreme"
		}
	case "wind":
		switch {
		case magnitude < 50:
			return "minor"
		case magnitude < 74:
			return "moderate"
		case magnitude < 96:
			return "severe"
		default:
			return "extreme"
		}
	case "tornado":
		switch {
		case magnitude <= 1:
			return "minor"
		case magnitude == 2:
			return "moderate"
		case magnitude <= 4:
			return "severe"
		default:
			return "extreme"
		}
	default:
		return ""
	}
}

// SeverityRank orders severity labels for comparisons; unknown labels rank lowest.
func SeverityRank(severity string) int {
	switch severity {
	case "minor":
		return 1
	case "moderate":
		return 2
	case "severe":
		return 3
	case "extreme":
		return 4
	default:
		return 0
	}
}
