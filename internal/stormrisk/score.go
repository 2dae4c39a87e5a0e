// Package stormrisk classifies hail, wind, and tornado damage risk for a
// property from historical severe-weather events near its coordinates.
package stormrisk

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ridgelineexteriors/lead-intake/internal/domain"
)

// Assessment is the result of scoring a property's storm history.
type Assessment struct {
	RiskScore   int            `json:"risk_score"` // 0-100
	RiskLevel   string         `json:"risk_level"` // low, moderate, high, severe
	EventCount  int            `json:"event_count"`
	EventCounts map[string]int `json:"event_counts"`
	MaxSeverity string         `json:"max_severity,omitempty"`

	// LastMajorEvent is the most recent severe-or-worse event, if any.
	LastMajorEvent *time.Time `json:"last_major_event,omitempty"`

	Events []domain.StormEvent `json:"events"`
}

// Scorer turns an event history into a risk assessment.
type Scorer struct {
	clock clockwork.Clock
}

// NewScorer creates a Scorer using the given time source.
func NewScorer(clock clockwork.Clock) *Scorer {
	return &Scorer{clock: clock}
}

// eventPoints is weight(severity) scaled up for recent events. Events inside
// one year count double; inside three years, 1.5x.
func (s *Scorer) eventPoints(event domain.StormEvent) float64 {
	var points float64
	switch event.Severity {
	case "minor":
		points = 1
	case "moderate":
		points = 3
	case "severe":
		points = 6
	case "extreme":
		points = 10
	default:
		return 0
	}

	age := s.clock.Now().Sub(event.OccurredAt)
	switch {
	case age <= 365*24*time.Hour:
		points *= 2
	case age <= 3*365*24*time.Hour:
		points *= 1.5
	}
	return points
}

// Score aggregates the event window into a 0-100 risk score and level.
func (s *Scorer) Score(events []domain.StormEvent) Assessment {
	a := Assessment{
		EventCount:  len(events),
		EventCounts: map[string]int{},
		Events:      events,
	}

	var total float64
	for _, event := range events {
		a.EventCounts[event.EventType]++
		total += s.eventPoints(event)

		if domain.SeverityRank(event.Severity) > domain.SeverityRank(a.MaxSeverity) {
			a.MaxSeverity = event.Severity
		}
		if domain.SeverityRank(event.Severity) >= domain.SeverityRank("severe") {
			if a.LastMajorEvent == nil || event.OccurredAt.After(*a.LastMajorEvent) {
				t := event.OccurredAt
				a.LastMajorEvent = &t
			}
		}
	}

	if total > 100 {
		total = 100
	}
	a.RiskScore = int(total)

	switch {
	case a.RiskScore < 20:
		a.RiskLevel = "low"
	case a.RiskScore < 45:
		a.RiskLevel = "moderate"
	case a.RiskScore < 70:
		a.RiskLevel = "high"
	default:
		a.RiskLevel = "severe"
	}
	return a
}
