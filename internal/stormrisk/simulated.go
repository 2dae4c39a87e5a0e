package stormrisk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ridgelineexteriors/lead-intake/internal/domain"
)

// SimulatedProvider fabricates a plausible storm history derived
// deterministically from the coordinate, for demos and environments without
// NCEI access. The same coordinate always yields the same events, so risk
// scores are stable across requests.
type SimulatedProvider struct {
	clock clockwork.Clock
}

// NewSimulatedProvider creates a provider using the given time source.
func NewSimulatedProvider(clock clockwork.Clock) *SimulatedProvider {
	return &SimulatedProvider{clock: clock}
}

func (p *SimulatedProvider) Name() string { return "simulated" }

// EventsNear generates 4-12 events spread over the lookback window, seeded by
// a hash of the coordinate rounded to ~110m so nearby addresses share a
// history.
func (p *SimulatedProvider) EventsNear(_ context.Context, lat, lon float64, since time.Time) ([]domain.StormEvent, error) {
	seed := sha256.Sum256([]byte(fmt.Sprintf("storm|%.3f|%.3f", lat, lon)))

	now := p.clock.Now().UTC()
	window := now.Sub(since)
	if window <= 0 {
		return nil, nil
	}

	count := 4 + int(seed[0]%9)
	events := make([]domain.StormEvent, 0, count)
	for i := 0; i < count; i++ {
		b := func(offset int) byte { return seed[(i*3+offset+1)%len(seed)] }

		var eventType string
		var magnitude float64
		switch b(0) % 3 {
		case 0:
			eventType = "hail"
			magnitude = 0.5 + float64(b(1)%250)/100.0
		case 1:
			eventType = "wind"
			magnitude = 40 + float64(b(1)%70)
		default:
			eventType = "tornado"
			magnitude = float64(b(1) % 5)
		}

		age := time.Duration(float64(window) * float64(b(2)) / 255.0)
		occurred := now.Add(-age).Truncate(time.Hour)

		events = append(events, domain.StormEvent{
			ID:            simulatedID(seed[:], i),
			EventType:     eventType,
			Magnitude:     magnitude,
			Unit:          domain.DefaultUnit(eventType),
			Severity:      domain.DeriveSeverity(eventType, magnitude),
			OccurredAt:    occurred,
			Lat:           lat,
			Lon:           lon,
			DistanceMiles: float64(b(2)%15) + 0.5,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})
	return events, nil
}

// simulatedID produces a stable per-event id from the coordinate seed.
func simulatedID(seed []byte, index int) string {
	h := sha256.Sum256(append(seed, byte(index)))
	return "sim-" + hex.EncodeToString(h[:6])
}
