package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ridgelineexteriors/lead-intake/internal/domain"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

// ErrInvalidLead reports a submission missing the fields the office needs to
// follow up.
var ErrInvalidLead = errors.New("lead must include a name and a phone number")

// ContactResolver finds or creates the CRM contact for a phone number.
type ContactResolver interface {
	ResolveByPhone(ctx context.Context, phone string) (string, error)
}

// Alerter notifies the office about a new lead. Delivery is best effort.
type Alerter interface {
	Alert(ctx context.Context, subject, body string)
}

// Service processes website lead form submissions.
type Service struct {
	resolver ContactResolver
	alerter  Alerter
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService wires a lead intake service. alerter may be nil when office
// notifications are not configured.
func NewService(resolver ContactResolver, alerter Alerter, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		resolver: resolver,
		alerter:  alerter,
		logger:   logger.With(slog.String("component", "lead_service")),
		metrics:  metrics,
	}
}

// Submit validates the lead, syncs it into the CRM, and alerts the office.
// On success the returned lead carries its assigned id and CRM contact id.
func (s *Service) Submit(ctx context.Context, lead Lead) (Lead, error) {
	lead.Name = strings.TrimSpace(lead.Name)
	lead.Phone = domain.NormalizePhone(lead.Phone)
	if lead.Name == "" || lead.Phone == "" {
		return Lead{}, ErrInvalidLead
	}

	contactID, err := s.resolver.ResolveByPhone(ctx, lead.Phone)
	if err != nil {
		return Lead{}, fmt.Errorf("resolve contact: %w", err)
	}
	lead.ID = uuid.NewString()
	lead.ContactID = contactID
	if lead.Source == "" {
		lead.Source = "website"
	}

	s.logger.Info("lead submitted",
		slog.String("lead_id", lead.ID),
		slog.String("contact_id", contactID),
		slog.String("source", lead.Source),
	)
	s.metrics.LeadsSubmitted.WithLabelValues(lead.Source).Inc()

	if s.alerter != nil {
		s.alerter.Alert(ctx, "New lead", alertBody(lead))
	}
	return lead, nil
}

func alertBody(lead Lead) string {
	body := fmt.Sprintf("New lead: %s, %s", lead.Name, lead.Phone)
	if lead.Address != "" {
		body = fmt.Sprintf("%s, %s", body, lead.Address)
	}
	if lead.Notes != "" {
		body = fmt.Sprintf("%s. Notes: %s", body, lead.Notes)
	}
	return body
}
