// Package crm is a HubSpot-backed adapter for contact resolution and
// activity logging. It implements the webhook package's ContactResolver and
// ActivityLogger contracts.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/ridgelineexteriors/lead-intake/internal/domain"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

// ErrNotConfigured is returned when no CRM token is set. Callers must treat
// this as a hard failure: an activity cannot be logged without a contact.
var ErrNotConfigured = errors.New("crm: no access token configured")

// HubSpot association type ids for engagement-to-contact edges.
const (
	assocCallToContact          = 194
	assocCommunicationToContact = 81
)

// Client talks to the HubSpot CRM v3 API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a CRM client. An empty token leaves the client in a
// misconfigured state where every call returns ErrNotConfigured.
func NewClient(baseURL, token string, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		clock:      clock,
		logger:     logger.With("component", "crm"),
		metrics:    metrics,
	}
}

// ResolveByPhone returns the id of the contact whose primary or mobile phone
// matches the normalized number, creating a minimal placeholder contact when
// no match exists. Two concurrent resolutions of the same new number can race
// and create duplicate contacts; the CRM search API offers no atomic upsert.
func (c *Client) ResolveByPhone(ctx context.Context, phone string) (string, error) {
	if c.token == "" {
		return "", ErrNotConfigured
	}

	id, found, err := c.searchContact(ctx, phone)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}
	return c.createContact(ctx, phone)
}

// LogCall appends a call activity to the contact, classified as missed or
// answered. Missed calls note the voicemail duration.
func (c *Client) LogCall(ctx context.Context, contactID string, outcome domain.CallOutcome) error {
	if c.token == "" {
		return ErrNotConfigured
	}

	title := "Answered call"
	body := fmt.Sprintf("Answered call from %s", outcome.From)
	if outcome.Missed {
		title = "Missed call"
		body = fmt.Sprintf("Missed call from %s (voicemail: %ds)", outcome.From, outcome.VoicemailSeconds)
	}

	payload := engagementRequest{
		Properties: map[string]string{
			"hs_timestamp":  c.clock.Now().UTC().Format(time.RFC3339),
			"hs_call_title": title,
			"hs_call_body":  body,
		},
		Associations: []association{contactAssociation(contactID, assocCallToContact)},
	}

	var created idResponse
	if err := c.doJSON(ctx, "create_call", "/crm/v3/objects/calls", payload, &created); err != nil {
		return err
	}
	c.metrics.ActivitiesLogged.WithLabelValues("call").Inc()
	c.logger.Debug("call activity logged", "contact_id", contactID, "activity_id", created.ID, "missed", outcome.Missed)
	return nil
}

// LogMessage appends an inbound SMS body verbatim as a communication activity.
func (c *Client) LogMessage(ctx context.Context, contactID, body string) error {
	if c.token == "" {
		return ErrNotConfigured
	}

	payload := engagementRequest{
		Properties: map[string]string{
			"hs_timestamp":                  c.clock.Now().UTC().Format(time.RFC3339),
			"hs_communication_channel_type": "SMS",
			"hs_communication_body":         body,
		},
		Associations: []association{contactAssociation(contactID, assocCommunicationToContact)},
	}

	var created idResponse
	if err := c.doJSON(ctx, "create_message", "/crm/v3/objects/communications", payload, &created); err != nil {
		return err
	}
	c.metrics.ActivitiesLogged.WithLabelValues("message").Inc()
	c.logger.Debug("message activity logged", "contact_id", contactID, "activity_id", created.ID)
	return nil
}

func (c *Client) searchContact(ctx context.Context, phone string) (string, bool, error) {
	payload := searchRequest{
		FilterGroups: []filterGroup{
			{Filters: []filter{{PropertyName: "phone", Operator: "EQ", Value: phone}}},
			{Filters: []filter{{PropertyName: "mobilephone", Operator: "EQ", Value: phone}}},
		},
		Limit: 1,
	}

	var result searchResponse
	if err := c.doJSON(ctx, "search", "/crm/v3/objects/contacts/search", payload, &result); err != nil {
		return "", false, err
	}
	if len(result.Results) == 0 {
		return "", false, nil
	}
	// Provider-returned order; first match wins.
	return result.Results[0].ID, true, nil
}

func (c *Client) createContact(ctx context.Context, phone string) (string, error) {
	payload := contactRequest{
		Properties: map[string]string{
			"phone":     phone,
			"firstname": "New",
			"lastname":  "Caller",
		},
	}

	var created idResponse
	if err := c.doJSON(ctx, "create_contact", "/crm/v3/objects/contacts", payload, &created); err != nil {
		return "", err
	}
	c.metrics.ContactsCreated.Inc()
	c.logger.Info("contact created", "contact_id", created.ID, "phone", phone)
	return created.ID, nil
}

// doJSON posts a JSON payload and decodes the JSON response, recording
// per-operation metrics.
func (c *Client) doJSON(ctx context.Context, operation, path string, payload, out any) error {
	start := c.clock.Now()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("crm %s: marshal request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("crm %s: create request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.CRMRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("crm %s: %w", operation, err)
	}
	defer resp.Body.Close()

	c.metrics.CRMRequestDuration.WithLabelValues(operation).Observe(c.clock.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.CRMRequests.WithLabelValues(operation, "error").Inc()
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("crm %s: status %d: %s", operation, resp.StatusCode, respBody)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.CRMRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("crm %s: decode response: %w", operation, err)
	}

	c.metrics.CRMRequests.WithLabelValues(operation, "success").Inc()
	return nil
}

func contactAssociation(contactID string, typeID int) association {
	return association{
		To: associationTarget{ID: contactID},
		Types: []associationType{
			{AssociationCategory: "HUBSPOT_DEFINED", AssociationTypeID: typeID},
		},
	}
}

// HubSpot API request/response types.

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Limit        int           `json:"limit"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int          `json:"total"`
	Results []idResponse `json:"results"`
}

type contactRequest struct {
	Properties map[string]string `json:"properties"`
}

type engagementRequest struct {
	Properties   map[string]string `json:"properties"`
	Associations []association     `json:"associations"`
}

type association struct {
	To    associationTarget `json:"to"`
	Types []associationType `json:"types"`
}

type associationTarget struct {
	ID string `json:"id"`
}

type associationType struct {
	AssociationCategory string `json:"associationCategory"`
	AssociationTypeID   int    `json:"associationTypeId"`
}

type idResponse struct {
	ID string `json:"id"`
}
