package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ridgelineexteriors/lead-intake/internal/domain"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
)

// maxBodySize bounds webhook request bodies at 1 MB.
const maxBodySize = 1 << 20

// ContactResolver finds or creates a CRM contact for a normalized phone number.
type ContactResolver interface {
	ResolveByPhone(ctx context.Context, phone string) (string, error)
}

// ActivityLogger appends call and message activities to a CRM contact.
type ActivityLogger interface {
	LogCall(ctx context.Context, contactID string, outcome domain.CallOutcome) error
	LogMessage(ctx context.Context, contactID, body string) error
}

// Alerter delivers best-effort office notifications. Implementations must not
// block the request or surface failures to the caller.
type Alerter interface {
	MissedCallAlert(ctx context.Context, phone string, voicemailSeconds int)
}

// Handler processes inbound OpenPhone events. Each request is authenticated,
// the caller's phone extracted, the contact resolved, and the activity
// logged; any stage's failure short-circuits to an error response and
// nothing is rolled back.
type Handler struct {
	verifier *Verifier
	contacts ContactResolver
	activity ActivityLogger
	alerts   Alerter // optional
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewHandler wires the webhook handler. alerts may be nil to disable office
// notifications.
func NewHandler(verifier *Verifier, contacts ContactResolver, activity ActivityLogger, alerts Alerter, logger *slog.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		verifier: verifier,
		contacts: contacts,
		activity: activity,
		alerts:   alerts,
		logger:   logger.With("component", "webhook"),
		metrics:  metrics,
	}
}

// ServeHTTP handles POST /webhooks/openphone.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", middleware.GetReqID(ctx))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read webhook body", "error", err)
		h.metrics.WebhookRequests.WithLabelValues("unknown", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}

	// Verify against the raw bytes before any parsing.
	if err := h.verifier.Verify(r.Header.Get("openphone-signature"), body); err != nil {
		h.metrics.SignatureFailures.Inc()
		status, msg := signatureError(err)
		logger.Warn("webhook signature rejected", "error", err)
		h.metrics.WebhookRequests.WithLabelValues("unknown", "auth_error").Inc()
		writeJSON(w, status, errorBody(msg))
		return
	}

	var event domain.InboundEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Warn("webhook payload is not valid JSON", "error", err)
		h.metrics.WebhookRequests.WithLabelValues("unknown", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid payload"))
		return
	}

	logger = logger.With("event_type", event.Type, "event_id", event.ID)

	switch event.Type {
	case domain.EventCallCompleted, domain.EventMessageReceived:
	default:
		logger.Info("unhandled event type acknowledged")
		h.metrics.WebhookRequests.WithLabelValues(event.Type, "unhandled").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"message": "Unhandled event type"})
		return
	}

	obj, err := event.Object()
	if err != nil {
		logger.Warn("event payload object missing", "error", err)
		h.metrics.WebhookRequests.WithLabelValues(event.Type, "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid payload"))
		return
	}

	phone := domain.NormalizePhone(obj.From)
	if phone == "" {
		logger.Warn("event has no usable phone number")
		h.metrics.WebhookRequests.WithLabelValues(event.Type, "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody("Missing phone number"))
		return
	}

	contactID, err := h.contacts.ResolveByPhone(ctx, phone)
	if err != nil {
		logger.Error("contact resolution failed", "phone", phone, "error", err)
		h.metrics.WebhookRequests.WithLabelValues(event.Type, "error").Inc()
		writeJSON(w, http.StatusInternalServerError, errorBody("Contact resolution failed"))
		return
	}

	if err := h.logActivity(ctx, event.Type, contactID, obj); err != nil {
		logger.Error("activity logging failed", "contact_id", contactID, "error", err)
		h.metrics.WebhookRequests.WithLabelValues(event.Type, "error").Inc()
		writeJSON(w, http.StatusInternalServerError, errorBody("Activity logging failed"))
		return
	}

	logger.Info("webhook processed", "contact_id", contactID, "phone", phone)
	h.metrics.WebhookRequests.WithLabelValues(event.Type, "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "contactId": contactID})
}

func (h *Handler) logActivity(ctx context.Context, eventType, contactID string, obj domain.EventObject) error {
	switch eventType {
	case domain.EventCallCompleted:
		outcome := domain.CallOutcome{
			From:             obj.From,
			Missed:           obj.Missed(),
			VoicemailSeconds: obj.VoicemailSeconds(),
		}
		if err := h.activity.LogCall(ctx, contactID, outcome); err != nil {
			return err
		}
		if outcome.Missed && h.alerts != nil {
			h.alerts.MissedCallAlert(ctx, obj.From, outcome.VoicemailSeconds)
		}
		return nil
	case domain.EventMessageReceived:
		body := obj.Body
		if body == "" {
			body = "(empty message)"
		}
		return h.activity.LogMessage(ctx, contactID, body)
	}
	return nil
}

func signatureError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingSignature):
		return http.StatusUnauthorized, "Missing signature"
	case errors.Is(err, ErrMalformedSignature):
		return http.StatusBadRequest, "Malformed signature"
	default:
		return http.StatusUnauthorized, "Invalid signature"
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
