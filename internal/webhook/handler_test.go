package webhook_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ridgelineexteriors/lead-intake/internal/domain"
	"github.com/ridgelineexteriors/lead-intake/internal/observability"
	"github.com/ridgelineexteriors/lead-intake/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "webhook-test-secret"

type fakeCRM struct {
	resolveCalls int
	resolved     map[string]string
	resolveErr   error

	calls    []domain.CallOutcome
	messages []string
	logErr   error
}

func (f *fakeCRM) ResolveByPhone(_ context.Context, phone string) (string, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	id, ok := f.resolved[phone]
	if !ok {
		id = "contact-" + phone
	}
	return id, nil
}

func (f *fakeCRM) LogCall(_ context.Context, _ string, outcome domain.CallOutcome) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.calls = append(f.calls, outcome)
	return nil
}

func (f *fakeCRM) LogMessage(_ context.Context, _ string, body string) error {
	if f.logErr != nil {
		return f.logErr
	}
	f.messages = append(f.messages, body)
	return nil
}

type fakeAlerter struct {
	missed []string
}

func (f *fakeAlerter) MissedCallAlert(_ context.Context, phone string, _ int) {
	f.missed = append(f.missed, phone)
}

func newHandler(crm *fakeCRM, alerts webhook.Alerter, secret string) *webhook.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return webhook.NewHandler(webhook.NewVerifier(secret), crm, crm, alerts, logger, observability.NewMetricsForTesting())
}

// post delivers body with a valid signature for the given secret.
func post(t *testing.T, h *webhook.Handler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/openphone", bytes.NewReader([]byte(body)))
	if secret != "" {
		req.Header.Set("openphone-signature", webhook.NewVerifier(secret).Sign("1714143000000", []byte(body)))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandler_MissedCallScenario(t *testing.T) {
	crm := &fakeCRM{}
	alerts := &fakeAlerter{}
	h := newHandler(crm, alerts, testSecret)

	rec := post(t, h, testSecret, `{"type":"call.completed","data":{"object":{"from":"+16165550123","status":"no-answer"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "contact-6165550123", body["contactId"])

	assert.Equal(t, 1, crm.resolveCalls)
	require.Len(t, crm.calls, 1)
	assert.True(t, crm.calls[0].Missed)
	assert.Equal(t, "+16165550123", crm.calls[0].From)
	assert.Equal(t, []string{"+16165550123"}, alerts.missed)
}

func TestHandler_AnsweredCallLogsNoAlert(t *testing.T) {
	crm := &fakeCRM{}
	alerts := &fakeAlerter{}
	h := newHandler(crm, alerts, testSecret)

	rec := post(t, h, testSecret, `{"type":"call.completed","data":{"object":{"from":"+16165550123","status":"completed","answeredAt":"2026-04-26T15:10:00Z"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, crm.calls, 1)
	assert.False(t, crm.calls[0].Missed)
	assert.Empty(t, alerts.missed)
}

func TestHandler_MessageScenario(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{"type":"message.received","data":{"object":{"from":"6165550123","body":"Is anyone home today?"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Is anyone home today?"}, crm.messages)
}

func TestHandler_EmptyMessageGetsPlaceholder(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{"type":"message.received","data":{"object":{"from":"6165550123"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"(empty message)"}, crm.messages)
}

func TestHandler_MissingSignature(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/openphone", bytes.NewReader([]byte(`{"type":"call.completed"}`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing signature", decodeBody(t, rec)["error"])
	assert.Zero(t, crm.resolveCalls, "no CRM calls before authentication")
}

func TestHandler_MismatchedSignature(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	body := `{"type":"call.completed","data":{"object":{"from":"+16165550123"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/openphone", bytes.NewReader([]byte(body)))
	req.Header.Set("openphone-signature", webhook.NewVerifier("some-other-secret").Sign("1714143000000", []byte(body)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid signature", decodeBody(t, rec)["error"])
	assert.Zero(t, crm.resolveCalls)
}

func TestHandler_MalformedSignature(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/openphone", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("openphone-signature", "only;two")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, crm.resolveCalls)
}

func TestHandler_UnhandledEventType(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{"type":"subscription.created","data":{}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Unhandled event type", decodeBody(t, rec)["message"])
	assert.Zero(t, crm.resolveCalls, "unhandled events make no CRM calls")
}

func TestHandler_MissingPhone(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{"type":"call.completed","data":{"object":{"status":"no-answer"}}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing phone number", decodeBody(t, rec)["error"])
	assert.Zero(t, crm.resolveCalls)
}

func TestHandler_FlatDataShape(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{"type":"message.received","data":{"from":"6165550123","body":"hi"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"hi"}, crm.messages)
}

func TestHandler_InvalidJSON(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, crm.resolveCalls)
}

func TestHandler_ResolutionFailure(t *testing.T) {
	crm := &fakeCRM{resolveErr: errors.New("crm unreachable")}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{"type":"call.completed","data":{"object":{"from":"+16165550123","status":"no-answer"}}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Contact resolution failed", decodeBody(t, rec)["error"])
	assert.Empty(t, crm.calls, "no activity without a contact")
}

func TestHandler_ActivityFailure(t *testing.T) {
	crm := &fakeCRM{logErr: errors.New("engagement API down")}
	h := newHandler(crm, nil, testSecret)

	rec := post(t, h, testSecret, `{"type":"message.received","data":{"object":{"from":"6165550123","body":"hello"}}}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Contact resolution already happened; there is no rollback.
	assert.Equal(t, 1, crm.resolveCalls)
}

func TestHandler_VerificationDisabledWithoutSecret(t *testing.T) {
	crm := &fakeCRM{}
	h := newHandler(crm, nil, "")

	rec := post(t, h, "", `{"type":"message.received","data":{"object":{"from":"6165550123","body":"hi"}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, crm.resolveCalls)
}
