package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSSender_Send(t *testing.T) {
	var got smsRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/messages", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSMSSender("test-key", "+16165550001")
	sender.baseURL = server.URL

	err := sender.Send(context.Background(), Message{
		Channel: ChannelSMS,
		To:      "+16165550100",
		Body:    "Missed call from +16165550123",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "+16165550001", got.From)
	assert.Equal(t, "+16165550100", got.To)
	assert.Equal(t, "Missed call from +16165550123", got.Text)
}

func TestSMSSender_SendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"title":"invalid number"}]}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	sender := NewSMSSender("test-key", "+16165550001")
	sender.baseURL = server.URL

	err := sender.Send(context.Background(), Message{To: "bad", Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestEmailSender_Send(t *testing.T) {
	var got emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewEmailSender("test-key", "alerts@ridgeline.example")
	sender.baseURL = server.URL

	err := sender.Send(context.Background(), Message{
		Channel: ChannelEmail,
		To:      "office@ridgeline.example",
		Subject: "New lead",
		Body:    "Jane Doe submitted the contact form",
	})
	require.NoError(t, err)

	assert.Equal(t, "alerts@ridgeline.example", got.From)
	assert.Equal(t, []string{"office@ridgeline.example"}, got.To)
	assert.Equal(t, "New lead", got.Subject)
	assert.Equal(t, "Jane Doe submitted the contact form", got.Text)
}

func TestEmailSender_DefaultSubject(t *testing.T) {
	var got emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewEmailSender("test-key", "alerts@ridgeline.example")
	sender.baseURL = server.URL

	require.NoError(t, sender.Send(context.Background(), Message{To: "office@ridgeline.example", Body: "x"}))
	assert.Equal(t, "Office notification", got.Subject)
}
