package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ridgelineexteriors/lead-intake/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "pk.test-token"

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    testMetrics(),
	}
}

func TestClient_GeocodeAddress_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "1400 Division Ave S")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, "us", r.URL.Query().Get("country"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{-85.6681, 42.9336},
					PlaceName: "1400 Division Ave S, Grand Rapids, Michigan 49507, United States",
					Text:      "Division Ave S",
					Relevance: 0.96,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.GeocodeAddress(context.Background(), "1400 Division Ave S, Grand Rapids, MI")

	require.NoError(t, err)
	assert.Equal(t, 42.9336, result.Lat)
	assert.Equal(t, -85.6681, result.Lon)
	assert.Equal(t, "1400 Division Ave S, Grand Rapids, Michigan 49507, United States", result.FormattedAddress)
	assert.Equal(t, 0.96, result.Confidence)
}

func TestClient_GeocodeAddress_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response{}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.GeocodeAddress(context.Background(), "nowhere at all")

	require.NoError(t, err)
	assert.Zero(t, result)
}

func TestClient_GeocodeAddress_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Authorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.GeocodeAddress(context.Background(), "1400 Division Ave S")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
