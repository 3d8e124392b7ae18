package steadfast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/packwrap/internal/config"
	"github.com/mamadbah2/packwrap/internal/domain/models"
)

var testCreds = models.CourierCredentials{APIKey: "key", SecretKey: "secret"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.CourierConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestGetBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/get_balance", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Api-Key"))
		assert.Equal(t, "secret", r.Header.Get("Secret-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"current_balance":1500}`))
	})

	out, err := client.GetBalance(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, out["current_balance"])
}

func TestGetBalance_UpstreamMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	})

	_, err := client.GetBalance(context.Background(), testCreds)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
	assert.Equal(t, "Invalid API key", upstream.Message)
}

func TestGetBalance_NonJSONError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.GetBalance(context.Background(), testCreds)
	require.Error(t, err)
	assert.Equal(t, "HTTP 503", err.Error())
}

func TestGetBalance_MissingCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.GetBalance(context.Background(), models.CourierCredentials{APIKey: "key"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestPlaceOrder_FallsBackToLegacyEndpoint(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "INV-1", body["invoice"])

		if r.URL.Path == "/place-order" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":200,"consignment":{"consignment_id":42,"tracking_code":"TRK42"}}`))
	})

	out, err := client.PlaceOrder(context.Background(), testCreds, models.CourierOrder{Invoice: "INV-1", CODAmount: 250})
	require.NoError(t, err)
	assert.Equal(t, []string{"/place-order", "/create_order"}, paths)
	assert.Contains(t, out, "consignment")
}

func TestPlaceOrder_BothEndpointsFail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid phone"}`))
	})

	_, err := client.PlaceOrder(context.Background(), testCreds, map[string]any{"invoice": "x"})
	require.Error(t, err)
	assert.Equal(t, "invalid phone", err.Error())
}
