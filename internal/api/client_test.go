package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func envelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 400,
		"data":    data,
	})
}

func envelopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func newTestClient(t *testing.T, router chi.Router) *Client {
	t.Helper()
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, staticToken("tok-1"), zaptest.NewLogger(t))
}

func TestClientSendsBearerAndRequestID(t *testing.T) {
	router := chi.NewRouter()
	var gotAuth, gotRequestID string
	router.Get("/cart", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		envelope(w, http.StatusOK, map[string]interface{}{"id": "c_1", "currency": "MMK"})
	})

	client := newTestClient(t, router)
	cart, err := client.Cart(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "c_1", cart.ID)
}

func TestClientMapsConflictDistinctly(t *testing.T) {
	router := chi.NewRouter()
	router.Post("/cart/items", func(w http.ResponseWriter, r *http.Request) {
		envelopeError(w, http.StatusConflict, "CONFLICT", "cart holds items from another vendor")
	})

	client := newTestClient(t, router)
	_, err := client.AddCartItem(context.Background(), "v_2", 1)
	require.Error(t, err)

	assert.True(t, IsConflict(err))
	assert.False(t, IsUnauthorized(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestClientGenericFailureIsNotConflict(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/cart", func(w http.ResponseWriter, r *http.Request) {
		envelopeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "boom")
	})

	client := newTestClient(t, router)
	_, err := client.Cart(context.Background())
	require.Error(t, err)
	assert.False(t, IsConflict(err))
}

func TestClientDecodesEnvelopeData(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/chat/threads/{orderID}/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "o_1", chi.URLParam(r, "orderID"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		envelope(w, http.StatusOK, []map[string]interface{}{
			{"id": "m2", "thread_id": "o_1", "body": "later"},
			{"id": "m1", "thread_id": "o_1", "body": "earlier"},
		})
	})

	client := newTestClient(t, router)
	messages, err := client.ThreadMessages(context.Background(), "o_1", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[0].ID, "server returns newest first")
}

func TestClientMarkAllNotificationsReadReturnsBatchTimestamp(t *testing.T) {
	batch := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	router := chi.NewRouter()
	router.Post("/notifications/read-all", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, map[string]interface{}{"read_at": batch})
	})

	client := newTestClient(t, router)
	readAt, err := client.MarkAllNotificationsRead(context.Background())
	require.NoError(t, err)
	assert.True(t, readAt.Equal(batch))
}

func TestClientNonEnvelopeErrorKeepsStatus(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/cart", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	client := newTestClient(t, router)
	_, err := client.Cart(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}
