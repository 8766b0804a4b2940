package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got sendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=server-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(sendResponse{Success: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, "server-key")

	err := client.Send(context.Background(), "token-a", "Warranty reminder: Laptop", "Runs out soon.")
	require.NoError(t, err)

	assert.Equal(t, "token-a", got.To)
	assert.Equal(t, "Warranty reminder: Laptop", got.Notification.Title)
	assert.Equal(t, "Runs out soon.", got.Notification.Body)
}

func TestSend_GatewayRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sendResponse{Failure: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, "server-key")

	err := client.Send(context.Background(), "token-a", "subject", "body")
	assert.Error(t, err)
}

func TestSend_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")

	err := client.Send(context.Background(), "token-a", "subject", "body")
	assert.Error(t, err)
}

func TestSend_EmptyResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "server-key")

	err := client.Send(context.Background(), "token-a", "subject", "body")
	assert.NoError(t, err)
}
