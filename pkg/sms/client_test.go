package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/sid-1/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "sid-1", user)
		assert.Equal(t, "token-1", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15551234567", r.PostForm.Get("To"))
		assert.Equal(t, "+15550000000", r.PostForm.Get("From"))
		assert.Equal(t, "Renewal reminder\nYour subscription renews soon.", r.PostForm.Get("Body"))

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sid-1", "token-1", "+15550000000")

	err := client.Send(context.Background(), "+15551234567", "Renewal reminder", "Your subscription renews soon.")
	assert.NoError(t, err)
}

func TestSend_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sid-1", "token-1", "+15550000000")

	err := client.Send(context.Background(), "+15551234567", "subject", "body")
	assert.Error(t, err)
}
