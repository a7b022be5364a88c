package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendSMS(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/sms/send", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Smtp2go-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"succeeded":1}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v3", "key", "Compliance")
	require.NoError(t, c.SendSMS(context.Background(), "+15550101234", "hello"))

	assert.Equal(t, "Compliance", got.Sender)
	assert.Equal(t, []string{"+15550101234"}, got.To)
	assert.Equal(t, "hello", got.Message)
}

func TestClient_SendSMSFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad number", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "key", "").SendSMS(context.Background(), "x", "y")
	assert.ErrorContains(t, err, "400")
}

func TestClient_NotConfigured(t *testing.T) {
	err := NewClient("http://localhost", "", "").SendSMS(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
