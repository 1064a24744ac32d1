package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClientConfig(t *testing.T) {
	tests := []struct {
		concurrency int
		wantIdle    int
		wantMax     int
	}{
		{concurrency: 4, wantIdle: 4, wantMax: 8},
		{concurrency: 1, wantIdle: 1, wantMax: 2},
		{concurrency: 0, wantIdle: 1, wantMax: 2},
	}

	for _, tt := range tests {
		cfg := GatewayClientConfig(tt.concurrency)
		assert.Equal(t, tt.wantIdle, cfg.MaxIdleConnsPerHost)
		assert.Equal(t, tt.wantMax, cfg.MaxConnsPerHost)
	}
}

func TestNewHTTPClient_FollowsSameHostRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/v1/events", http.StatusFound)
			return
		}
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(GatewayClientConfig(2), 5*time.Second)
	req, err := http.NewRequest(http.MethodGet, server.URL+"/old", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer key")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewHTTPClient_RefusesCrossHostRedirect(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("redirect target must not be called")
	}))
	defer other.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other.URL+"/steal", http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient(GatewayClientConfig(1), 5*time.Second)
	resp, err := client.Get(server.URL)
	if resp != nil {
		resp.Body.Close()
	}

	var urlErr *url.Error
	require.True(t, errors.As(err, &urlErr))
	assert.ErrorIs(t, err, ErrCrossHostRedirect)
}
