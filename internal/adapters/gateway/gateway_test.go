package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/pkg/resilience"
	"github.com/kevin07696/revenue-share-service/test/mocks"
)

func TestValidateSignature(t *testing.T) {
	payload := []byte(`{"events":[]}`)
	valid := CalculateSignature("whsec_current", payload)

	tests := []struct {
		name      string
		key       string
		payload   []byte
		signature string
		want      bool
	}{
		{name: "bare hex", key: "whsec_current", payload: payload, signature: valid, want: true},
		{name: "prefixed hex", key: "whsec_current", payload: payload, signature: "sha256=" + valid, want: true},
		{name: "surrounding whitespace", key: "whsec_current", payload: payload, signature: " " + valid + " ", want: true},
		{name: "wrong key", key: "whsec_previous", payload: payload, signature: valid, want: false},
		{name: "tampered payload", key: "whsec_current", payload: []byte(`{"events":[{}]}`), signature: valid, want: false},
		{name: "empty signature", key: "whsec_current", payload: payload, signature: "", want: false},
		{name: "empty key", key: "", payload: payload, signature: CalculateSignature("", payload), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSignature(tt.key, tt.payload, tt.signature))
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute, MaxRequestsHalfOpen: 1})
	cb.now = func() time.Time { return now }

	var transitions []string
	cb.OnStateChange(func(from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	boom := errors.New("boom")
	fail := func() error { return boom }
	succeed := func() error { return nil }

	// Failures that are not countable never open the circuit
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Call(fail, func(error) bool { return false }), boom)
	}
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Call(fail, nil), boom)
	assert.ErrorIs(t, cb.Call(fail, nil), boom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	// After the open timeout a probe is allowed and its failure reopens the circuit
	now = now.Add(time.Minute)
	assert.ErrorIs(t, cb.Call(fail, nil), boom)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Minute)
	require.NoError(t, cb.Call(succeed, nil))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func testClientConfig(baseURL string) *ClientConfig {
	config := DefaultClientConfig(baseURL, "sk_test")
	config.Backoff = &resilience.FixedBackoff{Delay: time.Millisecond}
	config.Timeouts = resilience.TestTimeoutConfig()
	return config
}

func TestClient_ListEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/merchants/merchant-1/events", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "cur_1", r.URL.Query().Get("cursor"))
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{
				"type": "transaction",
				"external_id": "ch_1",
				"kind": "PAYMENT",
				"status": "COMPLETED",
				"currency": "USD",
				"amount_minor": 1250,
				"occurred_at": "2024-03-15T10:00:00Z"
			}],
			"next_cursor": "cur_2",
			"has_more": true
		}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL), server.Client(), mocks.NewMockLogger())
	page, err := client.ListEvents(context.Background(), &adapterports.EventListRequest{
		MerchantID: "merchant-1",
		Cursor:     "cur_1",
		Limit:      25,
	})
	require.NoError(t, err)

	require.Len(t, page.Events, 1)
	event := page.Events[0]
	assert.Equal(t, domain.GatewayEventTransaction, event.Type)
	assert.Equal(t, "ch_1", event.ExternalID)
	assert.Equal(t, int64(1250), event.AmountMinor)
	assert.Equal(t, time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC), event.OccurredAt.UTC())
	assert.Equal(t, "cur_2", page.NextCursor)
	assert.True(t, page.HasMore)
}

func TestClient_ListEvents_HasMoreNeedsCursor(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
		return mocks.JSONResponse(http.StatusOK, `{"data":[],"next_cursor":"","has_more":true}`), nil
	})

	client := NewClient(testClientConfig("https://gateway.test"), httpClient, mocks.NewMockLogger())
	page, err := client.ListEvents(context.Background(), &adapterports.EventListRequest{MerchantID: "merchant-1"})
	require.NoError(t, err)
	assert.False(t, page.HasMore)

	require.Equal(t, 1, httpClient.CallCount())
	assert.Equal(t, "100", httpClient.Calls[0].URL.Query().Get("limit"))
	assert.Empty(t, httpClient.Calls[0].URL.Query().Get("cursor"))
}

func TestClient_ListEvents_Retries(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		wantCalls  int
		wantErr    bool
		wantStatus int
	}{
		{name: "recovers from 503", statuses: []int{503, 200}, wantCalls: 2},
		{name: "recovers from 429", statuses: []int{429, 429, 200}, wantCalls: 3},
		{name: "gives up after max attempts", statuses: []int{500, 502, 504}, wantCalls: 3, wantErr: true, wantStatus: 504},
		{name: "client errors are not retried", statuses: []int{404}, wantCalls: 1, wantErr: true, wantStatus: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := 0
			httpClient := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
				status := tt.statuses[call]
				call++
				if status != http.StatusOK {
					return mocks.JSONResponse(status, `{"error":"unavailable"}`), nil
				}
				return mocks.JSONResponse(status, `{"data":[],"next_cursor":"c1","has_more":false}`), nil
			})

			client := NewClient(testClientConfig("https://gateway.test"), httpClient, mocks.NewMockLogger())
			_, err := client.ListEvents(context.Background(), &adapterports.EventListRequest{MerchantID: "merchant-1"})

			assert.Equal(t, tt.wantCalls, httpClient.CallCount())
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
		})
	}
}

func TestClient_ListEvents_MalformedBodyIsNotRetried(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
		return mocks.JSONResponse(http.StatusOK, `{"data":[`), nil
	})

	client := NewClient(testClientConfig("https://gateway.test"), httpClient, mocks.NewMockLogger())
	_, err := client.ListEvents(context.Background(), &adapterports.EventListRequest{MerchantID: "merchant-1"})
	require.Error(t, err)
	assert.Equal(t, 1, httpClient.CallCount())
}

func TestClient_ListEvents_CircuitOpens(t *testing.T) {
	httpClient := mocks.NewMockHTTPClient(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	config := testClientConfig("https://gateway.test")
	config.MaxAttempts = 1
	config.CircuitBreaker = CircuitBreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour, MaxRequestsHalfOpen: 1}
	logger := mocks.NewMockLogger()
	client := NewClient(config, httpClient, logger)

	req := &adapterports.EventListRequest{MerchantID: "merchant-1"}
	for i := 0; i < 2; i++ {
		_, err := client.ListEvents(context.Background(), req)
		require.Error(t, err)
	}

	_, err := client.ListEvents(context.Background(), req)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, httpClient.CallCount())
	assert.NotEmpty(t, logger.Warnings())
}

func TestClient_ListEvents_RequiresMerchant(t *testing.T) {
	client := NewClient(testClientConfig("https://gateway.test"), mocks.NewMockHTTPClient(nil), mocks.NewMockLogger())

	_, err := client.ListEvents(context.Background(), &adapterports.EventListRequest{})
	assert.True(t, domain.IsValidationError(err))

	_, err = client.ListEvents(context.Background(), nil)
	assert.True(t, domain.IsValidationError(err))
}
