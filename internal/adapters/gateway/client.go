package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	"github.com/kevin07696/revenue-share-service/pkg/resilience"
)

const maxResponseBytes = 10 << 20

// ClientConfig contains configuration for the gateway event feed client
type ClientConfig struct {
	BaseURL        string // e.g., "https://api.gateway.example.com"
	APIKey         string
	PageLimit      int
	MaxAttempts    int
	Backoff        resilience.BackoffStrategy
	Timeouts       *resilience.TimeoutConfig
	CircuitBreaker CircuitBreakerConfig
}

// DefaultClientConfig returns default configuration
func DefaultClientConfig(baseURL, apiKey string) *ClientConfig {
	return &ClientConfig{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		PageLimit:      100,
		MaxAttempts:    3,
		Backoff:        resilience.GatewayBackoff(),
		Timeouts:       resilience.DefaultTimeoutConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// StatusError is returned for non-2xx responses from the gateway
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client polls the gateway event feed. It implements adapterports.GatewayEventSource.
type Client struct {
	config     *ClientConfig
	httpClient adapterports.HTTPClient
	breaker    *CircuitBreaker
	logger     ports.Logger
}

// NewClient creates a new gateway event feed client
func NewClient(config *ClientConfig, httpClient adapterports.HTTPClient, logger ports.Logger) *Client {
	breaker := NewCircuitBreaker(config.CircuitBreaker)
	breaker.OnStateChange(func(from, to CircuitState) {
		logger.Warn("Gateway circuit breaker state changed",
			ports.String("from", from.String()),
			ports.String("to", to.String()),
		)
	})

	return &Client{
		config:     config,
		httpClient: httpClient,
		breaker:    breaker,
		logger:     logger,
	}
}

type eventPageResponse struct {
	Data       []domain.GatewayEvent `json:"data"`
	NextCursor string                `json:"next_cursor"`
	HasMore    bool                  `json:"has_more"`
}

// ListEvents fetches one page of a merchant's events, retrying transient failures
func (c *Client) ListEvents(ctx context.Context, req *adapterports.EventListRequest) (*domain.EventPage, error) {
	if req == nil || req.MerchantID == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_id")
	}

	reqURL, err := c.eventsURL(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.config.Timeouts.GatewayRequestContext(ctx)
	defer cancel()

	var page *domain.EventPage
	err = resilience.Retry(ctx, c.config.MaxAttempts, c.config.Backoff, isRetryable, func(ctx context.Context) error {
		return c.breaker.Call(func() error {
			var attemptErr error
			page, attemptErr = c.fetch(ctx, reqURL)
			return attemptErr
		}, isRetryable)
	})
	if err != nil {
		c.logger.Error("Failed to list gateway events",
			ports.String("merchant_id", req.MerchantID),
			ports.String("cursor", req.Cursor),
			ports.Err(err),
		)
		return nil, fmt.Errorf("list gateway events: %w", err)
	}

	c.logger.Debug("Fetched gateway events",
		ports.String("merchant_id", req.MerchantID),
		ports.Int("count", len(page.Events)),
		ports.Bool("has_more", page.HasMore),
	)
	return page, nil
}

func (c *Client) eventsURL(req *adapterports.EventListRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/merchants/%s/events", c.config.BaseURL, url.PathEscape(req.MerchantID))
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint URL: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = c.config.PageLimit
	}

	query := reqURL.Query()
	query.Set("limit", strconv.Itoa(limit))
	if req.Cursor != "" {
		query.Set("cursor", req.Cursor)
	}
	reqURL.RawQuery = query.Encode()
	return reqURL.String(), nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) (*domain.EventPage, error) {
	ctx, cancel := c.config.Timeouts.GatewayAttemptContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Gateway events response",
		ports.Int("status_code", resp.StatusCode),
		ports.Duration("elapsed", time.Since(startTime)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var decoded eventPageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode events page: %w", err)
	}

	return &domain.EventPage{
		Events:     decoded.Data,
		NextCursor: decoded.NextCursor,
		HasMore:    decoded.HasMore && decoded.NextCursor != "",
	}, nil
}

// isRetryable treats transport failures and 429/5xx responses as transient.
// Caller cancellation, an open circuit and 4xx responses are permanent.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyProbes) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false
	}
	return true
}
