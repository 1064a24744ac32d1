package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines timeout values for the application's timeout hierarchy
//
// Timeout Hierarchy (from outermost to innermost):
//
//	Cron job (10m)          Webhook request (30s)
//	  ↓                       ↓
//	Gateway request (60s)   Ingestion of one delivery
//	  ↓
//	Gateway attempt (15s)
//	  ↓
//	Database query (2s/10s/60s - owned by the database adapter)
//
// Each layer must finish before its parent times out.
type TimeoutConfig struct {
	CronJob        time.Duration // Whole cron run, e.g. a batch settlement (default: 10 minutes)
	Webhook        time.Duration // One inbound webhook delivery (default: 30s)
	GatewayRequest time.Duration // One ListEvents call including retries (default: 60s)
	GatewayAttempt time.Duration // A single HTTP attempt against the gateway (default: 15s)
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		CronJob:        10 * time.Minute,
		Webhook:        30 * time.Second,
		GatewayRequest: 60 * time.Second,
		GatewayAttempt: 15 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		CronJob:        30 * time.Second,
		Webhook:        2 * time.Second,
		GatewayRequest: 2 * time.Second,
		GatewayAttempt: time.Second,
	}
}

// CronContext creates a context with timeout for cron jobs
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// WebhookContext creates a context for processing one webhook delivery
func (tc *TimeoutConfig) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Webhook)
}

// GatewayRequestContext bounds a gateway call across all of its retries
func (tc *TimeoutConfig) GatewayRequestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.GatewayRequest)
}

// GatewayAttemptContext bounds a single attempt
func (tc *TimeoutConfig) GatewayAttemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.GatewayAttempt)
}
