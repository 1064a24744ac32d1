package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutConfig_Hierarchy(t *testing.T) {
	for name, config := range map[string]*TimeoutConfig{
		"default": DefaultTimeoutConfig(),
		"test":    TestTimeoutConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Greater(t, config.CronJob, config.GatewayRequest)
			assert.Greater(t, config.GatewayRequest, config.GatewayAttempt)
		})
	}
}

func TestTimeoutConfig_Contexts(t *testing.T) {
	config := DefaultTimeoutConfig()

	tests := []struct {
		name    string
		build   func(context.Context) (context.Context, context.CancelFunc)
		timeout time.Duration
	}{
		{"cron", config.CronContext, config.CronJob},
		{"webhook", config.WebhookContext, config.Webhook},
		{"gateway request", config.GatewayRequestContext, config.GatewayRequest},
		{"gateway attempt", config.GatewayAttemptContext, config.GatewayAttempt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			ctx, cancel := tt.build(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, start.Add(tt.timeout), deadline, 500*time.Millisecond)
		})
	}
}

func TestTimeoutConfig_ParentDeadlineWins(t *testing.T) {
	config := DefaultTimeoutConfig()

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()

	child, childCancel := config.CronContext(parent)
	defer childCancel()

	parentDeadline, _ := parent.Deadline()
	childDeadline, _ := child.Deadline()
	assert.False(t, childDeadline.After(parentDeadline))
}

func TestTimeoutConfig_Expires(t *testing.T) {
	config := TestTimeoutConfig()
	config.GatewayAttempt = 50 * time.Millisecond

	ctx, cancel := config.GatewayAttemptContext(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("context should have expired")
	}
}
