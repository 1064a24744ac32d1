package observability

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startHealthServer(t *testing.T, checker *HealthChecker) (*GRPCHealthServer, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := NewGRPCHealthServer(checker, time.Hour, zap.NewNop())
	go func() { _ = server.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return server, healthpb.NewHealthClient(conn)
}

func TestGRPCHealthServer_FollowsChecker(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want healthpb.HealthCheckResponse_ServingStatus
	}{
		{name: "dependencies healthy", want: healthpb.HealthCheckResponse_SERVING},
		{name: "database down", err: errors.New("connection refused"), want: healthpb.HealthCheckResponse_NOT_SERVING},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHealthChecker(map[string]Pinger{"database": stubPinger{err: tt.err}})
			server, client := startHealthServer(t, checker)
			defer func() { _ = server.Shutdown(context.Background()) }()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			assert.Equal(t, tt.want, server.Refresh(ctx))
			resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.GetStatus())
		})
	}
}

func TestGRPCHealthServer_ShutdownStopsServing(t *testing.T) {
	server, client := startHealthServer(t, NewHealthChecker(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, server.Refresh(ctx))
	require.NoError(t, server.Shutdown(ctx))

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	assert.Error(t, err)
}
