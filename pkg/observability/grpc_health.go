package observability

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCHealthServer serves grpc.health.v1 beside the HTTP probes, for orchestrators and
// load balancers that only speak gRPC health checks. The overall ("") service status
// follows the HealthChecker and is refreshed on an interval.
type GRPCHealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checker  *HealthChecker
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewGRPCHealthServer creates the server without listening. Status starts NOT_SERVING
// until the first refresh.
func NewGRPCHealthServer(checker *HealthChecker, interval time.Duration, logger *zap.Logger) *GRPCHealthServer {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return &GRPCHealthServer{
		server:   server,
		health:   healthServer,
		checker:  checker,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Refresh runs the dependency checks once and publishes the resulting status
func (s *GRPCHealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.checker != nil {
		if result := s.checker.Check(ctx); result.Status != "healthy" {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("gRPC health reporting not serving", zap.Any("checks", result.Checks))
		}
	}
	s.health.SetServingStatus("", status)
	return status
}

// Serve refreshes the status on every interval and serves on lis until Shutdown
func (s *GRPCHealthServer) Serve(lis net.Listener) error {
	go s.refreshLoop()
	err := s.server.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (s *GRPCHealthServer) refreshLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Refresh(context.Background())
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Refresh(context.Background())
		}
	}
}

// Shutdown reports NOT_SERVING to every watcher, then stops gracefully. Connections still
// open when ctx expires are closed.
func (s *GRPCHealthServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()
	s.stopOnce.Do(func() { close(s.stop) })

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}

// StartGRPCHealthServer listens on port and serves in the background
func StartGRPCHealthServer(port string, checker *HealthChecker, interval time.Duration, logger *zap.Logger) (*GRPCHealthServer, error) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}

	server := NewGRPCHealthServer(checker, interval, logger)
	go func() {
		logger.Info("gRPC health server listening", zap.String("address", lis.Addr().String()))
		if err := server.Serve(lis); err != nil {
			logger.Error("gRPC health server error", zap.Error(err))
		}
	}()
	return server, nil
}
