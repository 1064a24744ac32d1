package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shutdown_duration_seconds",
		Help:    "Total time taken to shutdown gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	componentShutdownDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "component_shutdown_duration_seconds",
		Help:    "Time taken to shutdown individual components",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 20, 25, 30},
	}, []string{"component"})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutdown_errors_total",
		Help: "Total number of shutdown errors by component",
	}, []string{"component"})
)

// Func shuts down one component within the deadline of ctx
type Func func(ctx context.Context) error

type component struct {
	name string
	fn   Func
}

// Manager stops registered components in reverse registration order, one at a time.
// Register producers of work (workers, servers) after what they depend on (database),
// so they stop first.
type Manager struct {
	logger     *zap.Logger
	components []component
	mu         sync.Mutex
	timeout    time.Duration
	once       sync.Once
	errs       map[string]error
}

// NewManager creates a shutdown manager whose whole run is bounded by timeout
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a component
func (sm *Manager) Register(name string, fn Func) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.components = append(sm.components, component{name: name, fn: fn})
}

// RegisterHTTPServer registers anything with http.Server's Shutdown signature
func (sm *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	sm.Register(name, server.Shutdown)
}

// RegisterFunc registers a shutdown function that ignores the deadline
func (sm *Manager) RegisterFunc(name string, fn func()) {
	sm.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT, SIGTERM or ctx is done, then shuts down
func (sm *Manager) WaitForShutdown(ctx context.Context) map[string]error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	sm.logger.Info("Shutdown signal received", zap.Duration("timeout", sm.timeout))
	return sm.Shutdown()
}

// Shutdown stops every component once. Later calls return the first run's errors.
func (sm *Manager) Shutdown() map[string]error {
	sm.once.Do(func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
		defer cancel()

		sm.errs = sm.shutdownComponents(ctx)
		shutdownDuration.Observe(time.Since(start).Seconds())

		if len(sm.errs) > 0 {
			sm.logger.Error("Shutdown completed with errors",
				zap.Int("error_count", len(sm.errs)),
				zap.Duration("elapsed", time.Since(start)),
			)
			return
		}
		sm.logger.Info("Shutdown completed", zap.Duration("elapsed", time.Since(start)))
	})
	return sm.errs
}

func (sm *Manager) shutdownComponents(ctx context.Context) map[string]error {
	sm.mu.Lock()
	components := make([]component, len(sm.components))
	copy(components, sm.components)
	sm.mu.Unlock()

	errs := make(map[string]error)
	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		start := time.Now()

		err := comp.fn(ctx)
		componentShutdownDuration.WithLabelValues(comp.name).Observe(time.Since(start).Seconds())
		if err != nil {
			errs[comp.name] = err
			shutdownErrors.WithLabelValues(comp.name).Inc()
			sm.logger.Error("Component shutdown failed",
				zap.String("component", comp.name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			continue
		}
		sm.logger.Info("Component stopped",
			zap.String("component", comp.name),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return errs
}
