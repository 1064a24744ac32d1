package shutdown

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InFlightTracker counts running work so shutdown can wait for it
type InFlightTracker struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
	logger   *zap.Logger
	name     string
}

// NewInFlightTracker creates a tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{logger: logger, name: name}
}

// Add registers one unit of work. Returns false once shutdown has begun.
func (t *InFlightTracker) Add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.draining {
		return false
	}
	t.wg.Add(1)
	return true
}

// Done marks one unit of work finished
func (t *InFlightTracker) Done() {
	t.wg.Done()
}

// Middleware answers 503 once draining so the gateway and scheduler retry elsewhere
func (t *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer t.Done()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting work and waits for running work or ctx
func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.draining = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.logger.Warn("In-flight work still running at shutdown deadline", zap.String("tracker", t.name))
		return ctx.Err()
	}
}

// PeriodicWorker runs a job on an interval until shut down.
// A run in progress is cancelled through its context.
type PeriodicWorker struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPeriodicWorker creates a worker. Start must be called to run it.
func NewPeriodicWorker(name string, interval time.Duration, logger *zap.Logger) *PeriodicWorker {
	return &PeriodicWorker{
		name:     name,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs work immediately and then on every tick
func (w *PeriodicWorker) Start(parent context.Context, work func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("Periodic worker started",
			zap.String("worker", w.name),
			zap.Duration("interval", w.interval),
		)
		for {
			work(ctx)
			select {
			case <-ctx.Done():
				w.logger.Info("Periodic worker stopped", zap.String("worker", w.name))
				return
			case <-ticker.C:
			}
		}
	}()
}

// Shutdown cancels the worker and waits for the current run to return
func (w *PeriodicWorker) Shutdown(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
