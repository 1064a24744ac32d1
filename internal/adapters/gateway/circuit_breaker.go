package gateway

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	// StateClosed lets requests through
	StateClosed CircuitState = iota
	// StateOpen fails requests without calling the gateway
	StateOpen
	// StateHalfOpen lets a limited number of probes through
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned while the gateway is considered down
	ErrCircuitOpen = errors.New("gateway circuit breaker is open")
	// ErrTooManyProbes is returned when the half-open probe budget is spent
	ErrTooManyProbes = errors.New("too many requests in half-open state")
)

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	MaxFailures         uint32        // Consecutive failures before opening
	OpenTimeout         time.Duration // Time spent open before probing
	MaxRequestsHalfOpen uint32        // Concurrent probes allowed while half-open
}

// DefaultCircuitBreakerConfig returns defaults for the event feed. A sync run
// touches many merchants, so an outage should stop hammering the gateway quickly.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		OpenTimeout:         30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

// CircuitBreaker is shared by every merchant's sync against the same gateway
type CircuitBreaker struct {
	mu          sync.Mutex
	state       CircuitState
	failures    uint32
	probes      uint32
	changedAt   time.Time
	config      CircuitBreakerConfig
	now         func() time.Time
	onStateFunc func(from, to CircuitState)
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state:     StateClosed,
		changedAt: time.Now(),
		config:    config,
		now:       time.Now,
	}
}

// OnStateChange registers a callback invoked under the breaker's lock on every transition
func (cb *CircuitBreaker) OnStateChange(fn func(from, to CircuitState)) {
	cb.mu.Lock()
	cb.onStateFunc = fn
	cb.mu.Unlock()
}

// Call runs fn unless the circuit is open. Only failures for which countable
// returns true move the breaker toward open; nil countable counts every error.
func (cb *CircuitBreaker) Call(fn func() error, countable func(error) bool) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn()
	cb.record(err != nil && (countable == nil || countable(err)))
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.changedAt) < cb.config.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.probes++
		return nil
	case StateHalfOpen:
		if cb.probes >= cb.config.MaxRequestsHalfOpen {
			return ErrTooManyProbes
		}
		cb.probes++
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !failed {
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(next CircuitState) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next
	cb.changedAt = cb.now()
	cb.failures = 0
	cb.probes = 0
	if cb.onStateFunc != nil {
		cb.onStateFunc(prev, next)
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
