package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote address without the port.
// Put chi's RealIP middleware in front when running behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter is a token bucket per key with eviction of idle keys
type RateLimiter struct {
	limiters        map[string]*keyLimiter
	mu              sync.Mutex
	rate            rate.Limit
	burst           int
	maxSize         int
	cleanupInterval time.Duration
	keyFunc         KeyFunc
	logger          *zap.Logger
	now             func() time.Time
	stopCh          chan struct{}
	stopOnce        sync.Once
}

// NewRateLimiter creates a limiter allowing requestsPerSecond per key with the given burst.
// A nil keyFunc keys by client IP.
func NewRateLimiter(requestsPerSecond float64, burst int, keyFunc KeyFunc, logger *zap.Logger) *RateLimiter {
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	rl := &RateLimiter{
		limiters:        make(map[string]*keyLimiter),
		rate:            rate.Limit(requestsPerSecond),
		burst:           burst,
		maxSize:         10000,
		cleanupInterval: 5 * time.Minute,
		keyFunc:         keyFunc,
		logger:          logger,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			if removed := rl.cleanup(); removed > 100 {
				rl.logger.Debug("Evicted idle rate limiter keys", zap.Int("removed", removed))
			}
		}
	}
}

// cleanup drops keys idle for longer than the cleanup interval
func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.cleanupInterval)
	removed := 0
	for key, limiter := range rl.limiters {
		if limiter.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Shutdown stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Shutdown() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if limiter, exists := rl.limiters[key]; exists {
		limiter.lastAccess = now
		return limiter.limiter
	}

	// At capacity: evict the least recently used key
	if len(rl.limiters) >= rl.maxSize {
		var oldestKey string
		var oldestTime time.Time
		first := true
		for k, lim := range rl.limiters {
			if first || lim.lastAccess.Before(oldestTime) {
				oldestKey = k
				oldestTime = lim.lastAccess
				first = false
			}
		}
		delete(rl.limiters, oldestKey)
	}

	limiter := &keyLimiter{
		limiter:    rate.NewLimiter(rl.rate, rl.burst),
		lastAccess: now,
	}
	rl.limiters[key] = limiter
	return limiter.limiter
}

// Middleware rejects requests over the key's budget with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)
		if !rl.getLimiter(key).Allow() {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
