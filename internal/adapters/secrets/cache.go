package secrets

import (
	"errors"
	"sync"
	"time"

	"github.com/kevin07696/revenue-share-service/internal/adapters/ports"
)

// ErrSecretNotFound is returned when a backend has no secret at the requested path or version
var ErrSecretNotFound = errors.New("secret not found")

// secretCache is a TTL cache shared by the remote backends. Webhook verification
// reads the same signing key on every delivery, so hits are the common path.
type secretCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	enabled bool
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	secret    *ports.Secret
	expiresAt time.Time
}

func newSecretCache(enabled bool, ttl time.Duration) *secretCache {
	return &secretCache{
		entries: make(map[string]cacheEntry),
		enabled: enabled && ttl > 0,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *secretCache) get(key string) *ports.Secret {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Another reader may have refreshed the entry in between.
		if current, ok := c.entries[key]; ok && !c.now().Before(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(key string, secret *ports.Secret) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{secret: secret, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *secretCache) invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *secretCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// versionKey namespaces cached versions away from the current secret at the same path
func versionKey(path, version string) string {
	return path + "@" + version
}
