package iplookup

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultCacheTTL = time.Minute

	cleanupInterval = 30 * time.Second
)

// CacheEntry is a cached lookup result.
type CacheEntry struct {
	IP        string
	Timestamp time.Time
}

// Cache keeps successful lookups per echo URL for a short while. Failures are never
// cached.
type Cache struct {
	entries map[string]CacheEntry
	mutex   sync.RWMutex
	logger  *logrus.Logger
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewCache creates a cache and starts its janitor. Call Close to stop it.
func NewCache(logger *logrus.Logger, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache := &Cache{
		entries: make(map[string]CacheEntry),
		logger:  logger,
		ttl:     ttl,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go cache.cleanup(cleanupInterval)

	return cache
}

// Get returns a cached address for key if it has not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}

	if time.Since(entry.Timestamp) > c.ttl {
		c.logger.WithField("key", key).Debug("cache entry expired")
		return "", false
	}

	return entry.IP, true
}

// Set stores an address for key.
func (c *Cache) Set(key, ip string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = CacheEntry{
		IP:        ip,
		Timestamp: time.Now(),
	}

	c.logger.WithFields(logrus.Fields{
		"key": key,
		"ip":  ip,
	}).Debug("cached public ip")
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cleared := len(c.entries)
	c.entries = make(map[string]CacheEntry)

	c.logger.WithField("cleared_entries", cleared).Debug("cleared ip cache")
}

// Close stops the janitor goroutine and waits for it to exit.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}

func (c *Cache) cleanup(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	expired := 0

	for key, entry := range c.entries {
		if now.Sub(entry.Timestamp) > c.ttl {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.WithFields(logrus.Fields{
			"expired_entries":   expired,
			"remaining_entries": len(c.entries),
		}).Debug("cleaned up expired cache entries")
	}
}
