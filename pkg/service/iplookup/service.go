// Package iplookup resolves the public address of the machine running the
// collector through an external IP echo service.
package iplookup

import (
	"context"
	"time"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
)

// Options configures the lookup service; zero values take defaults.
type Options struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
	// OnFailure is called every time a lookup falls back to the sentinel.
	OnFailure func()
}

// Service combines the echo client with a short-lived cache.
type Service struct {
	client    *Client
	cache     *Cache
	logger    *logrus.Logger
	key       string
	onFailure func()
}

// NewService creates a lookup service. Close releases the cache janitor.
func NewService(logger *logrus.Logger, opts Options) *Service {
	client := NewClient(logger, opts.URL, opts.Timeout)

	return &Service{
		client:    client,
		cache:     NewCache(logger, opts.CacheTTL),
		logger:    logger,
		key:       client.url,
		onFailure: opts.OnFailure,
	}
}

// PublicIP returns the current public address, or models.UnknownIP when the echo
// service cannot be reached or answers with garbage. It never returns an error.
func (s *Service) PublicIP(ctx context.Context) string {
	if ip, found := s.cache.Get(s.key); found {
		return ip
	}

	ip, err := s.client.Lookup(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("public ip lookup failed, using sentinel")
		if s.onFailure != nil {
			s.onFailure()
		}
		return models.UnknownIP
	}

	s.cache.Set(s.key, ip)

	return ip
}

// ClearCache drops cached lookups.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// Close stops the cache janitor.
func (s *Service) Close() {
	s.cache.Close()
	s.client.Close()
}
