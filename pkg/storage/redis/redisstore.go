// Package redis stores baselines as JSON values under a key prefix.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultPrefix = "hearth:baseline:"

type Store struct {
	logger *logrus.Logger
	client *redis.Client
	prefix string
}

func (s *Store) Init(logger *logrus.Logger, settings map[string]string) error {
	url, ok := settings["url"]
	if !ok || url == "" {
		return errors.New("url required for redis store")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	s.prefix = DefaultPrefix
	if prefix := settings["prefix"]; prefix != "" {
		s.prefix = prefix
	}

	s.logger = logger
	s.client = client

	return nil
}

func (s *Store) key(householdID string) string {
	return s.prefix + householdID
}

func (s *Store) Load(ctx context.Context, householdID string) (*models.Baseline, error) {
	blob, err := s.client.Get(ctx, s.key(householdID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not get baseline: %w", err)
	}

	baseline, err := storage.DecodeBaseline(blob)
	if err != nil {
		s.logger.WithError(err).WithField("household_id", householdID).Warn("ignoring unreadable baseline key")
		return nil, storage.ErrNotFound
	}

	return baseline, nil
}

func (s *Store) Create(ctx context.Context, baseline models.Baseline) error {
	blob, err := storage.EncodeBaseline(baseline)
	if err != nil {
		return fmt.Errorf("could not encode baseline: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(baseline.HouseholdID), blob, 0).Result()
	if err != nil {
		return fmt.Errorf("could not store baseline: %w", err)
	}
	if !created {
		return storage.ErrExists
	}

	return nil
}

func (s *Store) Reset(ctx context.Context, householdID string) error {
	if err := s.client.Del(ctx, s.key(householdID)).Err(); err != nil {
		return fmt.Errorf("could not delete baseline: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
