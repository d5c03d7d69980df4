package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/sirupsen/logrus"
)

type InMemoryStore struct {
	logger *logrus.Logger

	mutex sync.RWMutex
	data  map[string]models.Baseline
}

func (s *InMemoryStore) Init(logger *logrus.Logger, _ map[string]string) error {
	s.data = make(map[string]models.Baseline)
	s.logger = logger

	return nil
}

func (s *InMemoryStore) Load(_ context.Context, householdID string) (*models.Baseline, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	baseline, ok := s.data[householdID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &baseline, nil
}

func (s *InMemoryStore) Create(_ context.Context, baseline models.Baseline) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.data[baseline.HouseholdID]; exists {
		return storage.ErrExists
	}

	s.data[baseline.HouseholdID] = baseline

	s.logger.WithFields(logrus.Fields{
		"household_id": baseline.HouseholdID,
		"revision":     baseline.Revision,
		"created_at":   baseline.CreatedAt.Format(time.DateTime),
	}).Debug("stored baseline")

	return nil
}

func (s *InMemoryStore) Reset(_ context.Context, householdID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, householdID)

	return nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
