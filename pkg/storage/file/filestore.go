// Package file keeps one JSON document per household in a directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/sirupsen/logrus"
)

type Store struct {
	logger *logrus.Logger
	dir    string

	mutex sync.Mutex
}

func (s *Store) Init(logger *logrus.Logger, settings map[string]string) error {
	dir, ok := settings["path"]
	if !ok || dir == "" {
		return errors.New("path required for file store")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create store directory: %w", err)
	}

	s.logger = logger
	s.dir = dir

	return nil
}

func (s *Store) path(householdID string) string {
	return filepath.Join(s.dir, householdID+".json")
}

func (s *Store) Load(_ context.Context, householdID string) (*models.Baseline, error) {
	if err := storage.ValidateHouseholdID(householdID); err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(s.path(householdID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read baseline: %w", err)
	}

	baseline, err := storage.DecodeBaseline(blob)
	if err != nil {
		s.logger.WithError(err).WithField("household_id", householdID).Warn("ignoring unreadable baseline file")
		return nil, storage.ErrNotFound
	}

	return baseline, nil
}

// Create writes to a temporary file and hard-links it into place, which fails if the
// target already exists, so a baseline is never half written or overwritten.
func (s *Store) Create(_ context.Context, baseline models.Baseline) error {
	if err := storage.ValidateHouseholdID(baseline.HouseholdID); err != nil {
		return err
	}

	blob, err := storage.EncodeBaseline(baseline)
	if err != nil {
		return fmt.Errorf("could not encode baseline: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".baseline-*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write baseline: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("could not sync baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close baseline: %w", err)
	}

	if err := os.Link(tmp.Name(), s.path(baseline.HouseholdID)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return storage.ErrExists
		}
		return fmt.Errorf("could not publish baseline: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"household_id": baseline.HouseholdID,
		"revision":     baseline.Revision,
	}).Debug("stored baseline")

	return nil
}

func (s *Store) Reset(_ context.Context, householdID string) error {
	if err := storage.ValidateHouseholdID(householdID); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.Remove(s.path(householdID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete baseline: %w", err)
	}

	return nil
}

func (s *Store) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
