package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound = errors.New("household baseline not found")
	ErrExists   = errors.New("household baseline already exists")

	ErrInvalidHouseholdID = errors.New("household id must be 1-64 letters, digits, dashes or underscores")
)

// Driver persists at most one baseline per household id. Records are written and read
// wholesale; there is no update path, only Create and Reset.
type Driver interface {
	Init(logger *logrus.Logger, settings map[string]string) error

	// Load returns ErrNotFound when nothing is enrolled. Unreadable records are
	// reported as ErrNotFound too.
	Load(ctx context.Context, householdID string) (*models.Baseline, error)

	// Create stores baseline atomically and returns ErrExists if one is present.
	Create(ctx context.Context, baseline models.Baseline) error

	// Reset deletes the baseline. Deleting a missing baseline is not an error.
	Reset(ctx context.Context, householdID string) error

	Ping(ctx context.Context) error
	Close() error
}

var householdIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateHouseholdID rejects ids that are unsafe as file names or keys.
func ValidateHouseholdID(id string) error {
	if !householdIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidHouseholdID, id)
	}
	return nil
}

// EncodeBaseline is the wire format shared by the file and redis drivers.
func EncodeBaseline(baseline models.Baseline) ([]byte, error) {
	return json.Marshal(baseline)
}

// DecodeBaseline parses a stored record and checks it carries its identity.
func DecodeBaseline(data []byte) (*models.Baseline, error) {
	var baseline models.Baseline
	if err := json.Unmarshal(data, &baseline); err != nil {
		return nil, fmt.Errorf("malformed baseline record: %w", err)
	}

	if baseline.HouseholdID == "" || baseline.Revision == "" {
		return nil, errors.New("baseline record is missing its identity")
	}

	return &baseline, nil
}
