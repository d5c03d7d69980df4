// Package household owns the enrolled baseline of each household and runs
// verifications against it.
package household

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/events"
	"github.com/hazcod/hearth/pkg/geo"
	"github.com/hazcod/hearth/pkg/metrics"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/hazcod/hearth/pkg/useragent"
	"github.com/hazcod/hearth/pkg/verdict"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotEnrolled     = errors.New("household is not enrolled")
	ErrAlreadyEnrolled = errors.New("household is already enrolled")
)

type actorKey struct{}

// WithActor records who is acting, for the audit log.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "anonymous"
}

type Service struct {
	logger  *logrus.Logger
	store   storage.Driver
	engine  *verdict.Engine
	metrics *metrics.Metrics

	// enrollMutex serialises the check-then-create of a baseline.
	enrollMutex sync.Mutex
	now         func() time.Time
}

// NewService wires the household operations over store.
func NewService(logger *logrus.Logger, store storage.Driver, engine *verdict.Engine, m *metrics.Metrics) *Service {
	return &Service{
		logger:  logger,
		store:   store,
		engine:  engine,
		metrics: m,
		now:     time.Now,
	}
}

// PolicyName is the name of the policy deciding verdicts.
func (s *Service) PolicyName() string {
	return s.engine.PolicyName()
}

// Enroll saves sample as the household baseline. It never replaces an existing one.
func (s *Service) Enroll(ctx context.Context, householdID string, sample models.Sample) (*models.Baseline, error) {
	if err := storage.ValidateHouseholdID(householdID); err != nil {
		return nil, err
	}

	if err := validateSample(sample); err != nil {
		s.metrics.IncrementInvalidReadings()
		return nil, err
	}
	if sample.DeviceClass == useragent.ClassUnknown {
		s.metrics.IncrementInvalidReadings()
		return nil, fmt.Errorf("%w: cannot enroll an unrecognised device", collector.ErrInvalidReading)
	}

	s.enrollMutex.Lock()
	defer s.enrollMutex.Unlock()

	_, err := s.store.Load(ctx, householdID)
	if err == nil {
		return nil, ErrAlreadyEnrolled
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("could not check existing baseline: %w", err)
	}

	baseline := models.Baseline{
		HouseholdID: householdID,
		Revision:    uuid.NewString(),
		Sample:      sample,
		CreatedAt:   s.now().UTC().Round(0),
	}

	err = s.store.Create(ctx, baseline)
	if errors.Is(err, storage.ErrExists) {
		err = s.replaceUnreadable(ctx, baseline)
	}
	if err != nil {
		if errors.Is(err, storage.ErrExists) || errors.Is(err, ErrAlreadyEnrolled) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("could not store baseline: %w", err)
	}

	s.metrics.IncrementEnrollments()
	s.logger.WithFields(events.EnrollmentEvent{
		Timestamp:   baseline.CreatedAt,
		HouseholdID: householdID,
		Revision:    baseline.Revision,
		DeviceClass: sample.DeviceClass,
		IPKnown:     sample.IP != models.UnknownIP,
	}.Fields()).Info("household enrolled")

	return &baseline, nil
}

// replaceUnreadable retries a refused create once when the record occupying the slot
// cannot be decoded, since Load reports such a record as missing.
// Must be called with enrollMutex held.
func (s *Service) replaceUnreadable(ctx context.Context, baseline models.Baseline) error {
	_, err := s.store.Load(ctx, baseline.HouseholdID)
	if err == nil {
		return ErrAlreadyEnrolled
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("could not check existing baseline: %w", err)
	}

	s.logger.WithField("household_id", baseline.HouseholdID).Warn("replacing unreadable baseline")

	if err := s.store.Reset(ctx, baseline.HouseholdID); err != nil {
		return fmt.Errorf("could not clear unreadable baseline: %w", err)
	}

	return s.store.Create(ctx, baseline)
}

// Verify compares sample against the household baseline.
func (s *Service) Verify(ctx context.Context, householdID string, sample models.Sample) (*verdict.Result, error) {
	if err := validateSample(sample); err != nil {
		s.metrics.IncrementInvalidReadings()
		return nil, err
	}

	baseline, err := s.Baseline(ctx, householdID)
	if err != nil {
		return nil, err
	}

	result := s.engine.Evaluate(*baseline, sample)

	s.metrics.ObserveVerdict(string(result.Verdict), result.Policy, result.Score)

	event := events.VerificationEvent{
		Timestamp:   s.now(),
		HouseholdID: householdID,
		Verdict:     string(result.Verdict),
		Policy:      result.Policy,
		Score:       result.Score,
		DistanceKm:  result.DistanceKm,
		CPMDiff:     result.CPMDiff,
	}
	if result.Offer != nil {
		event.OfferTier = string(result.Offer.Tier)
	}
	s.logger.WithFields(event.Fields()).Info("household verification")

	return &result, nil
}

// Reset forgets the household baseline. Resetting an unenrolled household succeeds.
func (s *Service) Reset(ctx context.Context, householdID string) error {
	if err := storage.ValidateHouseholdID(householdID); err != nil {
		return err
	}

	s.enrollMutex.Lock()
	defer s.enrollMutex.Unlock()

	if err := s.store.Reset(ctx, householdID); err != nil {
		return fmt.Errorf("could not reset baseline: %w", err)
	}

	s.metrics.IncrementResets()
	s.logger.WithFields(events.ResetEvent{
		Timestamp:   s.now(),
		HouseholdID: householdID,
		Actor:       actorFrom(ctx),
	}.Fields()).Warn("household baseline reset")

	return nil
}

// Baseline returns the enrolled baseline or ErrNotEnrolled.
func (s *Service) Baseline(ctx context.Context, householdID string) (*models.Baseline, error) {
	if err := storage.ValidateHouseholdID(householdID); err != nil {
		return nil, err
	}

	baseline, err := s.store.Load(ctx, householdID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("could not load baseline: %w", err)
	}

	return baseline, nil
}

// IsHost reports whether claim still refers to the current baseline revision.
func (s *Service) IsHost(ctx context.Context, claim *models.HostClaim) bool {
	if claim == nil {
		return false
	}

	baseline, err := s.Baseline(ctx, claim.HouseholdID)
	if err != nil {
		return false
	}

	return baseline.Revision == claim.Revision
}

func validateSample(sample models.Sample) error {
	point := geo.Point{Latitude: sample.Latitude, Longitude: sample.Longitude}
	if point.IsZero() {
		return fmt.Errorf("%w: sample has no geolocation", collector.ErrInvalidReading)
	}
	if !point.InRange() {
		return fmt.Errorf("%w: coordinates out of range", collector.ErrInvalidReading)
	}
	if sample.OS == "" || sample.Browser == "" || sample.DeviceClass == "" {
		return fmt.Errorf("%w: sample has no device classification", collector.ErrInvalidReading)
	}
	if sample.TypingSpeed <= 0 {
		return fmt.Errorf("%w: sample has no typing speed", collector.ErrInvalidReading)
	}
	if sample.IP == "" {
		return fmt.Errorf("%w: sample has no ip, use %q when unknown", collector.ErrInvalidReading, models.UnknownIP)
	}
	return nil
}
