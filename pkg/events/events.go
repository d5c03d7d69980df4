package events

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	TypeEnrollmentEvent   = "ENROLLMENT_EVENT"
	TypeVerificationEvent = "VERIFICATION_EVENT"
	TypeResetEvent        = "RESET_EVENT"
)

type EnrollmentEvent struct {
	Timestamp   time.Time
	HouseholdID string
	Revision    string
	DeviceClass string
	IPKnown     bool
}

func (e EnrollmentEvent) Fields() logrus.Fields {
	return logrus.Fields{
		"event":        TypeEnrollmentEvent,
		"timestamp":    e.Timestamp.Format(time.RFC3339),
		"household_id": e.HouseholdID,
		"revision":     e.Revision,
		"device_class": e.DeviceClass,
		"ip_known":     e.IPKnown,
	}
}

// VerificationEvent deliberately carries no raw fingerprint values.
type VerificationEvent struct {
	Timestamp   time.Time
	HouseholdID string
	Verdict     string
	Policy      string
	Score       int
	DistanceKm  float64
	CPMDiff     int
	OfferTier   string
}

func (e VerificationEvent) Fields() logrus.Fields {
	fields := logrus.Fields{
		"event":        TypeVerificationEvent,
		"timestamp":    e.Timestamp.Format(time.RFC3339),
		"household_id": e.HouseholdID,
		"verdict":      e.Verdict,
		"policy":       e.Policy,
		"score":        e.Score,
		"distance_km":  e.DistanceKm,
		"cpm_diff":     e.CPMDiff,
	}
	if e.OfferTier != "" {
		fields["offer_tier"] = e.OfferTier
	}
	return fields
}

type ResetEvent struct {
	Timestamp   time.Time
	HouseholdID string
	Actor       string
}

func (e ResetEvent) Fields() logrus.Fields {
	return logrus.Fields{
		"event":        TypeResetEvent,
		"timestamp":    e.Timestamp.Format(time.RFC3339),
		"household_id": e.HouseholdID,
		"actor":        e.Actor,
	}
}
