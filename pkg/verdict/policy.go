package verdict

import (
	"fmt"
	"strings"
)

const (
	PolicyWeighted  = "weighted"
	PolicyThreshold = "threshold"

	DefaultHomeRadiusKm       = 60.0
	DefaultTypingToleranceCPM = 50
	DefaultGrantScore         = 75
	DefaultChallengeScore     = 45
)

// Policy turns signals into a verdict.
type Policy interface {
	Name() string
	Decide(s Signals, score int) Verdict
}

// ThresholdPolicy decides on distance first and falls back to the typing
// biometric for travelling members.
type ThresholdPolicy struct {
	HomeRadiusKm       float64
	TypingToleranceCPM int
	RequireDeviceMatch bool
	// IPOverridesDistance grants on a public IP match regardless of distance.
	IPOverridesDistance bool
}

func (p ThresholdPolicy) Name() string { return PolicyThreshold }

// Decide grants inside the home radius and otherwise falls back to the typing and device match.
func (p ThresholdPolicy) Decide(s Signals, _ int) Verdict {
	if p.IPOverridesDistance && s.Matches.IP {
		return Granted
	}

	if s.DistanceKm < p.HomeRadiusKm {
		return Granted
	}

	biometric := s.CPMDiff < p.TypingToleranceCPM
	if p.RequireDeviceMatch {
		biometric = biometric && s.Matches.DeviceClass
	}
	if biometric {
		return SoftChallenge
	}

	return Blocked
}

// WeightedPolicy decides on the trust score alone.
type WeightedPolicy struct {
	GrantScore     int
	ChallengeScore int
}

func (p WeightedPolicy) Name() string { return PolicyWeighted }

// Decide maps the trust score onto a verdict.
func (p WeightedPolicy) Decide(_ Signals, score int) Verdict {
	switch {
	case score >= p.GrantScore:
		return Granted
	case score >= p.ChallengeScore:
		return SoftChallenge
	default:
		return Blocked
	}
}

// Options carries the tunables of both policies; zero values take the defaults.
type Options struct {
	HomeRadiusKm        float64
	TypingToleranceCPM  int
	RequireDeviceMatch  *bool
	IPOverridesDistance bool
	GrantScore          int
	ChallengeScore      int
}

// NewPolicy builds the policy registered under name.
func NewPolicy(name string, opts Options) (Policy, error) {
	switch strings.ToLower(name) {
	case "", PolicyWeighted:
		p := WeightedPolicy{GrantScore: opts.GrantScore, ChallengeScore: opts.ChallengeScore}
		if p.GrantScore == 0 {
			p.GrantScore = DefaultGrantScore
		}
		if p.ChallengeScore == 0 {
			p.ChallengeScore = DefaultChallengeScore
		}
		if p.ChallengeScore > p.GrantScore {
			return nil, fmt.Errorf("challenge score %d above grant score %d", p.ChallengeScore, p.GrantScore)
		}
		return p, nil

	case PolicyThreshold:
		p := ThresholdPolicy{
			HomeRadiusKm:        opts.HomeRadiusKm,
			TypingToleranceCPM:  opts.TypingToleranceCPM,
			RequireDeviceMatch:  true,
			IPOverridesDistance: opts.IPOverridesDistance,
		}
		if p.HomeRadiusKm == 0 {
			p.HomeRadiusKm = DefaultHomeRadiusKm
		}
		if p.TypingToleranceCPM == 0 {
			p.TypingToleranceCPM = DefaultTypingToleranceCPM
		}
		if opts.RequireDeviceMatch != nil {
			p.RequireDeviceMatch = *opts.RequireDeviceMatch
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown verdict policy: %s", name)
	}
}
