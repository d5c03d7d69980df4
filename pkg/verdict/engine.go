package verdict

import (
	"github.com/hazcod/hearth/pkg/geo"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/typing"
)

// Engine is a pure function of a baseline and a sample; it performs no I/O.
type Engine struct {
	policy Policy
}

// NewEngine returns an engine deciding with policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// PolicyName is the name of the deciding policy.
func (e *Engine) PolicyName() string {
	return e.policy.Name()
}

// Evaluate compares sample with baseline. BLOCKED results carry an offer.
func (e *Engine) Evaluate(baseline models.Baseline, sample models.Sample) Result {
	signals := Compare(baseline.Sample, sample)
	score, breakdown := Score(signals)

	result := Result{
		Verdict:    e.policy.Decide(signals, score),
		Policy:     e.policy.Name(),
		DistanceKm: signals.DistanceKm,
		CPMDiff:    signals.CPMDiff,
		Matches:    signals.Matches,
		Score:      score,
		Breakdown:  breakdown,
	}

	if result.Verdict == Blocked {
		offer := SuggestOffer(sample)
		result.Offer = &offer
	}

	return result
}

// Compare derives the raw signals between a stored fingerprint and a fresh one.
func Compare(host, visitor models.Sample) Signals {
	return Signals{
		DistanceKm: geo.Distance(
			geo.Point{Latitude: host.Latitude, Longitude: host.Longitude},
			geo.Point{Latitude: visitor.Latitude, Longitude: visitor.Longitude},
		),
		CPMDiff: typing.Diff(host.TypingSpeed, visitor.TypingSpeed),
		Matches: Matches{
			IP:          ipMatch(host.IP, visitor.IP),
			OS:          host.OS == visitor.OS,
			Browser:     host.Browser == visitor.Browser,
			DeviceClass: host.DeviceClass == visitor.DeviceClass,
			Resolution:  host.Resolution == visitor.Resolution && host.Resolution != models.UnknownResolution,
			Country:     host.IPCountry != "" && host.IPCountry == visitor.IPCountry,
		},
	}
}

// ipMatch never treats the lookup failure sentinel as a real address.
func ipMatch(a, b string) bool {
	if a == "" || a == models.UnknownIP {
		return false
	}
	return a == b
}
