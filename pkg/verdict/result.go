// Package verdict compares a visitor sample with the household baseline and decides
// whether the visitor belongs to the household.
package verdict

type Verdict string

const (
	Granted       Verdict = "GRANTED"
	SoftChallenge Verdict = "SOFT_CHALLENGE"
	Blocked       Verdict = "BLOCKED"
)

// rank orders verdicts from most to least permissive.
func (v Verdict) rank() int {
	switch v {
	case Granted:
		return 2
	case SoftChallenge:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether v is as permissive as other.
func (v Verdict) AtLeast(other Verdict) bool {
	return v.rank() >= other.rank()
}

// Matches holds the per-parameter equality flags between baseline and sample.
type Matches struct {
	IP          bool `json:"ip"`
	OS          bool `json:"os"`
	Browser     bool `json:"browser"`
	DeviceClass bool `json:"device_class"`
	Resolution  bool `json:"resolution"`
	// Country is informational only and never scored.
	Country bool `json:"country"`
}

// Signals are the inputs every policy decides on.
type Signals struct {
	DistanceKm float64
	CPMDiff    int
	Matches    Matches
}

// Contribution is one line of the trust score breakdown.
type Contribution struct {
	Signal string `json:"signal"`
	Points int    `json:"points"`
	Max    int    `json:"max"`
	Reason string `json:"reason"`
}

type Result struct {
	Verdict    Verdict        `json:"verdict"`
	Policy     string         `json:"policy"`
	DistanceKm float64        `json:"distance_km"`
	CPMDiff    int            `json:"cpm_diff"`
	Matches    Matches        `json:"matches"`
	Score      int            `json:"score"`
	Breakdown  []Contribution `json:"breakdown"`
	Offer      *Offer         `json:"offer,omitempty"`
}
