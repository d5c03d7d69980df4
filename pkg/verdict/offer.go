package verdict

import "github.com/hazcod/hearth/pkg/models"

type Tier string

const (
	TierHigh Tier = "high_value"
	TierMid  Tier = "mid_value"
	TierLow  Tier = "low_value"

	basePropensity  = 50
	wideScreenWidth = 1920
)

// Offer is the monetization suggestion shown after a block. The propensity score
// is a flat lookup on hardware hints, not a learned model.
type Offer struct {
	Propensity int    `json:"propensity"`
	Tier       Tier   `json:"tier"`
	Message    string `json:"message"`
}

var osPropensity = map[string]int{
	"macOS":    20,
	"iOS":      15,
	"Windows":  10,
	"Linux":    10,
	"ChromeOS": 10,
	"Android":  -15,
}

// SuggestOffer scores the visitor device and picks an offer tier.
func SuggestOffer(s models.Sample) Offer {
	propensity := basePropensity + osPropensity[s.OS]

	if width, _, ok := models.ParseResolution(s.Resolution); ok && width >= wideScreenWidth {
		propensity += 15
	}

	propensity = max(0, min(100, propensity))

	switch {
	case propensity > 70:
		return Offer{Propensity: propensity, Tier: TierHigh, Message: "Upgrade to Premium and get your own profile on this device"}
	case propensity > 40:
		return Offer{Propensity: propensity, Tier: TierMid, Message: "Ask the account owner to add you as an extra member"}
	default:
		return Offer{Propensity: propensity, Tier: TierLow, Message: "Start your own ad-supported plan"}
	}
}
