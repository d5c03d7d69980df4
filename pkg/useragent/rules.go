package useragent

import (
	"strings"

	"github.com/hazcod/hearth/pkg/models"
)

type rule struct {
	needles []string
	value   string
}

// Order matters: iOS agents also say "Mac OS X", Android agents also say "Linux"
// and nearly every Chromium fork also says "Chrome/" and "Safari/".
var osRules = []rule{
	{needles: []string{"iphone", "ipad", "ipod"}, value: "iOS"},
	{needles: []string{"android"}, value: "Android"},
	{needles: []string{"windows"}, value: "Windows"},
	{needles: []string{"cros "}, value: "ChromeOS"},
	{needles: []string{"macintosh", "mac os x"}, value: "macOS"},
	{needles: []string{"linux", "x11"}, value: "Linux"},
}

var browserRules = []rule{
	{needles: []string{"edg/", "edga/", "edgios/"}, value: "Edge"},
	{needles: []string{"opr/", "opera"}, value: "Opera"},
	{needles: []string{"samsungbrowser/"}, value: "Samsung Internet"},
	{needles: []string{"firefox/", "fxios/"}, value: "Firefox"},
	{needles: []string{"chrome/", "crios/"}, value: "Chrome"},
	{needles: []string{"safari/"}, value: "Safari"},
}

var mobileNeedles = []string{"mobi", "android", "iphone", "ipad", "ipod"}

// RulesParser classifies agents with a fixed, ordered set of substring rules.
type RulesParser struct{}

func (RulesParser) Parse(raw string) models.Device {
	ua := strings.ToLower(strings.TrimSpace(raw))
	if ua == "" {
		return unknownDevice()
	}

	return models.Device{
		OS:          classify(osRules, ua, OSOther),
		Browser:     classify(browserRules, ua, BrowserUnknown),
		DeviceClass: deviceClass(ua),
	}
}

// classify returns the value of the first rule with a needle contained in ua.
func classify(rules []rule, ua, fallback string) string {
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(ua, needle) {
				return r.value
			}
		}
	}
	return fallback
}

func deviceClass(ua string) string {
	for _, needle := range mobileNeedles {
		if strings.Contains(ua, needle) {
			return models.DeviceClassMobile
		}
	}
	return models.DeviceClassDesktop
}
