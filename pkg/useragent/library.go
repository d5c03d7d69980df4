package useragent

import (
	"strings"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/mssola/useragent"
)

var libraryBrowsers = map[string]string{
	"chrome":           "Chrome",
	"chromium":         "Chrome",
	"firefox":          "Firefox",
	"safari":           "Safari",
	"edge":             "Edge",
	"opera":            "Opera",
	"samsung internet": "Samsung Internet",
}

// LibraryParser delegates parsing to mssola/useragent and folds the result into the
// same closed set RulesParser produces.
type LibraryParser struct{}

func (LibraryParser) Parse(raw string) models.Device {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unknownDevice()
	}

	ua := useragent.New(raw)

	browser := BrowserUnknown
	name, _ := ua.Browser()
	if mapped, ok := libraryBrowsers[strings.ToLower(name)]; ok {
		browser = mapped
	}

	class := models.DeviceClassDesktop
	if ua.Mobile() {
		class = models.DeviceClassMobile
	}

	return models.Device{
		OS:          classify(osRules, strings.ToLower(ua.OS()+" "), OSOther),
		Browser:     browser,
		DeviceClass: class,
	}
}
