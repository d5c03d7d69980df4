// Package useragent classifies raw user-agent strings into the small closed set of
// OS, browser and device class names the verdict engine compares.
package useragent

import (
	"fmt"
	"strings"

	"github.com/hazcod/hearth/pkg/models"
)

const (
	OSOther        = "Other"
	BrowserUnknown = "Unknown"
	ClassUnknown   = "Unknown"

	ParserRules   = "rules"
	ParserLibrary = "library"
)

// Parser maps a raw user agent to a device classification. Classification is
// best-effort: agents that match no rule fall back to Other/Unknown.
type Parser interface {
	Parse(raw string) models.Device
}

// NewParser returns the parser registered under name.
func NewParser(name string) (Parser, error) {
	switch strings.ToLower(name) {
	case "", ParserRules:
		return RulesParser{}, nil
	case ParserLibrary:
		return LibraryParser{}, nil
	default:
		return nil, fmt.Errorf("unknown user agent parser: %s", name)
	}
}

func unknownDevice() models.Device {
	return models.Device{
		OS:          OSOther,
		Browser:     BrowserUnknown,
		DeviceClass: ClassUnknown,
	}
}
