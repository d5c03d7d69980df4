// Package collector turns raw client signals into a fingerprint sample.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazcod/hearth/pkg/geo"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/typing"
	"github.com/hazcod/hearth/pkg/useragent"
	"github.com/sirupsen/logrus"
)

// ErrInvalidReading is wrapped by every rejection of bad sensor data. Invalid readings
// must never reach the baseline store or the verdict engine.
var ErrInvalidReading = errors.New("invalid sensor reading")

type Phase string

const (
	PhaseCollecting          Phase = "COLLECTING_SENSORS"
	PhaseAwaitingGeolocation Phase = "AWAITING_GEOLOCATION"
	PhaseReady               Phase = "READY"
	PhaseStalled             Phase = "STALLED"
)

// CountryResolver maps a public address to an ISO country code.
type CountryResolver interface {
	Country(ip string) (string, error)
}

// Input is what the client reports for one attempt.
type Input struct {
	RequestIP     string
	UserAgent     string
	Resolution    string
	Geolocation   *models.Geolocation
	TypedText     string
	TypingElapsed time.Duration
}

// Attempt is the outcome of one collection pass. Only READY attempts carry a
// sample that may be saved or compared.
type Attempt struct {
	Phase  Phase         `json:"phase"`
	Sample models.Sample `json:"sample"`
	Reason string        `json:"reason,omitempty"`
}

// Ready reports whether the attempt carries a complete sample.
func (a *Attempt) Ready() bool {
	return a.Phase == PhaseReady
}

type Options struct {
	Phrase        string
	ReadingBuffer time.Duration
}

type Collector struct {
	logger        *logrus.Logger
	parser        useragent.Parser
	ips           IPResolver
	countries     CountryResolver
	phrase        string
	readingBuffer time.Duration
}

// New creates a collector. countries may be nil when no GeoIP database is configured.
func New(logger *logrus.Logger, parser useragent.Parser, ips IPResolver, countries CountryResolver, opts Options) *Collector {
	if opts.Phrase == "" {
		opts.Phrase = typing.DefaultPhrase
	}

	return &Collector{
		logger:        logger,
		parser:        parser,
		ips:           ips,
		countries:     countries,
		phrase:        opts.Phrase,
		readingBuffer: opts.ReadingBuffer,
	}
}

// Phrase is the challenge phrase clients must type.
func (c *Collector) Phrase() string {
	return c.phrase
}

// Collect validates the client signals and assembles a sample. A missing geolocation
// is not an error: the attempt is returned STALLED so the caller can ask again.
func (c *Collector) Collect(ctx context.Context, in Input) (*Attempt, error) {
	attempt := &Attempt{Phase: PhaseCollecting}

	if strings.TrimSpace(in.UserAgent) == "" {
		return nil, fmt.Errorf("%w: empty user agent", ErrInvalidReading)
	}
	device := c.parser.Parse(in.UserAgent)

	resolution, err := normalizeResolution(in.Resolution)
	if err != nil {
		return nil, err
	}

	if in.TypedText != "" && !typing.Matches(c.phrase, in.TypedText) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReading, typing.ErrPhraseMismatch)
	}

	cpm, err := typing.CPM(c.phrase, in.TypingElapsed, c.readingBuffer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}

	ip := c.ips.PublicIP(ctx, in.RequestIP)

	attempt.Sample = models.Sample{
		IP:          ip,
		IPCountry:   c.country(ip),
		OS:          device.OS,
		Browser:     device.Browser,
		DeviceClass: device.DeviceClass,
		Resolution:  resolution,
		TypingSpeed: cpm,
	}
	attempt.Phase = PhaseAwaitingGeolocation

	if in.Geolocation == nil {
		attempt.Phase = PhaseStalled
		attempt.Reason = "waiting for geolocation"
		c.logger.WithField("ip", ip).Debug("collection stalled on geolocation")
		return attempt, nil
	}

	point := geo.Point{Latitude: in.Geolocation.Latitude, Longitude: in.Geolocation.Longitude}
	if point.IsZero() {
		return nil, fmt.Errorf("%w: geolocation is not locked yet (0,0)", ErrInvalidReading)
	}
	if !point.InRange() {
		return nil, fmt.Errorf("%w: coordinates out of range (%f,%f)", ErrInvalidReading, point.Latitude, point.Longitude)
	}

	attempt.Sample.Latitude = point.Latitude
	attempt.Sample.Longitude = point.Longitude
	attempt.Phase = PhaseReady

	c.logger.WithFields(logrus.Fields{
		"ip":           ip,
		"os":           device.OS,
		"browser":      device.Browser,
		"device_class": device.DeviceClass,
		"typing_speed": cpm,
		"accuracy_m":   in.Geolocation.Accuracy,
	}).Debug("collected sample")

	return attempt, nil
}

func (c *Collector) country(ip string) string {
	if c.countries == nil || ip == models.UnknownIP {
		return ""
	}

	code, err := c.countries.Country(ip)
	if err != nil {
		c.logger.WithError(err).WithField("ip", ip).Debug("could not resolve ip country")
		return ""
	}

	return code
}

func normalizeResolution(res string) (string, error) {
	if strings.TrimSpace(res) == "" {
		return models.UnknownResolution, nil
	}

	width, height, ok := models.ParseResolution(res)
	if !ok {
		return "", fmt.Errorf("%w: malformed screen resolution %q", ErrInvalidReading, res)
	}

	return models.FormatResolution(width, height), nil
}
