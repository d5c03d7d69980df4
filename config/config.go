package config

import (
	"fmt"
	"os"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/service/iplookup"
	"github.com/hazcod/hearth/pkg/typing"
	"github.com/hazcod/hearth/pkg/verdict"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = 8080
	defaultLogLevel        = "info"
	defaultStorageType     = "memory"
	defaultIPSource        = "request"
	defaultUAParser        = "rules"
	defaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	HTTP struct {
		Port      uint16 `yaml:"port"`
		Interface string `yaml:"interface"`
		Origin    string `yaml:"origin" valid:"url"`
		// APIToken enables the /api/household endpoints when set.
		APIToken        string        `yaml:"api_token"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// TrustedProxies are CIDRs or addresses allowed to set X-Forwarded-For.
		TrustedProxies []string `yaml:"trusted_proxies" valid:"-"`
	} `yaml:"http"`

	Auth struct {
		// Type selects the admin login provider. Empty disables the admin pages.
		Type       string                 `yaml:"type" valid:"in(local|oidc)"`
		Secret     string                 `yaml:"secret" valid:"required,minstringlength(32)"`
		Properties map[string]interface{} `yaml:"properties" valid:"-"`
	} `yaml:"auth"`

	Storage struct {
		Type       string            `yaml:"type" valid:"in(memory|file|redis|postgres|sqlite)"`
		Properties map[string]string `yaml:"properties" valid:"-"`
	} `yaml:"storage"`

	Log struct {
		Level string `yaml:"level" valid:"in(panic|fatal|error|warn|warning|info|debug|trace)"`
	} `yaml:"log"`

	Household struct {
		ID string `yaml:"id" valid:"matches(^[A-Za-z0-9_-]+$)"`
	} `yaml:"household"`

	Policy struct {
		Type                string  `yaml:"type" valid:"in(weighted|threshold)"`
		HomeRadiusKm        float64 `yaml:"home_radius_km"`
		TypingToleranceCPM  int     `yaml:"typing_tolerance_cpm"`
		RequireDeviceMatch  *bool   `yaml:"require_device_match"`
		IPOverridesDistance bool    `yaml:"ip_overrides_distance"`
		GrantScore          int     `yaml:"grant_score"`
		ChallengeScore      int     `yaml:"challenge_score"`
	} `yaml:"policy"`

	Sensors struct {
		IPSource        string        `yaml:"ip_source" valid:"in(request|echo)"`
		IPEchoURL       string        `yaml:"ip_echo_url" valid:"url"`
		IPTimeout       time.Duration `yaml:"ip_timeout"`
		IPCacheTTL      time.Duration `yaml:"ip_cache_ttl"`
		ChallengePhrase string        `yaml:"challenge_phrase"`
		ReadingBuffer   time.Duration `yaml:"reading_buffer"`
		UAParser        string        `yaml:"ua_parser" valid:"in(rules|library)"`
	} `yaml:"sensors"`

	GeoIP struct {
		Database string `yaml:"database"`
	} `yaml:"geoip"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// LoadConfig reads the YAML file at cfgPath, applies defaults and validates the result.
func LoadConfig(cfgPath string) (*Config, error) {
	cfg := Config{}

	if cfgPath != "" {
		yamlBytes, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlBytes, &cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	valid, err := govalidator.ValidateStruct(&cfg)
	if !valid || err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	if cfg.Policy.HomeRadiusKm < 0 || cfg.Policy.TypingToleranceCPM < 0 {
		return nil, fmt.Errorf("error validating config: policy radius and tolerance must not be negative")
	}

	if cfg.Sensors.ReadingBuffer < 0 {
		return nil, fmt.Errorf("error validating config: sensors.reading_buffer must not be negative")
	}

	if _, err := collector.ParseTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("error validating config: http.trusted_proxies: %w", err)
	}

	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultPort
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = defaultStorageType
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}

	if cfg.Household.ID == "" {
		cfg.Household.ID = models.DefaultHouseholdID
	}

	if cfg.Policy.Type == "" {
		cfg.Policy.Type = verdict.PolicyWeighted
	}

	if cfg.Sensors.IPSource == "" {
		cfg.Sensors.IPSource = defaultIPSource
	}
	if cfg.Sensors.IPEchoURL == "" {
		cfg.Sensors.IPEchoURL = iplookup.DefaultEchoURL
	}
	if cfg.Sensors.IPTimeout == 0 {
		cfg.Sensors.IPTimeout = iplookup.DefaultTimeout
	}
	if cfg.Sensors.IPCacheTTL == 0 {
		cfg.Sensors.IPCacheTTL = iplookup.DefaultCacheTTL
	}
	if cfg.Sensors.ChallengePhrase == "" {
		cfg.Sensors.ChallengePhrase = typing.DefaultPhrase
	}
	if cfg.Sensors.ReadingBuffer == 0 {
		cfg.Sensors.ReadingBuffer = typing.DefaultReadingBuffer
	}
	if cfg.Sensors.UAParser == "" {
		cfg.Sensors.UAParser = defaultUAParser
	}
}

// Proxies returns the trusted proxy networks. Entries were validated by LoadConfig.
func (cfg *Config) Proxies() collector.TrustedProxies {
	proxies, _ := collector.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	return proxies
}

// PolicyOptions maps the policy section onto the verdict engine options.
func (cfg *Config) PolicyOptions() verdict.Options {
	return verdict.Options{
		HomeRadiusKm:        cfg.Policy.HomeRadiusKm,
		TypingToleranceCPM:  cfg.Policy.TypingToleranceCPM,
		RequireDeviceMatch:  cfg.Policy.RequireDeviceMatch,
		IPOverridesDistance: cfg.Policy.IPOverridesDistance,
		GrantScore:          cfg.Policy.GrantScore,
		ChallengeScore:      cfg.Policy.ChallengeScore,
	}
}
