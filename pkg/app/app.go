// Package app assembles the household verification components from configuration.
package app

import (
	"errors"
	"fmt"

	"github.com/hazcod/hearth/config"
	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/metrics"
	"github.com/hazcod/hearth/pkg/service/geoip"
	"github.com/hazcod/hearth/pkg/service/iplookup"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/hazcod/hearth/pkg/storage/drivers"
	"github.com/hazcod/hearth/pkg/useragent"
	"github.com/hazcod/hearth/pkg/verdict"
	"github.com/sirupsen/logrus"
)

type App struct {
	HouseholdID string

	Store     storage.Driver
	Metrics   *metrics.Metrics
	Engine    *verdict.Engine
	Collector *collector.Collector
	Household *household.Service

	closers []func() error
}

// New builds the household runtime described by cfg. Partial builds are closed on error.
func New(logger *logrus.Logger, cfg *config.Config) (*App, error) {
	a := &App{
		HouseholdID: cfg.Household.ID,
		Metrics:     metrics.New(),
	}

	if err := a.build(logger, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) build(logger *logrus.Logger, cfg *config.Config) error {
	store, err := drivers.GetDriver(cfg.Storage.Type)
	if err != nil {
		return err
	}
	if err := store.Init(logger, cfg.Storage.Properties); err != nil {
		return fmt.Errorf("could not initialize %s storage: %w", cfg.Storage.Type, err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	logger.WithField("driver", cfg.Storage.Type).Info("registered storage driver")

	policy, err := verdict.NewPolicy(cfg.Policy.Type, cfg.PolicyOptions())
	if err != nil {
		return err
	}
	a.Engine = verdict.NewEngine(policy)
	logger.WithField("policy", policy.Name()).Info("registered verdict policy")

	parser, err := useragent.NewParser(cfg.Sensors.UAParser)
	if err != nil {
		return err
	}

	var countries collector.CountryResolver
	if cfg.GeoIP.Database != "" {
		geo, err := geoip.NewService(logger, cfg.GeoIP.Database)
		if err != nil {
			return err
		}
		countries = geo
		a.closers = append(a.closers, geo.Close)
	}

	var ips collector.IPResolver = collector.RequestIPResolver{}
	if cfg.Sensors.IPSource == collector.IPSourceEcho {
		lookup := iplookup.NewService(logger, iplookup.Options{
			URL:       cfg.Sensors.IPEchoURL,
			Timeout:   cfg.Sensors.IPTimeout,
			CacheTTL:  cfg.Sensors.IPCacheTTL,
			OnFailure: a.Metrics.IncrementIPLookupFailures,
		})
		a.closers = append(a.closers, func() error {
			lookup.Close()
			return nil
		})
		ips = collector.EchoIPResolver{Lookup: lookup}
	}
	logger.WithField("ip_source", cfg.Sensors.IPSource).Debug("registered ip resolver")

	a.Collector = collector.New(logger, parser, ips, countries, collector.Options{
		Phrase:        cfg.Sensors.ChallengePhrase,
		ReadingBuffer: cfg.Sensors.ReadingBuffer,
	})

	a.Household = household.NewService(logger, store, a.Engine, a.Metrics)

	return nil
}

// Close releases everything New opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil

	return errors.Join(errs...)
}
