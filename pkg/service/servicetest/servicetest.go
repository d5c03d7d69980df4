// Package servicetest wires a household service over the memory store for handler tests.
package servicetest

import (
	"testing"
	"time"

	"github.com/hazcod/hearth/pkg/collector"
	"github.com/hazcod/hearth/pkg/household"
	"github.com/hazcod/hearth/pkg/metrics"
	"github.com/hazcod/hearth/pkg/storage/memory"
	"github.com/hazcod/hearth/pkg/useragent"
	"github.com/hazcod/hearth/pkg/verdict"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	HouseholdID = "home"
	Phrase      = "my home is where my screen is"

	UAMacChrome     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	UAAndroidChrome = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
)

type Env struct {
	Logger    *logrus.Logger
	Hook      *test.Hook
	Store     *memory.InMemoryStore
	Metrics   *metrics.Metrics
	Service   *household.Service
	Collector *collector.Collector
}

// New returns a service over an empty memory store.
func New(t *testing.T) *Env {
	t.Helper()

	logger, hook := test.NewNullLogger()

	store := &memory.InMemoryStore{}
	require.NoError(t, store.Init(logger, nil))

	policy, err := verdict.NewPolicy(verdict.PolicyWeighted, verdict.Options{})
	require.NoError(t, err)

	m := metrics.New()

	return &Env{
		Logger:  logger,
		Hook:    hook,
		Store:   store,
		Metrics: m,
		Service: household.NewService(logger, store, verdict.NewEngine(policy), m),
		Collector: collector.New(logger, useragent.RulesParser{}, collector.RequestIPResolver{}, nil, collector.Options{
			Phrase:        Phrase,
			ReadingBuffer: 2 * time.Second,
		}),
	}
}
