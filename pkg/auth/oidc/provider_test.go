package oidc

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestInitializeRequiresSettings(t *testing.T) {
	logger, _ := test.NewNullLogger()

	complete := map[string]interface{}{
		"provider_url":  "https://idp.example.com",
		"client_id":     "hearth",
		"client_secret": "secret",
		"redirect_url":  "https://hearth.example.com/auth/callback",
	}

	for _, missing := range []string{"provider_url", "client_id", "client_secret", "redirect_url"} {
		config := map[string]interface{}{}
		for k, v := range complete {
			if k != missing {
				config[k] = v
			}
		}

		err := NewProvider(logger).Initialize(logger, config)
		assert.EqualError(t, err, missing+" must be provided")
	}
}

func TestStateIsSingleUse(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := NewProvider(logger)

	state := p.issueState()
	assert.NotEqual(t, state, p.issueState())

	assert.True(t, p.consumeState(state))
	assert.False(t, p.consumeState(state))
	assert.False(t, p.consumeState("forged"))
}

func TestExpiredStatesAreRejectedAndPruned(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := NewProvider(logger)

	p.states["old"] = time.Now().Add(-time.Minute)
	assert.False(t, p.consumeState("old"))

	p.states["stale"] = time.Now().Add(-time.Minute)
	p.issueState()
	assert.NotContains(t, p.states, "stale")
	assert.Len(t, p.states, 1)
}
