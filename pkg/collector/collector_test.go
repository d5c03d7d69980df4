package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/typing"
	"github.com/hazcod/hearth/pkg/useragent"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const uaMacChrome = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fakeLookup struct {
	ip    string
	calls int
}

func (f *fakeLookup) PublicIP(context.Context) string {
	f.calls++
	return f.ip
}

type fakeCountries map[string]string

func (f fakeCountries) Country(ip string) (string, error) {
	if cc, ok := f[ip]; ok {
		return cc, nil
	}
	return "", errors.New("not found")
}

func newCollector(t *testing.T, ips IPResolver, countries CountryResolver) *Collector {
	t.Helper()

	logger, _ := test.NewNullLogger()
	return New(logger, useragent.RulesParser{}, ips, countries, Options{
		Phrase:        "abcdefghij",
		ReadingBuffer: 2 * time.Second,
	})
}

func validInput() Input {
	return Input{
		RequestIP:     "203.0.113.7",
		UserAgent:     uaMacChrome,
		Resolution:    "2560x1440",
		Geolocation:   &models.Geolocation{Latitude: -6.2, Longitude: 106.8, Accuracy: 30},
		TypedText:     "ABCDEFGHIJ",
		TypingElapsed: 8 * time.Second,
	}
}

func TestCollectReady(t *testing.T) {
	c := newCollector(t, RequestIPResolver{}, fakeCountries{"203.0.113.7": "ID"})

	attempt, err := c.Collect(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, attempt.Ready())
	assert.Equal(t, models.Sample{
		IP:          "203.0.113.7",
		IPCountry:   "ID",
		OS:          "macOS",
		Browser:     "Chrome",
		DeviceClass: models.DeviceClassDesktop,
		Resolution:  "2560x1440",
		TypingSpeed: 100,
		Latitude:    -6.2,
		Longitude:   106.8,
	}, attempt.Sample)
}

func TestCollectStallsWithoutGeolocation(t *testing.T) {
	c := newCollector(t, RequestIPResolver{}, nil)

	in := validInput()
	in.Geolocation = nil

	attempt, err := c.Collect(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, PhaseStalled, attempt.Phase)
	assert.False(t, attempt.Ready())
	assert.NotEmpty(t, attempt.Reason)
}

func TestCollectRejectsInvalidReadings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
	}{
		{"zero coordinates", func(in *Input) { in.Geolocation = &models.Geolocation{} }},
		{"out of range coordinates", func(in *Input) { in.Geolocation = &models.Geolocation{Latitude: 95, Longitude: 10} }},
		{"empty user agent", func(in *Input) { in.UserAgent = "  " }},
		{"malformed resolution", func(in *Input) { in.Resolution = "wide" }},
		{"wrong phrase", func(in *Input) { in.TypedText = "something else" }},
		{"no typing duration", func(in *Input) { in.TypingElapsed = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCollector(t, RequestIPResolver{}, nil)

			in := validInput()
			tc.mutate(&in)

			attempt, err := c.Collect(context.Background(), in)
			assert.Nil(t, attempt)
			assert.ErrorIs(t, err, ErrInvalidReading)
		})
	}

	t.Run("phrase mismatch keeps its cause", func(t *testing.T) {
		c := newCollector(t, RequestIPResolver{}, nil)
		in := validInput()
		in.TypedText = "nope"

		_, err := c.Collect(context.Background(), in)
		assert.ErrorIs(t, err, typing.ErrPhraseMismatch)
	})
}

func TestCollectDefaults(t *testing.T) {
	c := newCollector(t, RequestIPResolver{}, fakeCountries{})

	in := validInput()
	in.Resolution = ""
	in.TypedText = ""
	in.RequestIP = "not-an-ip"

	attempt, err := c.Collect(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.UnknownResolution, attempt.Sample.Resolution)
	assert.Equal(t, models.UnknownIP, attempt.Sample.IP)
	assert.Empty(t, attempt.Sample.IPCountry)
}

func TestEchoResolver(t *testing.T) {
	lookup := &fakeLookup{ip: "198.51.100.4"}
	c := newCollector(t, EchoIPResolver{Lookup: lookup}, nil)

	attempt, err := c.Collect(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.4", attempt.Sample.IP)
	assert.Equal(t, 1, lookup.calls)
}

func TestClientIPIgnoresForwardingHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.20:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.Header.Set("X-Real-IP", "203.0.113.7")

	assert.Equal(t, "198.51.100.20", ClientIP(r))

	var none TrustedProxies
	assert.Equal(t, "198.51.100.20", none.ClientIP(r))
}

func TestTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1", "2001:db8::/32"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		xff    []string
		realIP string
		want   string
	}{
		{name: "untrusted peer keeps its own address", remote: "198.51.100.20:5555", xff: []string{"203.0.113.7"}, want: "198.51.100.20"},
		{name: "trusted peer forwards client", remote: "10.1.2.3:443", xff: []string{"203.0.113.7"}, want: "203.0.113.7"},
		{name: "spoofed left hop is skipped", remote: "10.1.2.3:443", xff: []string{"203.0.113.7, 198.51.100.9"}, want: "198.51.100.9"},
		{name: "trusted hops are walked past", remote: "192.0.2.1:443", xff: []string{"198.51.100.9", "10.0.0.5"}, want: "198.51.100.9"},
		{name: "all hops trusted", remote: "10.1.2.3:443", xff: []string{"10.0.0.7, 10.0.0.5"}, want: "10.0.0.7"},
		{name: "real ip header", remote: "10.1.2.3:443", realIP: "203.0.113.8", want: "203.0.113.8"},
		{name: "garbage header falls back to peer", remote: "10.1.2.3:443", realIP: "nope", want: "10.1.2.3"},
		{name: "ipv6 proxy", remote: "[2001:db8::1]:443", xff: []string{"203.0.113.7"}, want: "203.0.113.7"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}

			assert.Equal(t, tc.want, proxies.ClientIP(r))
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)

	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestTrustedProxiesMiddleware(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	var seen string
	handler := proxies.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:443"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "203.0.113.7", seen)

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "198.51.100.20:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "198.51.100.20", seen)
}
