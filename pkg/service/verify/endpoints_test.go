package verify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazcod/hearth/pkg/service/enroll"
	"github.com/hazcod/hearth/pkg/service/servicetest"
	"github.com/hazcod/hearth/pkg/verdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostBody = `{"resolution":"2560x1440","geolocation":{"latitude":-6.2088,"longitude":106.8456,"accuracy":25},"typing_ms":9250}`

func send(t *testing.T, h http.HandlerFunc, ua, remote, body string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/api/household/verify", strings.NewReader(body))
	r.Header.Set("User-Agent", ua)
	r.RemoteAddr = remote

	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

func TestHandleVerify(t *testing.T) {
	env := servicetest.New(t)
	verify := HandleVerify(env.Logger, env.Service, env.Collector, servicetest.HouseholdID)

	rec := send(t, verify, servicetest.UAMacChrome, "203.0.113.7:1", hostBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	enrolled := send(t, enroll.HandleEnroll(env.Logger, env.Service, env.Collector, servicetest.HouseholdID),
		servicetest.UAMacChrome, "203.0.113.7:1", hostBody)
	require.Equal(t, http.StatusCreated, enrolled.Code)

	rec = send(t, verify, servicetest.UAMacChrome, "203.0.113.7:2", hostBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, verdict.Granted, resp.Result.Verdict)
	assert.Nil(t, resp.Result.Offer)

	tokyo := `{"resolution":"412x915","geolocation":{"latitude":35.6762,"longitude":139.6503},"typing_ms":2500}`
	rec = send(t, verify, servicetest.UAAndroidChrome, "198.51.100.9:3", tokyo)
	require.Equal(t, http.StatusOK, rec.Code)

	resp = response{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, verdict.Blocked, resp.Result.Verdict)
	require.NotNil(t, resp.Result.Offer)
	assert.Greater(t, resp.Result.DistanceKm, 5000.0)
}

func TestHandleVerifyStalls(t *testing.T) {
	env := servicetest.New(t)
	verify := HandleVerify(env.Logger, env.Service, env.Collector, servicetest.HouseholdID)

	rec := send(t, verify, servicetest.UAMacChrome, "203.0.113.7:1", `{"typing_ms":9000}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = send(t, verify, "", "203.0.113.7:1", hostBody)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleVerifyMethod(t *testing.T) {
	env := servicetest.New(t)

	rec := httptest.NewRecorder()
	HandleVerify(env.Logger, env.Service, env.Collector, servicetest.HouseholdID)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
