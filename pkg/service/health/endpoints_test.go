package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazcod/hearth/pkg/storage/memory"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downStore struct {
	memory.InMemoryStore
}

func (*downStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealthCheck(t *testing.T) {
	logger, _ := test.NewNullLogger()

	store := &memory.InMemoryStore{}
	require.NoError(t, store.Init(logger, nil))

	rec := httptest.NewRecorder()
	HandleHealthCheck(logger, store)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	rec = httptest.NewRecorder()
	HandleHealthCheck(logger, &downStore{})(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	HandleHealthCheck(logger, store)(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
