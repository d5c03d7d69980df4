package local

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()

	session.Initialize("0123456789abcdef0123456789abcdef", true)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	p := NewProvider(logger)
	require.NoError(t, p.Initialize(logger, map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"email": "admin@example.com", "password_hash": string(hash), "roles": []interface{}{"admin"}},
			map[string]interface{}{"email": "nohash@example.com"},
		},
	}))

	return p
}

func TestInitializeRequiresUsers(t *testing.T) {
	logger, _ := test.NewNullLogger()

	assert.Error(t, NewProvider(logger).Initialize(logger, map[string]interface{}{}))
	assert.Error(t, NewProvider(logger).Initialize(logger, map[string]interface{}{
		"users": []interface{}{map[string]interface{}{"email": "a@example.com"}},
	}))
}

func TestAuthenticate(t *testing.T) {
	p := newProvider(t)

	user, err := p.Authenticate("admin@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, user.Roles)

	_, err = p.Authenticate("admin@example.com", "wrong")
	assert.Error(t, err)

	_, err = p.Authenticate("nohash@example.com", "")
	assert.Error(t, err)
}

func TestLoginFlow(t *testing.T) {
	p := newProvider(t)

	form := url.Values{"username": {"admin@example.com"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	p.HandleLogin()(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))

	protected := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	for _, c := range rec.Result().Cookies() {
		protected.AddCookie(c)
	}

	rec = httptest.NewRecorder()
	p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, protected)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddlewareRedirectsAnonymous(t *testing.T) {
	p := newProvider(t)

	rec := httptest.NewRecorder()
	p.Middleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestFailedLoginRedirectsWithError(t *testing.T) {
	p := newProvider(t)

	form := url.Values{"username": {"admin@example.com"}, "password": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	p.HandleLogin()(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=")
}

func TestRolesDefaultToAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	p := NewProvider(logger)
	require.NoError(t, p.Initialize(logger, map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"email": " Host@Example.com ", "password_hash": string(hash)},
			map[string]interface{}{"email": "viewer@example.com", "password_hash": string(hash), "roles": []interface{}{"viewer"}},
		},
	}))

	user, err := p.Authenticate("host@example.com", "hunter2")
	require.NoError(t, err)
	assert.True(t, user.HasRole(models.RoleAdmin))

	user, err = p.Authenticate("viewer@example.com", "hunter2")
	require.NoError(t, err)
	assert.False(t, user.HasRole(models.RoleAdmin))
}

func TestUnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	p := newProvider(t)

	_, unknown := p.Authenticate("stranger@example.com", "hunter2")
	_, wrong := p.Authenticate("admin@example.com", "nope")

	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, ErrInvalidCredentials)
	assert.Equal(t, unknown.Error(), wrong.Error())
}

func TestMiddlewareRefusesNonAdmins(t *testing.T) {
	p := newProvider(t)

	rec := httptest.NewRecorder()
	require.NoError(t, session.SetUser(rec, httptest.NewRequest(http.MethodGet, "/", nil), &models.User{Email: "viewer@example.com", Roles: []string{"viewer"}}))

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	rec = httptest.NewRecorder()
	p.Middleware(http.NotFoundHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
