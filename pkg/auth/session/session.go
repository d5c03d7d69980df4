package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	// SessionName is the name of the session cookie
	SessionName = "hearth-session"
	// UserKey holds the signed in administrator
	UserKey = "user"
	// HostKey holds the claim of the browser that enrolled a household
	HostKey = "host"
)

var (
	// Store is the session store
	Store *sessions.CookieStore
)

// Initialize sets up the session store
func Initialize(sessionSecret string, devMode bool) {
	gob.Register(&models.User{})
	gob.Register(&models.HostClaim{})

	sameSiteMode := http.SameSiteStrictMode
	if devMode {
		sameSiteMode = http.SameSiteLaxMode
	}

	Store = sessions.NewCookieStore([]byte(sessionSecret))
	Store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   !devMode,
		SameSite: sameSiteMode,
	}
}

// GetUser retrieves the currently authenticated administrator from the session
func GetUser(r *http.Request) (*models.User, error) {
	session, err := Store.Get(r, SessionName)
	if err != nil {
		return nil, err
	}

	user, ok := session.Values[UserKey].(*models.User)
	if !ok {
		return nil, nil
	}

	return user, nil
}

// SetUser stores the administrator in the session
func SetUser(w http.ResponseWriter, r *http.Request, user *models.User) error {
	return set(w, r, UserKey, user)
}

// ClearSession signs the administrator out. A host claim survives logout.
func ClearSession(w http.ResponseWriter, r *http.Request) error {
	return set(w, r, UserKey, nil)
}

// GetHost returns the host claim of this browser, if it enrolled a household.
func GetHost(r *http.Request) (*models.HostClaim, error) {
	session, err := Store.Get(r, SessionName)
	if err != nil {
		return nil, err
	}

	claim, ok := session.Values[HostKey].(*models.HostClaim)
	if !ok {
		return nil, nil
	}

	return claim, nil
}

// SetHost marks this browser as the one that enrolled the household in claim
func SetHost(w http.ResponseWriter, r *http.Request, claim *models.HostClaim) error {
	return set(w, r, HostKey, claim)
}

// ClearHost drops the host claim, e.g. after the baseline it names was reset
func ClearHost(w http.ResponseWriter, r *http.Request) error {
	return set(w, r, HostKey, nil)
}

// RequireAdmin redirects anonymous requests to the login page and refuses signed in
// users without the admin role.
func RequireAdmin(logger *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := GetUser(r)
		if err != nil {
			logger.WithError(err).Error("Error retrieving session")
		}

		if user == nil {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}

		if !user.HasRole(models.RoleAdmin) {
			logger.WithField("email", user.Email).Warn("refusing admin page to user without admin role")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func set(w http.ResponseWriter, r *http.Request, key string, value interface{}) error {
	session, err := Store.Get(r, SessionName)
	if err != nil {
		return err
	}

	if value == nil {
		delete(session.Values, key)
	} else {
		session.Values[key] = value
	}

	return session.Save(r, w)
}
