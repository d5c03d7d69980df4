package auth

import (
	"net/http"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
)

// Provider authenticates administrators who may reset household baselines.
type Provider interface {
	Initialize(logger *logrus.Logger, config map[string]interface{}) error

	// Authenticate verifies credentials and returns the administrator
	Authenticate(username, password string) (*models.User, error)

	HandleLogin() http.HandlerFunc
	HandleLogout() http.HandlerFunc
	RenderLoginPage() http.HandlerFunc

	// HandleCallback is only meaningful for redirect based schemes
	HandleCallback() http.HandlerFunc

	// Middleware redirects unauthenticated requests to the login page
	Middleware(next http.Handler) http.Handler
}
