package auth

import (
	"errors"
	"fmt"

	"github.com/hazcod/hearth/pkg/auth/local"
	"github.com/hazcod/hearth/pkg/auth/oidc"
	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// GetProvider returns an authentication provider based on the specified type
func GetProvider(logger *logrus.Logger, providerType string, devMode bool, properties map[string]interface{}) (Provider, error) {
	sessionSecret, ok := properties["secret"].(string)
	if !ok || sessionSecret == "" {
		return nil, errors.New("property 'secret' is required")
	}

	session.Initialize(sessionSecret, devMode)

	var provider Provider
	switch providerType {
	case "local":
		provider = local.NewProvider(logger)
	case "oidc":
		provider = oidc.NewProvider(logger)
	default:
		return nil, fmt.Errorf("unsupported auth provider type: %s", providerType)
	}

	if err := provider.Initialize(logger, properties); err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", providerType, err)
	}

	return provider, nil
}

// GeneratePasswordHash generates a bcrypt hash for the local provider configuration
func GeneratePasswordHash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("could not hash password: %w", err)
	}

	return string(hash), nil
}
