package oidc

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/csrf"
	"github.com/google/uuid"
	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const stateLifetime = 15 * time.Minute

type Config struct {
	ProviderURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Provider signs administrators in through an OpenID Connect identity provider
type Provider struct {
	logger       *logrus.Logger
	config       *Config
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier

	loginTemplate *template.Template

	stateMutex sync.Mutex
	states     map[string]time.Time
}

// NewProvider creates an OIDC provider; Initialize must be called before use
func NewProvider(logger *logrus.Logger) *Provider {
	return &Provider{
		logger:        logger,
		loginTemplate: template.Must(template.New("login").Parse(oidcLoginPage)),
		states:        make(map[string]time.Time),
	}
}

func requireString(config map[string]interface{}, key string) (string, error) {
	value, ok := config[key].(string)
	if !ok || value == "" {
		return "", errors.New(key + " must be provided")
	}
	return value, nil
}

// Initialize discovers the issuer and prepares the OAuth2 client
func (p *Provider) Initialize(logger *logrus.Logger, config map[string]interface{}) error {
	p.logger = logger

	cfg := &Config{Scopes: []string{oidc.ScopeOpenID, "profile", "email"}}

	var err error
	if cfg.ProviderURL, err = requireString(config, "provider_url"); err != nil {
		return err
	}
	if cfg.ClientID, err = requireString(config, "client_id"); err != nil {
		return err
	}
	if cfg.ClientSecret, err = requireString(config, "client_secret"); err != nil {
		return err
	}
	if cfg.RedirectURL, err = requireString(config, "redirect_url"); err != nil {
		return err
	}

	if scopes, ok := config["scopes"].([]interface{}); ok {
		cfg.Scopes = []string{oidc.ScopeOpenID}
		for _, s := range scopes {
			if scope, ok := s.(string); ok && scope != oidc.ScopeOpenID {
				cfg.Scopes = append(cfg.Scopes, scope)
			}
		}
	}

	provider, err := oidc.NewProvider(context.Background(), cfg.ProviderURL)
	if err != nil {
		return err
	}

	p.config = cfg
	p.provider = provider
	p.oauth2Config = oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Scopes,
	}
	p.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})

	return nil
}

// Authenticate is not supported, passwords never reach this service
func (p *Provider) Authenticate(string, string) (*models.User, error) {
	return nil, errors.New("direct authentication not supported with OIDC")
}

// HandleLogin sends the browser to the identity provider
func (p *Provider) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := p.issueState()
		http.Redirect(w, r, p.oauth2Config.AuthCodeURL(state), http.StatusFound)
	}
}

// HandleCallback exchanges the code, verifies the ID token and signs the administrator in
func (p *Provider) HandleCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.URL.Query().Get("state")
		if !p.consumeState(state) {
			p.logger.WithField("state", state).Error("Invalid or expired state")
			http.Error(w, "Invalid state", http.StatusBadRequest)
			return
		}

		ctx := r.Context()

		oauth2Token, err := p.oauth2Config.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			p.logger.WithError(err).Error("Failed to exchange code for token")
			http.Error(w, "Failed to exchange code for token", http.StatusInternalServerError)
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			p.logger.Error("No ID token found in OAuth2 token")
			http.Error(w, "No ID token found", http.StatusInternalServerError)
			return
		}

		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			p.logger.WithError(err).Error("Failed to verify ID token")
			http.Error(w, "Failed to verify ID token", http.StatusInternalServerError)
			return
		}

		var claims struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
			p.logger.WithError(err).Error("ID token carries no email claim")
			http.Error(w, "Failed to parse ID token claims", http.StatusInternalServerError)
			return
		}

		user := &models.User{
			Email: claims.Email,
			Roles: []string{models.RoleAdmin},
		}

		if err := session.SetUser(w, r, user); err != nil {
			p.logger.WithError(err).Error("Failed to create session")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
	}
}

// RenderLoginPage shows the single sign-on button
func (p *Provider) RenderLoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, _ := session.GetUser(r); user != nil {
			http.Redirect(w, r, "/admin/", http.StatusSeeOther)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		if err := p.loginTemplate.Execute(w, map[string]interface{}{csrf.TemplateTag: csrf.TemplateField(r)}); err != nil {
			p.logger.WithError(err).Error("Failed to render login template")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// HandleLogout clears the administrator from the session
func (p *Provider) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := session.ClearSession(w, r); err != nil {
			p.logger.WithError(err).Error("Failed to clear session")
			http.Error(w, "Failed to logout", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	}
}

// Middleware only lets signed in administrators through
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return session.RequireAdmin(p.logger, next)
}

// issueState creates a single use state value and drops expired ones.
func (p *Provider) issueState() string {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()

	now := time.Now()
	for state, expiry := range p.states {
		if now.After(expiry) {
			delete(p.states, state)
		}
	}

	state := uuid.NewString()
	p.states[state] = now.Add(stateLifetime)

	return state
}

func (p *Provider) consumeState(state string) bool {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()

	expiry, ok := p.states[state]
	if !ok {
		return false
	}
	delete(p.states, state)

	return time.Now().Before(expiry)
}

const oidcLoginPage = `<!DOCTYPE html>
<html lang="en" data-bs-theme="auto">
<head>
    <meta charset="utf-8">
    <title>Admin login - Hearth</title>
    <link href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.7/dist/css/bootstrap.min.css" rel="stylesheet" integrity="sha384-LN+7fdVzj6u52u30Kp6M/trliBMCMKTyK833zpbD+pXdCLuTusPj697FH4R/5mcr" crossorigin="anonymous">
</head>
<body class="bg-body-tertiary d-flex align-items-center" style="min-height: 100vh">
    <main class="container" style="max-width: 400px">
        <div class="card shadow-sm">
            <div class="card-body p-4">
                <h3 class="card-title text-center">Hearth admin</h3>
                <form method="POST" action="/auth/login">
                    {{ .csrfField }}
                    <button type="submit" class="btn btn-primary w-100 mt-3">Sign in with SSO</button>
                </form>
            </div>
        </div>
    </main>
</body>
</html>
`
