// Package local signs administrators in with bcrypt hashes listed in the config file.
package local

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/csrf"
	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials hides whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is one entry of auth.properties.users. Entries without roles are admins.
type Admin struct {
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"`
	Roles        []string `yaml:"roles"`
}

// Provider authenticates administrators against bcrypt hashes from the configuration
type Provider struct {
	logger        *logrus.Logger
	admins        map[string]Admin
	loginTemplate *template.Template
}

// unknownUserHash is compared against for unknown emails so both paths cost a bcrypt round.
var unknownUserHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hearth-unknown-user"), bcrypt.DefaultCost)
	return hash
})

// NewProvider creates a local provider; Initialize loads the administrators
func NewProvider(logger *logrus.Logger) *Provider {
	return &Provider{
		logger:        logger,
		loginTemplate: template.Must(template.New("login").Parse(loginTmpl)),
	}
}

// Initialize reads the users list. Entries missing an email or hash are skipped.
func (p *Provider) Initialize(logger *logrus.Logger, config map[string]interface{}) error {
	p.logger = logger

	raw, ok := config["users"]
	if !ok {
		return errors.New("users configuration must be provided")
	}

	blob, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("could not read users configuration: %w", err)
	}

	var admins []Admin
	if err := yaml.Unmarshal(blob, &admins); err != nil {
		return fmt.Errorf("could not parse users configuration: %w", err)
	}

	p.admins = make(map[string]Admin, len(admins))
	for i, admin := range admins {
		admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
		if admin.Email == "" || admin.PasswordHash == "" {
			p.logger.WithField("index", i).Warn("skipping local user without email or password_hash")
			continue
		}

		if len(admin.Roles) == 0 {
			admin.Roles = []string{models.RoleAdmin}
		}

		p.admins[admin.Email] = admin
	}

	if len(p.admins) == 0 {
		return errors.New("no valid users found in configuration")
	}

	p.logger.WithField("users", len(p.admins)).Debug("loaded local administrators")

	return nil
}

// Authenticate checks the password of the administrator with the given email
func (p *Provider) Authenticate(email, password string) (*models.User, error) {
	admin, ok := p.admins[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(unknownUserHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &models.User{Email: admin.Email, Roles: admin.Roles}, nil
}

// HandleLogin signs the administrator in from the login form
func (p *Provider) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.FormValue("username")
		logger := p.logger.WithField("email", email)

		user, err := p.Authenticate(email, r.FormValue("password"))
		if err != nil {
			logger.WithError(err).Info("admin sign in refused")
			http.Redirect(w, r, "/auth/login?error=Invalid+credentials", http.StatusSeeOther)
			return
		}

		if err := session.SetUser(w, r, user); err != nil {
			logger.WithError(err).Error("could not store admin session")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		logger.WithField("roles", user.Roles).Info("admin signed in")
		http.Redirect(w, r, "/admin/", http.StatusSeeOther)
	}
}

// HandleCallback has nothing to do for form based sign in
func (p *Provider) HandleCallback() http.HandlerFunc {
	return http.NotFound
}

// HandleLogout forgets the administrator but keeps any host claim of the browser
func (p *Provider) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := session.ClearSession(w, r); err != nil {
			p.logger.WithError(err).Error("could not clear admin session")
			http.Error(w, "Failed to logout", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
	}
}

// RenderLoginPage shows the form, or skips it for administrators already signed in
func (p *Provider) RenderLoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, _ := session.GetUser(r); user.HasRole(models.RoleAdmin) {
			http.Redirect(w, r, "/admin/", http.StatusSeeOther)
			return
		}

		data := map[string]interface{}{
			"Error":          r.URL.Query().Get("error"),
			csrf.TemplateTag: csrf.TemplateField(r),
		}

		w.Header().Set("Content-Type", "text/html")
		if err := p.loginTemplate.Execute(w, data); err != nil {
			p.logger.WithError(err).Error("could not render login page")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// Middleware only lets signed in administrators through
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return session.RequireAdmin(p.logger, next)
}

const loginTmpl = `<!DOCTYPE html>
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
                <h3 class="card-title text-center mb-4">Hearth admin</h3>
                <p class="text-body-secondary small text-center">Sign in to reset the household baseline.</p>
                {{if .Error}}<div class="alert alert-danger" role="alert">{{.Error}}</div>{{end}}
                <form method="POST" action="/auth/login">
                    {{ .csrfField }}
                    <div class="mb-3">
                        <label for="username" class="form-label">Email</label>
                        <input type="email" class="form-control" id="username" name="username" required autofocus>
                    </div>
                    <div class="mb-3">
                        <label for="password" class="form-label">Password</label>
                        <input type="password" class="form-control" id="password" name="password" required>
                    </div>
                    <button type="submit" class="btn btn-primary w-100 mt-3">Sign in</button>
                </form>
            </div>
        </div>
    </main>
</body>
</html>
`
