package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static/js/*.js
var staticFS embed.FS

var (
	householdTmpl = template.Must(template.ParseFS(templateFS, "templates/base.tmpl", "templates/household.tmpl"))
	verdictTmpl   = template.Must(template.ParseFS(templateFS, "templates/base.tmpl", "templates/verdict.tmpl"))
	adminTmpl     = template.Must(template.ParseFS(templateFS, "templates/base.tmpl", "templates/admin.tmpl"))
)

// GetStaticFile serves the embedded client scripts.
func GetStaticFile(logger *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		filePath := strings.TrimPrefix(r.URL.Path, "/static/")

		data, err := staticFS.ReadFile("static/" + filePath)
		if err != nil {
			logger.WithError(err).WithField("file", filePath).Debug("error reading static file")
			http.NotFound(w, r)
			return
		}

		if strings.HasSuffix(filePath, ".js") {
			w.Header().Set("Content-Type", "application/javascript")
		}

		_, _ = w.Write(data)
	}
}

type baseData struct {
	Title       string
	Username    string
	CurrentPage string
	CSRFField   template.HTML
}

func newBase(r *http.Request, title, page string) baseData {
	data := baseData{
		Title:       title,
		CurrentPage: page,
		CSRFField:   csrf.TemplateField(r),
	}

	if user, _ := session.GetUser(r); user != nil {
		data.Username = user.Email
	}

	return data
}

// render executes into a buffer first so a template error never leaves a half page.
func render(logger *logrus.Logger, w http.ResponseWriter, tmpl *template.Template, status int, data interface{}) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.tmpl", data); err != nil {
		logger.WithError(err).Error("error rendering template")
		http.Error(w, "Template Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
