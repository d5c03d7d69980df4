package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	gorillamux "github.com/gorilla/mux"
	"github.com/hazcod/hearth/config"
	"github.com/hazcod/hearth/pkg/app"
	"github.com/hazcod/hearth/pkg/auth"
	"github.com/hazcod/hearth/pkg/auth/session"
	"github.com/hazcod/hearth/pkg/service/admin"
	"github.com/hazcod/hearth/pkg/service/enroll"
	"github.com/hazcod/hearth/pkg/service/health"
	"github.com/hazcod/hearth/pkg/service/verify"
	"github.com/hazcod/hearth/pkg/service/web"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logrus.New()

	cfgPath := flag.String("config", "", "path to config file")
	logLevel := flag.String("log", "", "log level")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("error loading config")
	}

	levelToUse := cfg.Log.Level
	if *logLevel != "" {
		levelToUse = *logLevel
	}

	logrusLevel, err := logrus.ParseLevel(levelToUse)
	if err != nil {
		logger.WithError(err).Fatal("error parsing log level")
	}

	logger.WithField("level", logrusLevel.String()).Info("set log level")
	logger.SetLevel(logrusLevel)

	// --

	devMode := cfg.HTTP.Interface == "127.0.0.1" || cfg.HTTP.Interface == "localhost"

	a, err := app.New(logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("error building household verification")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.WithError(err).Error("error releasing resources")
		}
	}()

	var authProvider auth.Provider
	if cfg.Auth.Type != "" {
		authProperties := make(map[string]interface{})
		for k, v := range cfg.Auth.Properties {
			authProperties[k] = v
		}
		authProperties["secret"] = cfg.Auth.Secret

		authProvider, err = auth.GetProvider(logger, cfg.Auth.Type, devMode, authProperties)
		if err != nil {
			logger.WithError(err).Fatal("error initializing authentication provider")
		}
		logger.WithField("provider", cfg.Auth.Type).Info("registered authentication provider")
	} else {
		session.Initialize(cfg.Auth.Secret, devMode)
		logger.Warn("no auth provider configured, admin pages are disabled")
	}

	if cfg.HTTP.APIToken == "" {
		logger.Info("no api token configured, household api will refuse every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Interface, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           newRouter(logger, cfg, a, authProvider, devMode),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("listener", addr).WithField("dev_mode", devMode).Info("started server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
	}
}

func csrfMiddleware(logger *logrus.Logger, cfg *config.Config, devMode bool) func(http.Handler) http.Handler {
	sameSiteMode := csrf.SameSiteStrictMode
	if devMode {
		sameSiteMode = csrf.SameSiteLaxMode
	}

	csrfOptions := []csrf.Option{
		csrf.Secure(!devMode),
		csrf.CookieName("csrf"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.Path("/"),
		csrf.FieldName("csrf"),
		csrf.SameSite(sameSiteMode),
		csrf.MaxAge(3600),
	}

	if origin, err := url.Parse(cfg.HTTP.Origin); err == nil && origin.Host != "" {
		csrfOptions = append(csrfOptions, csrf.TrustedOrigins([]string{origin.Host}))
		logger.WithField("origin", origin.Host).Info("CSRF trusted origin configured")
	}

	return csrf.Protect([]byte(cfg.Auth.Secret), csrfOptions...)
}

func newRouter(logger *logrus.Logger, cfg *config.Config, a *app.App, authProvider auth.Provider, devMode bool) http.Handler {
	mux := gorillamux.NewRouter()

	// Machine endpoints, authenticated by bearer token instead of session and CSRF
	api := mux.PathPrefix("/api/").Subrouter()
	api.Handle("/health", health.HandleHealthCheck(logger, a.Store)).Methods(http.MethodGet)

	tokenAuth := auth.BearerToken(logger, cfg.HTTP.APIToken)
	api.Handle("/household", tokenAuth(enroll.HandleGetBaseline(logger, a.Household, a.HouseholdID))).Methods(http.MethodGet)
	api.Handle("/household/enroll", tokenAuth(enroll.HandleEnroll(logger, a.Household, a.Collector, a.HouseholdID))).Methods(http.MethodPost)
	api.Handle("/household/verify", tokenAuth(verify.HandleVerify(logger, a.Household, a.Collector, a.HouseholdID))).Methods(http.MethodPost)

	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)
	}

	protected := mux.PathPrefix("/").Subrouter()
	if !devMode {
		protected.Use(csrfMiddleware(logger, cfg, devMode))
	}

	protected.Path("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/household/", http.StatusSeeOther)
	})

	protected.Path("/household/").Handler(web.GetHouseholdPage(logger, a.Household, a.Collector, a.HouseholdID))
	protected.Path("/household/enroll").Handler(web.PostEnroll(logger, a.Household, a.Collector, a.HouseholdID))
	protected.Path("/household/verify").Handler(web.PostVerify(logger, a.Household, a.Collector, a.HouseholdID))
	protected.PathPrefix("/static/").Handler(web.GetStaticFile(logger))

	if authProvider == nil {
		return cfg.Proxies().Middleware(mux)
	}

	protected.PathPrefix("/auth/").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			switch r.Method {
			case http.MethodGet:
				authProvider.RenderLoginPage().ServeHTTP(w, r)
			case http.MethodPost:
				authProvider.HandleLogin().ServeHTTP(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		case "/auth/logout":
			authProvider.HandleLogout().ServeHTTP(w, r)
		case "/auth/callback":
			authProvider.HandleCallback().ServeHTTP(w, r)
		default:
			logger.WithField("path", r.URL.Path).Warn("unknown auth endpoint")
			http.NotFound(w, r)
		}
	}))

	protected.PathPrefix("/admin/").Handler(authProvider.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/":
			web.GetAdminPage(logger, a.Household, a.HouseholdID).ServeHTTP(w, r)
		case "/admin/reset":
			admin.HandleReset(logger, a.Household, a.HouseholdID).ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})))

	return cfg.Proxies().Middleware(mux)
}
