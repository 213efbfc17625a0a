package serverapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/k9ert/rbac-poc/internal/account"
	"github.com/k9ert/rbac-poc/internal/config"
	"github.com/k9ert/rbac-poc/internal/device"
	"github.com/k9ert/rbac-poc/internal/httpmw"
	"github.com/k9ert/rbac-poc/internal/kratos"
	"github.com/k9ert/rbac-poc/internal/record"
	"github.com/k9ert/rbac-poc/internal/session"
	"github.com/k9ert/rbac-poc/internal/telemetry"
	"github.com/k9ert/rbac-poc/internal/webapp"
	staticfiles "github.com/k9ert/rbac-poc/static"
)

type Options struct {
	Config *config.Config
	Logger *log.Logger
}

var apiEndpoints = []string{
	"GET /health",
	"GET /api/accounts",
	"POST /api/accounts",
	"GET /api/accounts/:id",
	"PUT /api/accounts/:id",
	"GET /api/devices",
	"POST /api/devices",
	"GET /api/devices/:id",
	"PUT /api/devices/:id",
}

// NewAPIHandler builds the session-gated resource API: health, readiness,
// metrics, and the account/device endpoints behind the session validator.
func NewAPIHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	cfg := opts.Config

	client := kratos.NewClient(cfg, opts.Logger)
	metrics := telemetry.New("admin-api")
	validator := session.NewValidator(client, metrics, opts.Logger)

	accountStore, err := record.NewStore(filepath.Join(cfg.DataDir, "accounts"))
	if err != nil {
		return nil, err
	}
	deviceStore, err := record.NewStore(filepath.Join(cfg.DataDir, "devices"))
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "RBAC POC Admin API",
		})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := accountStore.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "account storage unavailable",
			})
			return
		}
		if err := deviceStore.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "device storage unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "RBAC POC Admin API",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(validator.RequireAPI)
		account.NewHandler(accountStore, opts.Logger).Register(pr)
		device.NewHandler(deviceStore, opts.Logger).Register(pr)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success":            false,
			"error":              "Endpoint not found",
			"availableEndpoints": apiEndpoints,
		})
	})

	return httpmw.Chain(
		r,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
		httpmw.WithCORS(cfg.WebAppOrigin),
		metrics.Middleware,
	), nil
}

// NewWebAppHandler builds the browser front end: dashboard, login-flow
// bridge, logout bridge and static assets.
func NewWebAppHandler(opts Options) (http.Handler, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	cfg := opts.Config

	client := kratos.NewClient(cfg, opts.Logger)
	web := webapp.NewHandler(client, cfg.OIDCProvider, opts.Logger)

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticfiles.EmbeddedFS()))))
	mux.HandleFunc("/", web.Home)
	mux.HandleFunc("/login", web.Login)
	mux.HandleFunc("/logout", web.Logout)
	mux.HandleFunc("/health", web.Health)

	return httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
