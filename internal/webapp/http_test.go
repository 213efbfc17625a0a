package webapp

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/k9ert/rbac-poc/internal/config"
	"github.com/k9ert/rbac-poc/internal/kratos"
)

func newHandlerForTests(t *testing.T, provider http.HandlerFunc) *Handler {
	t.Helper()
	srv := httptest.NewServer(provider)
	t.Cleanup(srv.Close)
	logger := log.New(io.Discard, "", 0)
	cfg := &config.Config{KratosPublicURL: srv.URL, ProviderTimeout: 2 * time.Second}
	return NewHandler(kratos.NewClient(cfg, logger), "google", logger)
}

const flowBody = `{
	"id": "f-1",
	"ui": {
		"action": "https://kratos.example/self-service/login?flow=f-1",
		"method": "POST",
		"nodes": [
			{"attributes": {"name": "csrf_token", "value": "tok-1"}},
			{"attributes": {"name": "identifier", "value": ""}},
			{"attributes": {"name": "provider", "value": "google"}}
		]
	}
}`

func TestHome_WelcomeWithoutSession(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	rec := httptest.NewRecorder()
	h.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/login") {
		t.Fatalf("welcome page should link to /login")
	}
}

func TestHome_WelcomeDuringProviderOutage(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := httptest.NewRecorder()
	h.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("outage must degrade to the welcome page, got %d", rec.Code)
	}
}

func TestHome_DashboardWithSession(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"s-1","identity":{"id":"i-1","traits":{"email":"alice@example.com","first_name":"Alice"}}}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "sess=good")
	rec := httptest.NewRecorder()
	h.Home(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "alice@example.com") {
		t.Fatalf("dashboard missing identity email")
	}
	if !strings.Contains(body, "/logout") {
		t.Fatalf("dashboard should link to /logout")
	}
}

func TestLogin_NoFlowRedirectsToProvider(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/self-service/login/browser" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Location", "https://kratos.example/login?flow=f-1")
		w.WriteHeader(http.StatusSeeOther)
	})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://kratos.example/login?flow=f-1" {
		t.Fatalf("location = %q", got)
	}
}

func TestLogin_GoneFlowRestartsCleanly(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login?flow=expired", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Fatalf("location = %q, want bare /login with no query", got)
	}
}

func TestLogin_RendersExactlyTwoHiddenFields(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/self-service/login/flows" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(flowBody))
	})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login?flow=f-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if got := strings.Count(body, `type="hidden"`); got != 2 {
		t.Fatalf("hidden field count = %d, want 2\n%s", got, body)
	}
	if !strings.Contains(body, `name="csrf_token"`) || !strings.Contains(body, "tok-1") {
		t.Fatalf("csrf field missing from form")
	}
	if !strings.Contains(body, `name="provider"`) || !strings.Contains(body, `value="google"`) {
		t.Fatalf("provider field missing from form")
	}
	if !strings.Contains(body, "https://kratos.example/self-service/login?flow=f-1") {
		t.Fatalf("form action missing")
	}
	if got := strings.Count(body, `type="submit"`); got != 1 {
		t.Fatalf("submit count = %d, want 1", got)
	}
	// descriptor nodes outside the allow list never reach the page
	if strings.Contains(body, "identifier") {
		t.Fatalf("unexpected descriptor node rendered")
	}
}

func TestLogin_MissingProviderNodeIs500(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "f-1",
			"ui": {"action": "a", "method": "POST", "nodes": [
				{"attributes": {"name": "csrf_token", "value": "tok-1"}}
			]}
		}`))
	})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login?flow=f-1", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "google sign-in is not configured properly") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestLogin_MissingCSRFNodeIs500(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "f-1",
			"ui": {"action": "a", "method": "POST", "nodes": [
				{"attributes": {"name": "provider", "value": "google"}}
			]}
		}`))
	})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login?flow=f-1", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestLogout_RedirectsToProviderTarget(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/self-service/logout/browser" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Cookie"); got != "sess=good" {
			t.Fatalf("cookie not forwarded, got %q", got)
		}
		w.Header().Set("Location", "https://kratos.example/logout?token=t-1")
		w.WriteHeader(http.StatusSeeOther)
	})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.Header.Set("Cookie", "sess=good")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://kratos.example/logout?token=t-1" {
		t.Fatalf("location = %q", got)
	}
}

func TestHealth(t *testing.T) {
	h := newHandlerForTests(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status"`) {
		t.Fatalf("unexpected health body: %s", rec.Body.String())
	}
}
