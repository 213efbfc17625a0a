package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := New("admin-api")
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/accounts", nil))

	body := scrape(t, m)
	if !strings.Contains(body, `rbac_poc_http_requests_total{method="GET",path="/api/accounts",service="admin-api",status="418"} 1`) {
		t.Fatalf("request counter missing:\n%s", body)
	}
	if !strings.Contains(body, "rbac_poc_http_request_duration_seconds") {
		t.Fatalf("duration histogram missing")
	}
}

func TestProviderErrorCounter(t *testing.T) {
	m := New("admin-api")
	m.IncProviderError()
	m.IncProviderError()

	body := scrape(t, m)
	if !strings.Contains(body, `rbac_poc_provider_errors_total{service="admin-api"} 2`) {
		t.Fatalf("provider error counter missing:\n%s", body)
	}
}

func TestEachMetricsValueHasItsOwnRegistry(t *testing.T) {
	// building twice must not panic on duplicate registration
	_ = New("admin-api")
	_ = New("admin-api")
}
