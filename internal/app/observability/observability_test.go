package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizedPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/healthz", "/healthz"},
		{"/api/v1/assignments/42/result", "/api/v1/assignments/{id}/result"},
		{"/api/v1/admin/tests/7", "/api/v1/admin/tests/{id}"},
		{"/api/v1/admin/assignments/7/3/recompute", "/api/v1/admin/assignments/{id}/{id}/recompute"},
	}
	for _, tc := range tests {
		if got := normalizedPath(tc.in); got != tc.want {
			t.Errorf("normalizedPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractTestID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"/api/v1/assignments/42/result", 42},
		{"/api/v1/admin/tests/7", 7},
		{"/api/v1/admin/tests/import", 0},
		{"/healthz", 0},
	}
	for _, tc := range tests {
		if got := extractTestID(tc.in); got != tc.want {
			t.Errorf("extractTestID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	c := NewCollector(nil)
	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/assignments/42/result", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("middleware must not alter the response, got %d", w.Code)
		}
	}

	w := httptest.NewRecorder()
	c.MetricsHandler(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	want := `testportal_http_requests_total{method="GET",path="/api/v1/assignments/{id}/result",status="404"} 3`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics output missing %q:\n%s", want, body)
	}
	if !strings.Contains(body, "testportal_uptime_seconds") {
		t.Fatalf("metrics output missing uptime gauge:\n%s", body)
	}
}

func TestMetricsHandlerContentType(t *testing.T) {
	c := NewCollector(nil)
	w := httptest.NewRecorder()
	c.MetricsHandler(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain content type, got %q", ct)
	}
}
