package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/healthz":                              "/healthz",
		"/v1/sessions/abc":                      "/v1/sessions/{id}",
		"/v1/sessions/abc/mappings/phoneNumber": "/v1/sessions/{id}/mappings/{mapping}",
		"/v1/sessions/abc/profiles/p-1/apply":   "/v1/sessions/{id}/profiles/{profile}/apply",
		"/v1/sessions/abc/submit":               "/v1/sessions/{id}/submit",
		"/v1/partners/bank-1/profiles":          "/v1/partners/{id}/profiles",
		"/v1/partners":                          "/v1/partners",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	h := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/sessions/s-1", nil))

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/v1/sessions/{id}", "418"))
	if got != 1 {
		t.Fatalf("expected one counted request, got %v", got)
	}
}

func TestUploadMetricsSharesRegistry(t *testing.T) {
	httpMetrics := NewHTTPServerMetrics("api")
	uploads := NewUploadMetrics("api", httpMetrics.Registerer())

	uploads.ObserveUpload("upload", domain.StateCompleted, &domain.UploadResult{Total: 3, Success: 2, Errors: 1}, 1, 1.5)
	uploads.ObserveRetryDecision("declined")
	uploads.ObserveBreakerState("scoring.list_profiles", true)

	if got := testutil.ToFloat64(uploads.records.WithLabelValues("api", "upload", "error")); got != 1 {
		t.Fatalf("expected one error record, got %v", got)
	}

	rec := httptest.NewRecorder()
	httpMetrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		"credit_upload_upload_attempts_total",
		"credit_upload_retry_decisions_total",
		"credit_upload_resilience_circuit_open",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}
