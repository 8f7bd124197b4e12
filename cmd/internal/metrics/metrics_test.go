package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_AuthEventCounter(t *testing.T) {
	m := New()
	m.AuthEvent("auth.login.success")
	m.AuthEvent("auth.login.success")
	m.AuthEvent("auth.login.failed")

	if got := testutil.ToFloat64(m.AuthEvents.WithLabelValues("auth.login.success")); got != 2 {
		t.Fatalf("success count = %v", got)
	}
	if got := testutil.ToFloat64(m.AuthEvents.WithLabelValues("auth.login.failed")); got != 1 {
		t.Fatalf("failed count = %v", got)
	}
}

func TestMetrics_HandlerExposes(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/api/auth/login", 200, 15*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"careerquest_http_requests_total",
		`route="/api/auth/login"`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.AuthEvent("x")
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
}
