package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsExposition(t *testing.T) {
	ObserveHTTP(http.MethodGet, "/occurrences", http.StatusOK, 0.042)
	ObserveUpstreamLatency("geocode", 0.1)
	IncCacheHit("raw")
	IncCacheMiss("analysis")
	IncPipelineRun("refresh", nil)
	IncPipelineRun("refresh", errors.New("boom"))
	IncPageResult("ok")
	ExposeBuildInfo("test")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"upstream_latency_seconds",
		"cache_results_total",
		"pipeline_runs_total",
		"incident_pages_total",
		"app_build_info",
	} {
		if !strings.Contains(body, name) {
			t.Fatalf("metric %s not exposed", name)
		}
	}
}
