package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("GET", "/api/courses", "200", 20*time.Millisecond)
	m.ObserveAPI("GET", "/api/courses", "200", 3*time.Second)
	m.ObserveError("/api/courses/:id", "forbidden")
	m.InflightInc()

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`lms_api_requests_total{method="GET",route="/api/courses",status="200"} 2`,
		`lms_api_request_duration_seconds_bucket{method="GET",route="/api/courses",le="0.025"} 1`,
		`lms_api_request_duration_seconds_bucket{method="GET",route="/api/courses",le="+Inf"} 2`,
		`lms_api_request_duration_seconds_count{method="GET",route="/api/courses"} 2`,
		`lms_api_errors_total{route="/api/courses/:id",code="forbidden"} 1`,
		`lms_api_inflight_requests 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveError("/", "x")
	m.InflightInc()
	m.InflightDec()
}
