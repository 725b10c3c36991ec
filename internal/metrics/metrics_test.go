package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(batches.WithLabelValues("seg_count_mismatch"))
	ObserveBatch("seg_count_mismatch")
	if got := testutil.ToFloat64(batches.WithLabelValues("seg_count_mismatch")); got != before+1 {
		t.Errorf("batches = %v, want %v", got, before+1)
	}

	u := testutil.ToFloat64(unresolved)
	AddUnresolved(0)
	AddUnresolved(3)
	if got := testutil.ToFloat64(unresolved); got != u+3 {
		t.Errorf("unresolved = %v, want %v", got, u+3)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveLLMCall("gemini", "ok", 1500*time.Millisecond)
	ObserveJob("translate", "completed", 3*time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{
		`subtrans_llm_calls_total{engine="gemini",status="ok"}`,
		"subtrans_jobs_duration_seconds_bucket",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("missing %s", name)
		}
	}
}
