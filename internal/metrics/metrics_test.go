package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.RecordRequest(200, 10*time.Millisecond)
	r.RecordRequest(200, 20*time.Millisecond)
	r.RecordRequest(429, time.Millisecond)
	r.RecordSoftError("recovered")
	r.RecordPage()
	r.RecordPage()
	r.RecordSkipped("path_separator")
	r.RecordRowsWritten(42)

	if got := testutil.ToFloat64(r.requests.WithLabelValues("200")); got != 2 {
		t.Errorf("requests{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.requests.WithLabelValues("429")); got != 1 {
		t.Errorf("requests{429} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.softErrors.WithLabelValues("recovered")); got != 1 {
		t.Errorf("soft_errors{recovered} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.pages); got != 2 {
		t.Errorf("pages = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.rowsWritten); got != 42 {
		t.Errorf("rows_written = %v, want 42", got)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	// None of these may panic.
	r.RecordRequest(200, time.Second)
	r.RecordSoftError("degraded")
	r.RecordPage()
	r.RecordSkipped("empty")
	r.RecordRowsWritten(1)
	if r.Registry() != nil {
		t.Error("nil recorder should have no registry")
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.RecordPage()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "polyfetch_pages_total 1") {
		t.Errorf("metrics output missing pages counter:\n%s", rec.Body.String())
	}
}
