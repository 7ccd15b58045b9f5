package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRecordOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(recordOperations.WithLabelValues("create", ResultOK))
	errBefore := testutil.ToFloat64(recordOperations.WithLabelValues("create", ResultError))

	ObserveRecordOperation("create", nil)
	ObserveRecordOperation("create", errors.New("boom"))
	ObserveRecordOperation("create", nil)

	if got := testutil.ToFloat64(recordOperations.WithLabelValues("create", ResultOK)) - okBefore; got != 2 {
		t.Errorf("ok delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(recordOperations.WithLabelValues("create", ResultError)) - errBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestCountersAndGauge(t *testing.T) {
	before := testutil.ToFloat64(optimisticRollbacks.WithLabelValues("delete"))
	ObserveRollback("delete")
	if got := testutil.ToFloat64(optimisticRollbacks.WithLabelValues("delete")) - before; got != 1 {
		t.Errorf("rollback delta = %v, want 1", got)
	}

	before = testutil.ToFloat64(securityEvents.WithLabelValues(SecurityRateLimited))
	ObserveSecurityEvent(SecurityRateLimited)
	if got := testutil.ToFloat64(securityEvents.WithLabelValues(SecurityRateLimited)) - before; got != 1 {
		t.Errorf("security delta = %v, want 1", got)
	}

	SetActiveWorkspaces(7)
	if got := testutil.ToFloat64(activeWorkspaces); got != 7 {
		t.Errorf("active workspaces = %v, want 7", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveHTTPRequest("GET", 200, 20*time.Millisecond)
	ObserveAuditEntry("created", nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"tally_http_request_duration_seconds_bucket",
		"tally_audit_entries_total",
		"tally_active_workspaces",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
