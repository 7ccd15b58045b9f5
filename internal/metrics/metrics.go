// Package metrics exposes the Prometheus collectors of the tally processes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tally"

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var recordOperations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_operations_total",
		Help:      "Record writes and reads by operation and result.",
	},
	[]string{"operation", "result"},
)

var optimisticRollbacks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "optimistic_rollbacks_total",
		Help:      "Optimistic list changes reverted after a backend failure.",
	},
	[]string{"operation"},
)

var httpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	},
	[]string{"method", "status"},
)

var auditEntries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_entries_total",
		Help:      "Record events handled by the audit worker.",
	},
	[]string{"event", "result"},
)

var securityEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_events_total",
		Help:      "Requests refused by the rate limiter or flagged as suspicious.",
	},
	[]string{"kind"},
)

var activeWorkspaces = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_workspaces",
		Help:      "Signed-in workspaces held in memory.",
	},
)

// Security event kinds
const (
	SecurityRateLimited = "rate_limited"
	SecuritySuspicious  = "suspicious"
)

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveRecordOperation counts one store call.
func ObserveRecordOperation(op string, err error) {
	recordOperations.WithLabelValues(op, result(err)).Inc()
}

// ObserveRollback counts one reverted optimistic change.
func ObserveRollback(op string) {
	optimisticRollbacks.WithLabelValues(op).Inc()
}

func ObserveHTTPRequest(method string, status int, elapsed time.Duration) {
	httpRequestDuration.
		WithLabelValues(method, strconv.Itoa(status)).
		Observe(elapsed.Seconds())
}

func ObserveAuditEntry(event string, err error) {
	auditEntries.WithLabelValues(event, result(err)).Inc()
}

func ObserveSecurityEvent(kind string) {
	securityEvents.WithLabelValues(kind).Inc()
}

func SetActiveWorkspaces(n int) {
	activeWorkspaces.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
