// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
// All recording methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	authFailures     *prometheus.CounterVec
	cascadeDeletions *prometheus.CounterVec
	identityCleanup  *prometheus.CounterVec
	capabilityChecks *prometheus.CounterVec
	exports          *prometheus.CounterVec
	revocationErrors *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected credentials by error kind",
		}, []string{"kind"}),
		cascadeDeletions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_deletions_total",
			Help:      "Cascading deletions by target and outcome",
		}, []string{"target", "outcome"}),
		identityCleanup: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_cleanup_total",
			Help:      "Identity record removals at the identity service by outcome",
		}, []string{"outcome"}),
		capabilityChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_checks_total",
			Help:      "Owner column capability resolutions by result",
		}, []string{"result"}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Report exports by format and outcome",
		}, []string{"format", "outcome"}),
		revocationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocation_backend_errors_total",
			Help:      "Shared revocation list failures answered from the local mirror",
		}, []string{"operation"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) AuthFailure(kind string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(kind).Inc()
}

// CascadeDeletion records a project or account deletion outcome
// ("committed", "rolled_back", "not_found").
func (m *Metrics) CascadeDeletion(target, outcome string) {
	if m == nil {
		return
	}
	m.cascadeDeletions.WithLabelValues(target, outcome).Inc()
}

func (m *Metrics) IdentityCleanup(outcome string) {
	if m == nil {
		return
	}
	m.identityCleanup.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CapabilityCheck(result string) {
	if m == nil {
		return
	}
	m.capabilityChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) Export(format, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, outcome).Inc()
}

// RevocationBackendError counts a shared revocation list call ("check",
// "revoke") that failed and fell back to the process-local mirror.
func (m *Metrics) RevocationBackendError(operation string) {
	if m == nil {
		return
	}
	m.revocationErrors.WithLabelValues(operation).Inc()
}
