// Package metrics exposes Prometheus collectors for HTTP traffic and auth outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medconsult"

// Registry owns the collectors. Use New with prometheus.NewRegistry() in tests
// so collectors do not collide with the default registerer.
type Registry struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	authOps      *prometheus.CounterVec
	revocations  *prometheus.CounterVec
}

// New registers all collectors on reg. reg must also be a Gatherer to serve /metrics.
func New(reg interface {
	prometheus.Registerer
	prometheus.Gatherer
}) *Registry {
	r := &Registry{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Auth operations by operation and outcome code.",
		}, []string{"operation", "outcome"}),
		revocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_sessions_revoked_total",
			Help:      "Sessions revoked by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(r.httpRequests, r.httpDuration, r.authOps, r.revocations)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request.
func (r *Registry) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, status).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveAuth counts an auth operation. outcome is "ok" or an error code.
func (r *Registry) ObserveAuth(operation, outcome string) {
	if r == nil {
		return
	}
	r.authOps.WithLabelValues(operation, outcome).Inc()
}

// SessionsRevoked adds n revocations for reason. Non-positive n is ignored.
func (r *Registry) SessionsRevoked(reason string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.revocations.WithLabelValues(reason).Add(float64(n))
}
