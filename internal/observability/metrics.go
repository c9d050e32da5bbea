package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth attempt results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Upstream names
const (
	UpstreamIdentity   = "identity"
	UpstreamTokenGrant = "token"
	UpstreamRoles      = "roles"
)

// Metrics holds the service's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	authAttempts     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		authAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relife_auth_attempts_total",
				Help: "Total number of authentication attempts",
			},
			[]string{"result", "stage", "with_roles"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relife_upstream_request_duration_seconds",
				Help:    "Upstream request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"upstream", "outcome"},
		),
	}
}

// RecordAuthAttempt counts one authentication outcome
func (m *Metrics) RecordAuthAttempt(result, stage string, withRoles bool) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(result, stage, strconv.FormatBool(withRoles)).Inc()
}

// ObserveUpstream records the latency of one upstream call
func (m *Metrics) ObserveUpstream(upstream string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamDuration.WithLabelValues(upstream, outcome).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
