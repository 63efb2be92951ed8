package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report connector activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration prometheus.Histogram
	logins          *prometheus.CounterVec
	runsActive      prometheus.Gauge
}

// MustNew constructs a Metrics instance on reg. Registration errors panic,
// mirroring promauto.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linkedin_connector",
				Name:      "connection_requests_total",
				Help:      "Connection request attempts by outcome.",
			},
			[]string{"outcome"},
		),
		requestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "linkedin_connector",
				Name:      "connection_request_duration_seconds",
				Help:      "Time spent on one profile, excluding the delay between profiles.",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80},
			},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linkedin_connector",
				Name:      "logins_total",
				Help:      "Login attempts by result.",
			},
			[]string{"result"},
		),
		runsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "linkedin_connector",
				Name:      "runs_active",
				Help:      "Batch runs currently holding the browser session.",
			},
		),
	}

	reg.MustRegister(m.requests, m.requestDuration, m.logins, m.runsActive)
	return m
}

// ObserveRequest counts one finished attempt
func (m *Metrics) ObserveRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
	m.requestDuration.Observe(d.Seconds())
}

// ObserveLogin counts one login attempt
func (m *Metrics) ObserveLogin(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.logins.WithLabelValues(result).Inc()
}

// RunStarted marks a run as holding the session
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

// RunFinished releases the mark set by RunStarted
func (m *Metrics) RunFinished() {
	if m == nil {
		return
	}
	m.runsActive.Dec()
}
