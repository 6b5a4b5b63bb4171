package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the API. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SignupSteps         *prometheus.CounterVec
	UpstreamFailures    *prometheus.CounterVec
	ReportsCreated      prometheus.Counter
	Attestations        *prometheus.CounterVec
	ReportsByStatus     *prometheus.GaugeVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nidaro_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nidaro_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		SignupSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nidaro_signup_steps_total",
			Help: "Signup steps attempted, by step and outcome",
		}, []string{"step", "outcome"}),
		UpstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nidaro_upstream_failures_total",
			Help: "Failed calls to external services (SMS provider, GST portal)",
		}, []string{"service"}),
		ReportsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "nidaro_reports_created_total",
			Help: "Total number of fraud reports filed",
		}),
		Attestations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nidaro_attestations_total",
			Help: "Attestations recorded, by stance",
		}, []string{"stance"}),
		ReportsByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nidaro_reports",
			Help: "Number of reports currently in each status",
		}, []string{"status"}),
	}
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// SignupStep records the outcome of a signup step. A nil err counts as "success".
func (m *Metrics) SignupStep(step string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.SignupSteps.WithLabelValues(step, outcome).Inc()
}

func (m *Metrics) UpstreamFailure(service string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.WithLabelValues(service).Inc()
}

func (m *Metrics) ReportCreated() {
	if m == nil {
		return
	}
	m.ReportsCreated.Inc()
}

func (m *Metrics) AttestationRecorded(supporting bool) {
	if m == nil {
		return
	}
	stance := "opposing"
	if supporting {
		stance = "supporting"
	}
	m.Attestations.WithLabelValues(stance).Inc()
}

// SetReportsByStatus replaces the status gauges with a fresh snapshot.
func (m *Metrics) SetReportsByStatus(counts map[string]int64) {
	if m == nil {
		return
	}
	m.ReportsByStatus.Reset()
	for status, count := range counts {
		m.ReportsByStatus.WithLabelValues(status).Set(float64(count))
	}
}
