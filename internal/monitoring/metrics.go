package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PollsTotal          *prometheus.CounterVec
	TransitionsTotal    *prometheus.CounterVec
	TrackedSites        prometheus.Gauge
	CommandsTotal       *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the metrics on reg. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_polls_total",
			Help: "The total number of status queries issued, by outcome",
		}, []string{"outcome"}), // e.g., 'pending', 'completed', 'transport_error'
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_transitions_total",
			Help: "The total number of terminal transitions, by state",
		}, []string{"state"}),
		TrackedSites: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sitewatch_tracked_sites",
			Help: "Current number of sites being polled",
		}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_commands_total",
			Help: "The total number of dispatched row commands",
		}, []string{"type", "result"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) IncPoll(outcome string) {
	m.PollsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncTransition(state string) {
	m.TransitionsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) IncCommand(commandType, result string) {
	m.CommandsTotal.WithLabelValues(commandType, result).Inc()
}
