package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hearth"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	Verdicts         *prometheus.CounterVec
	TrustScore       prometheus.Histogram
	Enrollments      prometheus.Counter
	Resets           prometheus.Counter
	InvalidReadings  prometheus.Counter
	IPLookupFailures prometheus.Counter
}

// New creates the metrics on a private registry so tests can build as many as they like.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verifications by verdict and deciding policy",
		}, []string{"verdict", "policy"}),
		TrustScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trust_score",
			Help:      "Distribution of computed trust scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		Enrollments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Household baselines created",
		}),
		Resets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Household baselines reset",
		}),
		InvalidReadings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_readings_total",
			Help:      "Sensor readings rejected as invalid",
		}),
		IPLookupFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ip_lookup_failures_total",
			Help:      "Outbound public IP lookups that fell back to the unknown sentinel",
		}),
	}
}

// ObserveVerdict counts a verdict and records its trust score.
func (m *Metrics) ObserveVerdict(verdict, policy string, score int) {
	m.Verdicts.WithLabelValues(verdict, policy).Inc()
	m.TrustScore.Observe(float64(score))
}

func (m *Metrics) IncrementEnrollments() {
	m.Enrollments.Inc()
}

func (m *Metrics) IncrementResets() {
	m.Resets.Inc()
}

func (m *Metrics) IncrementInvalidReadings() {
	m.InvalidReadings.Inc()
}

func (m *Metrics) IncrementIPLookupFailures() {
	m.IPLookupFailures.Inc()
}

// Handler serves the private registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
