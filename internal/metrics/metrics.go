package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probesSuccess prometheus.Counter
	probesFailure prometheus.Counter
	probeRate     prometheus.Histogram

	// Generation metrics
	mirrorsFetched  *prometheus.CounterVec
	mirrorsRetained prometheus.Gauge
	generationTime  prometheus.Histogram

	// API metrics
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		probesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of bandwidth probes",
			},
			[]string{"result"},
		),
		probesSuccess: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_success_total",
				Help:      "Total number of successful bandwidth probes",
			},
		),
		probesFailure: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_failure_total",
				Help:      "Total number of failed bandwidth probes",
			},
		),
		probeRate: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_rate_kbps",
				Help:      "Measured mirror download rate in kB/s",
				Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000},
			},
		),
		mirrorsFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mirrors_fetched_total",
				Help:      "Total number of mirrors fetched from status documents",
			},
			[]string{"source"},
		),
		mirrorsRetained: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mirrors_retained",
				Help:      "Number of mirrors retained after filtering and ranking",
			},
		),
		generationTime: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Mirrorlist generation cycle duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		apiRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		apiDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}

	return c
}

func (c *Collector) RecordProbeSuccess() {
	c.probesTotal.WithLabelValues("success").Inc()
	c.probesSuccess.Inc()
}

func (c *Collector) RecordProbeFailure() {
	c.probesTotal.WithLabelValues("failure").Inc()
	c.probesFailure.Inc()
}

func (c *Collector) RecordProbeRate(kbps float64) {
	c.probeRate.Observe(kbps)
}

func (c *Collector) RecordMirrorsFetched(source string, count int) {
	c.mirrorsFetched.WithLabelValues(source).Add(float64(count))
}

func (c *Collector) SetMirrorsRetained(count int) {
	c.mirrorsRetained.Set(float64(count))
}

func (c *Collector) RecordGenerationDuration(seconds float64) {
	c.generationTime.Observe(seconds)
}

func (c *Collector) RecordAPIRequest(method, endpoint, status string) {
	c.apiRequests.WithLabelValues(method, endpoint, status).Inc()
}

func (c *Collector) RecordAPIDuration(method, endpoint string, seconds float64) {
	c.apiDuration.WithLabelValues(method, endpoint).Observe(seconds)
}
