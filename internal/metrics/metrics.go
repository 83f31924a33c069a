package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector holds all Prometheus metrics of the dashboard console.
type Collector struct {
	Registry *prometheus.Registry

	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	supersededLoads  prometheus.Counter
	selectionSize    prometheus.Gauge
	notifications    *prometheus.CounterVec
	reportsGenerated prometheus.Counter
	exportBytes      prometheus.Counter
	targetHealthy    *prometheus.GaugeVec
	healthDuration   *prometheus.HistogramVec
	healthFailures   *prometheus.CounterVec
}

// New creates all metrics and registers them, plus the Go runtime collectors, on reg.
// A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		Registry: reg,
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gbdash_api_requests_total",
				Help: "Project API requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gbdash_api_request_duration_seconds",
				Help:    "Project API request latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"endpoint"},
		),
		supersededLoads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gbdash_page_loads_superseded_total",
				Help: "Page load responses discarded because a newer load was issued",
			},
		),
		selectionSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gbdash_selection_size",
				Help: "Number of project ids currently selected",
			},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gbdash_notifications_total",
				Help: "Notifications shown to the user by level",
			},
			[]string{"level"},
		),
		reportsGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gbdash_reports_generated_total",
				Help: "Review reports generated by the server",
			},
		),
		exportBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gbdash_export_bytes_total",
				Help: "Bytes of spreadsheet exports written to disk",
			},
		),
		targetHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gbdash_target_healthy",
				Help: "Whether the last health check of a dependency succeeded (1=healthy, 0=failing)",
			},
			[]string{"target"},
		),
		healthDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gbdash_health_check_duration_seconds",
				Help:    "Health check latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		),
		healthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gbdash_health_check_failures_total",
				Help: "Failed health checks by target",
			},
			[]string{"target"},
		),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiDuration,
		c.supersededLoads,
		c.selectionSize,
		c.notifications,
		c.reportsGenerated,
		c.exportBytes,
		c.targetHealthy,
		c.healthDuration,
		c.healthFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// ObserveRequest records one project API call.
func (c *Collector) ObserveRequest(endpoint, outcome string, d time.Duration) {
	c.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	c.apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// LoadSuperseded counts a discarded page load response.
func (c *Collector) LoadSuperseded() {
	c.supersededLoads.Inc()
}

// SelectionChanged sets the selection size gauge.
func (c *Collector) SelectionChanged(size int) {
	c.selectionSize.Set(float64(size))
}

// Notified counts a notification.
func (c *Collector) Notified(level string) {
	c.notifications.WithLabelValues(level).Inc()
}

// ReportsGenerated adds to the generated report counter.
func (c *Collector) ReportsGenerated(n int) {
	c.reportsGenerated.Add(float64(n))
}

// ExportWritten adds to the exported bytes counter.
func (c *Collector) ExportWritten(bytes int64) {
	c.exportBytes.Add(float64(bytes))
}

// HealthCheckCompleted records one dependency health check.
func (c *Collector) HealthCheckCompleted(target string, d time.Duration, healthy bool) {
	c.healthDuration.WithLabelValues(target).Observe(d.Seconds())
	if healthy {
		c.targetHealthy.WithLabelValues(target).Set(1)
		return
	}
	c.targetHealthy.WithLabelValues(target).Set(0)
	c.healthFailures.WithLabelValues(target).Inc()
}
