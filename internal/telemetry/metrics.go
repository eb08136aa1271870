package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the pipeline metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "scenes").
	Namespace string

	// Buckets are the histogram buckets for run duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the pipeline metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "scenes",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the pipeline collectors.
type Metrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	findingsTotal    *prometheus.CounterVec
	scenes           prometheus.Gauge
	artifactsWritten prometheus.Counter
	artifactBytes    prometheus.Counter
	objectsPublished prometheus.Counter
	reloadClients    prometheus.Gauge
}

// NewMetrics registers the pipeline collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by stage and outcome",
		}, []string{"stage", "status"}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   config.Buckets,
		}, []string{"stage"}),

		findingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "findings_total",
			Help:      "Total number of validation findings by phase and severity",
		}, []string{"phase", "severity"}),

		scenes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "scenes",
			Help:      "Number of scenes in the manifest at the last run",
		}),

		artifactsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "artifacts_written_total",
			Help:      "Total number of registry artifacts written",
		}),

		artifactBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "artifact_bytes_total",
			Help:      "Total bytes of registry artifacts written",
		}),

		objectsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "objects_published_total",
			Help:      "Total number of artifacts uploaded to object storage",
		}),

		reloadClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "reload_clients",
			Help:      "Number of connected dev reload clients",
		}),
	}
}

// RecordRun records one run of a pipeline stage.
func (m *Metrics) RecordRun(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(stage, status).Inc()
	m.runDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordFinding counts one validation finding.
func (m *Metrics) RecordFinding(phase, severity string) {
	if m == nil {
		return
	}
	m.findingsTotal.WithLabelValues(phase, severity).Inc()
}

// SetScenes records the manifest size.
func (m *Metrics) SetScenes(n int) {
	if m == nil {
		return
	}
	m.scenes.Set(float64(n))
}

// RecordArtifact counts one written artifact of size bytes.
func (m *Metrics) RecordArtifact(size int64) {
	if m == nil {
		return
	}
	m.artifactsWritten.Inc()
	m.artifactBytes.Add(float64(size))
}

// RecordPublished counts one uploaded object.
func (m *Metrics) RecordPublished() {
	if m == nil {
		return
	}
	m.objectsPublished.Inc()
}

// SetReloadClients records the number of connected reload clients.
func (m *Metrics) SetReloadClients(n int) {
	if m == nil {
		return
	}
	m.reloadClients.Set(float64(n))
}
