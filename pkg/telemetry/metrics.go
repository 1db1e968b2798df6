package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics provides Prometheus metrics for synthesis runs.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Module metrics
	modulesSynthesized *prometheus.CounterVec
	moduleDuration     *prometheus.HistogramVec

	// Registry metrics
	outputsWritten *prometheus.GaugeVec

	// Validation metrics
	validationFindings *prometheus.GaugeVec

	// Cloud API metrics
	providerCalls  *prometheus.CounterVec
	providerErrors *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of synthesis runs started",
			},
			[]string{"environment"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of synthesis runs completed",
			},
			[]string{"environment", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of synthesis runs in seconds",
				Buckets:   buckets,
			},
			[]string{"environment", "status"},
		),

		modulesSynthesized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "modules_synthesized_total",
				Help:      "Total number of modules synthesized",
			},
			[]string{"module"},
		),
		moduleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "module_duration_seconds",
				Help:      "Duration of module synthesis in seconds",
				Buckets:   buckets,
			},
			[]string{"module"},
		),

		outputsWritten: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_outputs",
				Help:      "Number of registry outputs written in the last run",
			},
			[]string{"environment"},
		),

		validationFindings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "validation_findings",
				Help:      "Number of validation findings in the last run",
			},
			[]string{"environment"},
		),

		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_calls_total",
				Help:      "Total number of cloud provider calls",
			},
			[]string{"service", "operation"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Total number of cloud provider errors",
			},
			[]string{"service", "operation"},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.modulesSynthesized,
		m.moduleDuration,
		m.outputsWritten,
		m.validationFindings,
		m.providerCalls,
		m.providerErrors,
	)

	return m, nil
}

// RunStarted increments the counter for started runs.
func (m *Metrics) RunStarted(environment string) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(environment).Inc()
}

// RunCompleted records a completed run with its status and duration.
func (m *Metrics) RunCompleted(environment, status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(environment, status).Inc()
	m.runDuration.WithLabelValues(environment, status).Observe(duration.Seconds())
}

// ModuleSynthesized records one module synthesis with its duration.
func (m *Metrics) ModuleSynthesized(module string, duration time.Duration) {
	if m.modulesSynthesized == nil {
		return
	}
	m.modulesSynthesized.WithLabelValues(module).Inc()
	m.moduleDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// OutputsWritten records the registry size of the last run.
func (m *Metrics) OutputsWritten(environment string, count int) {
	if m.outputsWritten == nil {
		return
	}
	m.outputsWritten.WithLabelValues(environment).Set(float64(count))
}

// ValidationFindings records the validation report size of the last run.
func (m *Metrics) ValidationFindings(environment string, count int) {
	if m.validationFindings == nil {
		return
	}
	m.validationFindings.WithLabelValues(environment).Set(float64(count))
}

// ProviderCall records a cloud provider call.
func (m *Metrics) ProviderCall(service, operation string) {
	if m.providerCalls == nil {
		return
	}
	m.providerCalls.WithLabelValues(service, operation).Inc()
}

// ProviderError records a cloud provider error.
func (m *Metrics) ProviderError(service, operation string) {
	if m.providerErrors == nil {
		return
	}
	m.providerErrors.WithLabelValues(service, operation).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}
