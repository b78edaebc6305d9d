package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment engine and its adapters.
type Metrics struct {
	AssessmentsCompleted *prometheus.CounterVec // labels: method={model,fallback}
	AssessmentErrors     prometheus.Counter
	AssessmentDuration   prometheus.Histogram
	EngineRunning        prometheus.Gauge

	// Alert trigger metrics.
	AlertsTriggered     *prometheus.CounterVec // labels: severity={critical,high,moderate}
	AlertsSuppressed    prometheus.Counter
	AlertDispatchErrors prometheus.Counter

	// Weather ingestion metrics.
	WeatherRequests    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	WeatherCache       *prometheus.CounterVec   // labels: result={hit,miss}
	WeatherAPIDuration prometheus.Histogram

	// Model metrics.
	ModelTrainingDuration prometheus.Histogram
	ModelTrainingSamples  prometheus.Gauge
	ModelLoaded           prometheus.Gauge
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AssessmentsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drought_engine",
			Name:      "assessments_completed_total",
			Help:      "Completed risk assessments by scoring method.",
		}, []string{"method"}),
		AssessmentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_engine",
			Name:      "assessment_errors_total",
			Help:      "Assessments that failed after all retries.",
		}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drought_engine",
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a single region assessment.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drought_engine",
			Name:      "engine_running",
			Help:      "1 when the assessment loop is active, 0 when shut down.",
		}),
		AlertsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drought_engine",
			Name:      "alerts_triggered_total",
			Help:      "Alerts created by severity.",
		}, []string{"severity"}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_engine",
			Name:      "alerts_suppressed_total",
			Help:      "Alerts skipped because an active alert already covers the assessment.",
		}),
		AlertDispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drought_engine",
			Name:      "alert_dispatch_errors_total",
			Help:      "Alert handoff failures.",
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drought_engine",
			Name:      "weather_requests_total",
			Help:      "Weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drought_engine",
			Name:      "weather_cache_total",
			Help:      "Weather API cache lookups by result.",
		}, []string{"result"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drought_engine",
			Name:      "weather_api_duration_seconds",
			Help:      "Weather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ModelTrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drought_engine",
			Name:      "model_training_duration_seconds",
			Help:      "Duration of a full training run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ModelTrainingSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drought_engine",
			Name:      "model_training_samples",
			Help:      "Sample count of the most recent training run.",
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drought_engine",
			Name:      "model_loaded",
			Help:      "1 when a trained model artifact is loaded, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.AssessmentsCompleted,
		m.AssessmentErrors,
		m.AssessmentDuration,
		m.EngineRunning,
		m.AlertsTriggered,
		m.AlertsSuppressed,
		m.AlertDispatchErrors,
		m.WeatherRequests,
		m.WeatherCache,
		m.WeatherAPIDuration,
		m.ModelTrainingDuration,
		m.ModelTrainingSamples,
		m.ModelLoaded,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AssessmentsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "drought_engine", Name: "assessments_completed_total"}, []string{"method"}),
		AssessmentErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_engine", Name: "assessment_errors_total"}),
		AssessmentDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "drought_engine", Name: "assessment_duration_seconds"}),
		EngineRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "drought_engine", Name: "engine_running"}),
		AlertsTriggered:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "drought_engine", Name: "alerts_triggered_total"}, []string{"severity"}),
		AlertsSuppressed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_engine", Name: "alerts_suppressed_total"}),
		AlertDispatchErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "drought_engine", Name: "alert_dispatch_errors_total"}),
		WeatherRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "drought_engine", Name: "weather_requests_total"}, []string{"outcome"}),
		WeatherCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "drought_engine", Name: "weather_cache_total"}, []string{"result"}),
		WeatherAPIDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "drought_engine", Name: "weather_api_duration_seconds"}),
		ModelTrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "drought_engine", Name: "model_training_duration_seconds"}),
		ModelTrainingSamples:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "drought_engine", Name: "model_training_samples"}),
		ModelLoaded:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "drought_engine", Name: "model_loaded"}),
	}
}
