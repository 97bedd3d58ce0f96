package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// trip pipeline.
type Metrics struct {
	RecordsLoaded   prometheus.Counter
	RecordsAccepted prometheus.Counter
	RecordsExcluded *prometheus.CounterVec // labels: stage, reason
	RowsSkipped     prometheus.Counter     // malformed source rows dropped during ingestion

	StageDuration   *prometheus.HistogramVec // label: stage
	StagesSkipped   *prometheus.CounterVec   // label: stage
	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsLoaded,
		m.RecordsAccepted,
		m.RecordsExcluded,
		m.RowsSkipped,
		m.StageDuration,
		m.StagesSkipped,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxi_pipeline",
			Name:      "records_loaded_total",
			Help:      "Total trip records read from the raw source.",
		}),
		RecordsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxi_pipeline",
			Name:      "records_accepted_total",
			Help:      "Total trip records that reached the feature-complete output.",
		}),
		RecordsExcluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxi_pipeline",
			Name:      "records_excluded_total",
			Help:      "Trip records excluded, by stage and reason.",
		}, []string{"stage", "reason"}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taxi_pipeline",
			Name:      "rows_skipped_total",
			Help:      "Malformed source rows skipped during ingestion.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taxi_pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each executed pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		StagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxi_pipeline",
			Name:      "stages_skipped_total",
			Help:      "Stages skipped because their output artifact was already present.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taxi_pipeline",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
	}
}
