// Package metrics provides Prometheus metrics instrumentation for the predictor.
//
// It exposes operational metrics about the prediction pipeline, including the
// duration of each stage (source fetch, feature transform, model inference),
// the size of the scored panel, and error tracking. All metrics are exposed
// via the /metrics HTTP endpoint for Prometheus scraping.
//
// Metrics exposed:
//   - salescast_source_fetch_seconds: Histogram of panel fetch duration
//   - salescast_feature_transform_seconds: Histogram of feature assembly duration
//   - salescast_model_predict_seconds: Histogram of model inference duration
//   - salescast_snapshot_age_seconds: Gauge of current snapshot age
//   - salescast_prediction_rows: Gauge of rows in the latest snapshot
//   - salescast_rows_dropped: Gauge of rows dropped for insufficient history
//   - salescast_errors_total: Counter of errors by component and reason
//
// All metrics include the dataset label for multi-dataset deployments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the predictor.
type Metrics struct {
	SourceFetchSeconds      prometheus.Histogram
	FeatureTransformSeconds prometheus.Histogram
	ModelPredictSeconds     prometheus.Histogram
	SnapshotAgeSeconds      prometheus.Gauge
	PredictionRows          prometheus.Gauge
	RowsDropped             prometheus.Gauge
	ErrorsTotal             *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(dataset string) *Metrics {
	return &Metrics{
		SourceFetchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "salescast_source_fetch_seconds",
			Help: "Time spent fetching the input panel from its source",
			ConstLabels: prometheus.Labels{
				"dataset": dataset,
			},
			Buckets: prometheus.DefBuckets, // Default buckets: .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		}),

		FeatureTransformSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "salescast_feature_transform_seconds",
			Help: "Time spent assembling feature rows",
			ConstLabels: prometheus.Labels{
				"dataset": dataset,
			},
			Buckets: prometheus.DefBuckets,
		}),

		ModelPredictSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "salescast_model_predict_seconds",
			Help: "Time spent on model inference",
			ConstLabels: prometheus.Labels{
				"model":   "gbt",
				"dataset": dataset,
			},
			Buckets: prometheus.DefBuckets,
		}),

		SnapshotAgeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "salescast_snapshot_age_seconds",
			Help: "Age of the current prediction snapshot in seconds",
			ConstLabels: prometheus.Labels{
				"dataset": dataset,
			},
		}),

		PredictionRows: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "salescast_prediction_rows",
			Help: "Number of predictions in the latest snapshot",
			ConstLabels: prometheus.Labels{
				"dataset": dataset,
			},
		}),

		RowsDropped: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "salescast_rows_dropped",
			Help: "Input rows dropped for insufficient lag history in the latest run",
			ConstLabels: prometheus.Labels{
				"dataset": dataset,
			},
		}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "salescast_errors_total",
			Help: "Total number of errors by component and reason",
			ConstLabels: prometheus.Labels{
				"dataset": dataset,
			},
		}, []string{"component", "reason"}),
	}
}

// RecordFetch records the time spent fetching the input panel.
func (m *Metrics) RecordFetch(seconds float64) {
	m.SourceFetchSeconds.Observe(seconds)
}

// RecordTransform records the time spent assembling features.
func (m *Metrics) RecordTransform(seconds float64) {
	m.FeatureTransformSeconds.Observe(seconds)
}

// RecordPredict records the time spent on model inference.
func (m *Metrics) RecordPredict(seconds float64) {
	m.ModelPredictSeconds.Observe(seconds)
}

// SetSnapshotAge sets the current snapshot age.
func (m *Metrics) SetSnapshotAge(seconds float64) {
	m.SnapshotAgeSeconds.Set(seconds)
}

// SetPredictionRows sets the prediction count of the latest snapshot.
func (m *Metrics) SetPredictionRows(rows int) {
	m.PredictionRows.Set(float64(rows))
}

// SetRowsDropped sets the dropped-row count of the latest run.
func (m *Metrics) SetRowsDropped(rows int) {
	m.RowsDropped.Set(float64(rows))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
