package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalysisMetrics() {
	r.AnalysisRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackpath_analysis_requests_total",
			Help: "Total number of analysis requests",
		},
		[]string{"status"},
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attackpath_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"operation"},
	)

	r.PathRiskScore = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attackpath_path_risk_score",
			Help:    "Distribution of computed path risk scores",
			Buckets: []float64{-2, 0, 1, 2, 4, 6, 8, 10},
		},
	)

	r.NonCompliantPaths = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackpath_noncompliant_paths_total",
			Help: "Paths failing a compliance check, by rule",
		},
		[]string{"rule"},
	)

	r.ExportsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackpath_exports_total",
			Help: "Artifacts published to export sinks",
		},
		[]string{"sink", "status"},
	)
}
