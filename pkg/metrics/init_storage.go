package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStorageMetrics() {
	r.GraphLookupsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackpath_graph_lookups_total",
			Help: "Total number of graph access layer calls",
		},
		[]string{"backend", "operation", "status"},
	)

	r.GraphLookupDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attackpath_graph_lookup_duration_seconds",
			Help:    "Graph access layer call duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"backend", "operation"},
	)

	r.StorageNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "attackpath_storage_nodes_total",
			Help: "Total number of topology nodes loaded",
		},
	)

	r.StorageEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "attackpath_storage_edges_total",
			Help: "Total number of topology edges loaded",
		},
	)

	r.StorageVulnsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "attackpath_storage_vulnerabilities_total",
			Help: "Total number of vulnerabilities loaded",
		},
	)
}
