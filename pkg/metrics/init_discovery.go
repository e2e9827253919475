package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDiscoveryMetrics() {
	r.DiscoveryRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackpath_discovery_requests_total",
			Help: "Total number of path discovery requests",
		},
		[]string{"operation", "status"},
	)

	r.DiscoveryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attackpath_discovery_duration_seconds",
			Help:    "Path discovery duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"operation"},
	)

	r.PathsDiscovered = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attackpath_paths_discovered",
			Help:    "Number of paths returned per discovery request",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
		},
		[]string{"operation"},
	)

	r.NodesExpanded = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attackpath_nodes_expanded",
			Help:    "Number of partial paths expanded per discovery request",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"operation"},
	)
}
