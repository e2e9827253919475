package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Discovery Metrics
	DiscoveryRequestsTotal *prometheus.CounterVec
	DiscoveryDuration      *prometheus.HistogramVec
	PathsDiscovered        *prometheus.HistogramVec
	NodesExpanded          *prometheus.HistogramVec

	// Graph Access Metrics
	GraphLookupsTotal   *prometheus.CounterVec
	GraphLookupDuration *prometheus.HistogramVec
	StorageNodesTotal   prometheus.Gauge
	StorageEdgesTotal   prometheus.Gauge
	StorageVulnsTotal   prometheus.Gauge

	// Analysis Metrics
	AnalysisRequestsTotal *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	PathRiskScore         prometheus.Histogram
	NonCompliantPaths     *prometheus.CounterVec
	ExportsTotal          *prometheus.CounterVec

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initDiscoveryMetrics()
	r.initStorageMetrics()
	r.initAnalysisMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
