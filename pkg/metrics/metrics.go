package metrics

import (
	"time"
)

// RecordDiscovery records one discovery request with its outcome
func (r *Registry) RecordDiscovery(operation, status string, duration time.Duration, paths, expanded int) {
	r.DiscoveryRequestsTotal.WithLabelValues(operation, status).Inc()
	r.DiscoveryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if status == "success" {
		r.PathsDiscovered.WithLabelValues(operation).Observe(float64(paths))
	}
	r.NodesExpanded.WithLabelValues(operation).Observe(float64(expanded))
}

// RecordGraphLookup records a call into a graph access layer backend
func (r *Registry) RecordGraphLookup(backend, operation, status string, duration time.Duration) {
	r.GraphLookupsTotal.WithLabelValues(backend, operation, status).Inc()
	r.GraphLookupDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// UpdateStorageCounts sets the loaded topology size
func (r *Registry) UpdateStorageCounts(nodes, edges, vulns uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StorageNodesTotal.Set(float64(nodes))
	r.StorageEdgesTotal.Set(float64(edges))
	r.StorageVulnsTotal.Set(float64(vulns))
}

// RecordAnalysis records a completed or failed analysis request
func (r *Registry) RecordAnalysis(operation, status string, duration time.Duration) {
	r.AnalysisRequestsTotal.WithLabelValues(status).Inc()
	r.AnalysisDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRiskScore records one scored path
func (r *Registry) ObserveRiskScore(score float64) {
	r.PathRiskScore.Observe(score)
}

// RecordNonCompliant counts a path failing the named rule
func (r *Registry) RecordNonCompliant(rule string) {
	r.NonCompliantPaths.WithLabelValues(rule).Inc()
}

// RecordExport records an artifact write to a sink
func (r *Registry) RecordExport(sink, status string) {
	r.ExportsTotal.WithLabelValues(sink, status).Inc()
}
