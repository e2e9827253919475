package topology

import "context"

// Graph is the read-only traversal contract the analysis core consumes.
// Implementations must return results in a stable order for an unchanged graph.
type Graph interface {
	// LookupNodes returns every node matching sel, in natural node order.
	LookupNodes(ctx context.Context, sel Selector) ([]Node, error)
	// Neighbors returns the edges incident to nodeID in the given direction,
	// restricted to types when types is non-empty.
	Neighbors(ctx context.Context, nodeID string, types []EdgeType, dir Direction) ([]Edge, error)
	// AffectingVulnerabilities returns the vulnerabilities with an AFFECTS edge to nodeID.
	AffectingVulnerabilities(ctx context.Context, nodeID string) ([]Vulnerability, error)
}

// Builder is the write side shared by the graph backends, used when loading topologies.
type Builder interface {
	AddNode(ctx context.Context, node Node) error
	AddEdge(ctx context.Context, edge Edge) error
	AddVulnerability(ctx context.Context, vuln Vulnerability) error
	LinkVulnerability(ctx context.Context, vulnID, nodeID string) error
}

// ContainsEdgeType reports whether t is in types. An empty list contains every type.
func ContainsEdgeType(types []EdgeType, t EdgeType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
