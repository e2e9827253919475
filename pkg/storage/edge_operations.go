package storage

import (
	"context"
	"sync/atomic"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// AddEdge inserts a connectivity or dependency edge between two existing nodes.
// AFFECTS relations are recorded with LinkVulnerability instead.
func (gs *GraphStorage) AddEdge(ctx context.Context, edge topology.Edge) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return NewError("AddEdge").Edge(edge.From, edge.To).Cause(err).Err()
	}
	if gs.closed {
		return NewError("AddEdge").Cause(ErrStorageClosed).Err()
	}

	switch edge.Type {
	case topology.EdgeConnectsTo, topology.EdgeDependsOn:
	case topology.EdgeAffects:
		return NewError("AddEdge").Edge(edge.From, edge.To).Field("type").
			Context("use LinkVulnerability").Cause(ErrInvalidEdge).Err()
	default:
		return NewError("AddEdge").Edge(edge.From, edge.To).Field("type").Cause(ErrInvalidEdge).Err()
	}
	if edge.Action != "" && edge.Action != topology.ActionAllow && edge.Action != topology.ActionDeny {
		return NewError("AddEdge").Edge(edge.From, edge.To).Field("action").Cause(ErrInvalidEdge).Err()
	}
	if _, ok := gs.nodes[edge.From]; !ok {
		return NodeNotFoundError("AddEdge", edge.From)
	}
	if _, ok := gs.nodes[edge.To]; !ok {
		return NodeNotFoundError("AddEdge", edge.To)
	}

	key := edgeKey{from: edge.From, to: edge.To, typ: edge.Type}
	if _, exists := gs.edgeIndex[key]; exists {
		return NewError("AddEdge").Edge(edge.From, edge.To).Context(string(edge.Type)).Cause(ErrDuplicateEdge).Err()
	}

	ordinal := len(gs.edges)
	gs.edges = append(gs.edges, edge)
	gs.edgeIndex[key] = ordinal
	gs.outgoingEdges[edge.From] = append(gs.outgoingEdges[edge.From], ordinal)
	gs.incomingEdges[edge.To] = append(gs.incomingEdges[edge.To], ordinal)

	atomic.AddUint64(&gs.stats.EdgeCount, 1)
	gs.publishCounts()
	return nil
}

// Neighbors returns the edges incident to nodeID in the requested direction,
// filtered by type (an empty list matches every type) and ordered by insertion.
func (gs *GraphStorage) Neighbors(ctx context.Context, nodeID string, types []topology.EdgeType, dir topology.Direction) (result []topology.Edge, err error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	done, err := gs.begin(ctx, "neighbors")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	if _, ok := gs.nodes[nodeID]; !ok {
		return nil, NodeNotFoundError("Neighbors", nodeID)
	}

	var ordinals []int
	switch dir {
	case topology.DirectionOutbound:
		ordinals = gs.outgoingEdges[nodeID]
	case topology.DirectionInbound:
		ordinals = gs.incomingEdges[nodeID]
	case topology.DirectionBoth:
		ordinals = mergeOrdinals(gs.outgoingEdges[nodeID], gs.incomingEdges[nodeID])
	default:
		return nil, NewError("Neighbors").Node(nodeID).Context("direction " + dir.String()).Cause(ErrInvalidEdge).Err()
	}

	result = make([]topology.Edge, 0, len(ordinals))
	for _, ord := range ordinals {
		e := gs.edges[ord]
		if topology.ContainsEdgeType(types, e.Type) {
			result = append(result, e)
		}
	}
	return result, nil
}

// mergeOrdinals merges two ascending ordinal lists, dropping duplicates
// (a self-loop appears in both).
func mergeOrdinals(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i >= len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
