package storage

import (
	"context"
	"sync/atomic"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// AddNode inserts a node keyed by its ID (or name when the ID is empty).
func (gs *GraphStorage) AddNode(ctx context.Context, node topology.Node) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return NewError("AddNode").Node(node.Key()).Cause(err).Err()
	}
	if gs.closed {
		return NewError("AddNode").Cause(ErrStorageClosed).Err()
	}

	key := node.Key()
	if key == "" {
		return NewError("AddNode").Node(key).Field("id").Cause(ErrInvalidNode).Err()
	}
	if !node.Kind.Valid() {
		return NewError("AddNode").Node(key).Field("type").
			Context("unknown kind " + string(node.Kind)).Cause(ErrInvalidNode).Err()
	}
	if _, exists := gs.nodes[key]; exists {
		return NewError("AddNode").Node(key).Cause(ErrDuplicateNode).Err()
	}

	n := node
	gs.nodes[key] = &n
	gs.nodeOrder = append(gs.nodeOrder, key)

	// Update indexes
	if n.Name != "" {
		gs.nodesByName[n.Name] = append(gs.nodesByName[n.Name], key)
	}
	gs.nodesByKind[n.Kind] = append(gs.nodesByKind[n.Kind], key)
	if n.Zone != "" {
		gs.nodesByZone[n.Zone] = append(gs.nodesByZone[n.Zone], key)
	}
	if n.Criticality != "" {
		gs.nodesByCriticality[n.Criticality] = append(gs.nodesByCriticality[n.Criticality], key)
	}

	atomic.AddUint64(&gs.stats.NodeCount, 1)
	gs.publishCounts()
	return nil
}

// GetNode retrieves a node by key
func (gs *GraphStorage) GetNode(id string) (topology.Node, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return topology.Node{}, NewError("GetNode").Cause(ErrStorageClosed).Err()
	}
	node, exists := gs.nodes[id]
	if !exists {
		return topology.Node{}, NodeNotFoundError("GetNode", id)
	}
	return *node, nil
}

// LookupNodes returns every node matching sel in insertion order. An unknown
// id yields an empty result, not an error.
func (gs *GraphStorage) LookupNodes(ctx context.Context, sel topology.Selector) (result []topology.Node, err error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	done, err := gs.begin(ctx, "lookup_nodes")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	if err := sel.Validate(); err != nil {
		return nil, NewError("LookupNodes").Context(sel.String()).Cause(err).Err()
	}

	var keys []string
	switch sel.Field {
	case topology.FieldID:
		if _, ok := gs.nodes[sel.Value]; ok {
			keys = []string{sel.Value}
		}
	case topology.FieldName:
		keys = gs.nodesByName[sel.Value]
	case topology.FieldKind:
		keys = gs.nodesByKind[topology.NodeKind(sel.Value)]
	case topology.FieldZone:
		keys = gs.nodesByZone[sel.Value]
	case topology.FieldCriticality:
		keys = gs.nodesByCriticality[topology.Criticality(sel.Value)]
	}

	result = make([]topology.Node, 0, len(keys))
	for _, key := range keys {
		result = append(result, *gs.nodes[key])
	}
	return result, nil
}

// AllNodes returns every node in insertion order.
func (gs *GraphStorage) AllNodes() []topology.Node {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	out := make([]topology.Node, 0, len(gs.nodeOrder))
	for _, key := range gs.nodeOrder {
		out = append(out, *gs.nodes[key])
	}
	return out
}
