package discovery

import (
	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// Target decides where a path may end. When both are set, a node must satisfy
// the selector and carry a qualifying vulnerability.
type Target struct {
	Selector topology.Selector

	// RequireVulnerability restricts terminals to Components affected by at
	// least one vulnerability scoring MinCVSS or more.
	RequireVulnerability bool
	MinCVSS              float64
}

// Request is one constrained path search.
type Request struct {
	// Operation labels metrics and errors; defaults to "search".
	Operation string

	Source topology.Selector
	Target Target

	MinHops int // 0 means 1
	MaxHops int
	Limit   int // 0 means the policy default

	Direction topology.Direction
	EdgeTypes []topology.EdgeType // nil means the policy traversal types
}

// normalize validates req against the policy and fills defaults. It never
// touches the graph.
func (req Request) normalize(p attackpath.Policy) (Request, error) {
	op := req.Operation
	if op == "" {
		op = "search"
		req.Operation = op
	}

	if req.MaxHops < 1 || req.MaxHops > p.MaxHopsCeiling {
		return req, attackpath.InvalidParameters(op, "maxHops %d outside [1, %d]", req.MaxHops, p.MaxHopsCeiling)
	}
	if req.MinHops == 0 {
		req.MinHops = 1
	}
	if req.MinHops < 1 || req.MinHops > req.MaxHops {
		return req, attackpath.InvalidParameters(op, "minHops %d outside [1, %d]", req.MinHops, req.MaxHops)
	}
	if req.Limit < 0 {
		return req, attackpath.InvalidParameters(op, "limit %d must not be negative", req.Limit)
	}
	req.Limit = p.Limit(req.Limit)

	if err := req.Source.Validate(); err != nil {
		return req, attackpath.InvalidParameters(op, "source selector: %v", err)
	}
	if !req.Target.Selector.IsZero() {
		if err := req.Target.Selector.Validate(); err != nil {
			return req, attackpath.InvalidParameters(op, "target selector: %v", err)
		}
	} else if !req.Target.RequireVulnerability {
		return req, attackpath.InvalidParameters(op, "target selector is empty")
	}
	if req.Target.MinCVSS < 0 || req.Target.MinCVSS > 10 {
		return req, attackpath.InvalidParameters(op, "minCVSS %g outside [0, 10]", req.Target.MinCVSS)
	}

	switch req.Direction {
	case topology.DirectionOutbound, topology.DirectionInbound, topology.DirectionBoth:
	default:
		return req, attackpath.InvalidParameters(op, "unknown direction %d", req.Direction)
	}

	if len(req.EdgeTypes) == 0 {
		req.EdgeTypes = p.TraversalEdgeTypes
	}
	for _, t := range req.EdgeTypes {
		if t != topology.EdgeConnectsTo && t != topology.EdgeDependsOn {
			return req, attackpath.InvalidParameters(op, "edge type %q is not traversable", t)
		}
	}
	return req, nil
}
