package discovery

import (
	"context"
	"slices"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// partial is a path under construction.
type partial struct {
	nodes []topology.Node
	edges []topology.Edge
}

func (p partial) last() topology.Node {
	return p.nodes[len(p.nodes)-1]
}

func (p partial) contains(key string) bool {
	for _, n := range p.nodes {
		if n.Key() == key {
			return true
		}
	}
	return false
}

func (p partial) extend(n topology.Node, e topology.Edge) partial {
	return partial{
		nodes: append(slices.Clip(p.nodes), n),
		edges: append(slices.Clip(p.edges), e),
	}
}

// searcher runs the search for a single source. It owns its caches and is
// never shared between goroutines.
type searcher struct {
	graph topology.Graph
	req   Request

	nodes    map[string]*topology.Node // nil entry marks a dangling id
	vulns    map[string][]topology.Vulnerability
	expanded int
}

func newSearcher(graph topology.Graph, req Request) *searcher {
	return &searcher{
		graph: graph,
		req:   req,
		nodes: make(map[string]*topology.Node),
		vulns: make(map[string][]topology.Vulnerability),
	}
}

// run expands level by level from source. A branch stops at the first target
// node it reaches or when MaxHops edges have been used. The context is checked
// between levels.
func (s *searcher) run(ctx context.Context, source topology.Node) ([]*attackpath.AttackPath, error) {
	s.nodes[source.Key()] = &source

	var found []*attackpath.AttackPath
	frontier := []partial{{nodes: []topology.Node{source}}}

	for depth := 0; depth < s.req.MaxHops && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []partial
		for _, p := range frontier {
			s.expanded++
			from := p.last().Key()

			edges, err := s.graph.Neighbors(ctx, from, s.req.EdgeTypes, s.req.Direction)
			if err != nil {
				return nil, err
			}

			for _, e := range edges {
				if !e.Allowed {
					continue
				}
				to := s.step(from, e)
				if p.contains(to) {
					continue
				}
				n, err := s.node(ctx, to)
				if err != nil {
					return nil, err
				}
				if n == nil {
					continue
				}

				extended := p.extend(*n, e)
				hit, err := s.isTarget(ctx, *n)
				if err != nil {
					return nil, err
				}
				if !hit {
					next = append(next, extended)
					continue
				}
				if len(extended.edges) < s.req.MinHops {
					continue
				}
				path, err := s.materialize(ctx, extended)
				if err != nil {
					return nil, err
				}
				found = append(found, path)
			}
		}
		frontier = next
	}
	return found, nil
}

// step returns the node an edge leads to when walked from `from`.
func (s *searcher) step(from string, e topology.Edge) string {
	switch s.req.Direction {
	case topology.DirectionOutbound:
		return e.To
	case topology.DirectionInbound:
		return e.From
	default:
		return e.Other(from)
	}
}

func (s *searcher) node(ctx context.Context, id string) (*topology.Node, error) {
	if n, ok := s.nodes[id]; ok {
		return n, nil
	}
	nodes, err := s.graph.LookupNodes(ctx, topology.ByID(id))
	if err != nil {
		return nil, err
	}
	var n *topology.Node
	if len(nodes) > 0 {
		n = &nodes[0]
	}
	s.nodes[id] = n
	return n, nil
}

func (s *searcher) vulnerabilities(ctx context.Context, id string) ([]topology.Vulnerability, error) {
	if v, ok := s.vulns[id]; ok {
		return v, nil
	}
	v, err := s.graph.AffectingVulnerabilities(ctx, id)
	if err != nil {
		return nil, err
	}
	s.vulns[id] = v
	return v, nil
}

func (s *searcher) isTarget(ctx context.Context, n topology.Node) (bool, error) {
	t := s.req.Target
	if !t.Selector.IsZero() && !t.Selector.Matches(n) {
		return false, nil
	}
	if !t.RequireVulnerability {
		return true, nil
	}
	if n.Kind != topology.KindComponent {
		return false, nil
	}
	vulns, err := s.vulnerabilities(ctx, n.Key())
	if err != nil {
		return false, err
	}
	for _, v := range vulns {
		if v.CVSS >= t.MinCVSS {
			return true, nil
		}
	}
	return false, nil
}

// materialize gathers the vulnerabilities touching every node on p.
func (s *searcher) materialize(ctx context.Context, p partial) (*attackpath.AttackPath, error) {
	var vulns []topology.Vulnerability
	for _, n := range p.nodes {
		v, err := s.vulnerabilities(ctx, n.Key())
		if err != nil {
			return nil, err
		}
		vulns = append(vulns, v...)
	}
	return attackpath.New(p.nodes, p.edges, vulns)
}
