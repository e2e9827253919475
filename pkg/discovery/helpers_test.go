package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/storage"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

type graphBuilder struct {
	t  *testing.T
	gs *storage.GraphStorage
}

func newGraph(t *testing.T) *graphBuilder {
	t.Helper()
	return &graphBuilder{t: t, gs: storage.New()}
}

func (b *graphBuilder) iface(id, zone string) *graphBuilder {
	b.t.Helper()
	require.NoError(b.t, b.gs.AddNode(context.Background(),
		topology.Node{ID: id, Kind: topology.KindNetworkInterface, Name: id, Zone: zone}))
	return b
}

func (b *graphBuilder) comp(id string, c topology.Criticality) *graphBuilder {
	b.t.Helper()
	require.NoError(b.t, b.gs.AddNode(context.Background(),
		topology.Node{ID: id, Kind: topology.KindComponent, Name: id, Criticality: c}))
	return b
}

func (b *graphBuilder) edge(e topology.Edge) *graphBuilder {
	b.t.Helper()
	require.NoError(b.t, b.gs.AddEdge(context.Background(), e))
	return b
}

func (b *graphBuilder) link(from, to string) *graphBuilder {
	return b.edge(topology.NewEdge(from, to, topology.EdgeConnectsTo))
}

func (b *graphBuilder) vuln(id string, cvss float64, affects ...string) *graphBuilder {
	b.t.Helper()
	ctx := context.Background()
	require.NoError(b.t, b.gs.AddVulnerability(ctx, topology.Vulnerability{ID: id, CVSS: cvss}))
	for _, n := range affects {
		require.NoError(b.t, b.gs.LinkVulnerability(ctx, id, n))
	}
	return b
}

func newEngine(t *testing.T, g topology.Graph, opts ...Option) *Engine {
	t.Helper()
	e, err := New(g, attackpath.DefaultPolicy(), opts...)
	require.NoError(t, err)
	return e
}

func keys(paths []*attackpath.AttackPath) [][]string {
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = p.NodeKeys()
	}
	return out
}

// faultyGraph injects failures into an otherwise working graph.
type faultyGraph struct {
	topology.Graph
	failNeighborsOf string
	failLookup      bool
	block           bool
	err             error
}

func (f *faultyGraph) LookupNodes(ctx context.Context, sel topology.Selector) ([]topology.Node, error) {
	if f.failLookup {
		return nil, f.err
	}
	return f.Graph.LookupNodes(ctx, sel)
}

func (f *faultyGraph) Neighbors(ctx context.Context, id string, types []topology.EdgeType, dir topology.Direction) ([]topology.Edge, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if id == f.failNeighborsOf {
		return nil, f.err
	}
	return f.Graph.Neighbors(ctx, id, types, dir)
}

// danglingGraph reports an edge to a node that LookupNodes cannot resolve.
type danglingGraph struct {
	topology.Graph
}

func (d danglingGraph) Neighbors(ctx context.Context, id string, types []topology.EdgeType, dir topology.Direction) ([]topology.Edge, error) {
	edges, err := d.Graph.Neighbors(ctx, id, types, dir)
	if err != nil {
		return nil, err
	}
	if id == "A" {
		edges = append([]topology.Edge{topology.NewEdge("A", "ghost", topology.EdgeConnectsTo)}, edges...)
	}
	return edges, nil
}
