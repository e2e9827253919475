package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	external = topology.ByZone("external")
	critical = topology.ByCriticality(topology.CriticalityCritical)
)

func TestFindPathsSingleHop(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		comp("B", topology.CriticalityCritical).
		link("A", "B").
		vuln("V1", 9.8, "B")

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 5, 0)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	p := paths[0]
	assert.Equal(t, 1, p.Hops)
	assert.Len(t, p.Edges, 1)
	assert.Equal(t, 9.8, p.CVSSScore)
	assert.Equal(t, []string{"V1"}, p.Vulnerabilities)
	assert.Equal(t, []string{"A", "B"}, p.NodeKeys())
}

func TestFindPathsSkipsDisallowedEdges(t *testing.T) {
	blocked := topology.NewEdge("A", "B", topology.EdgeConnectsTo)
	blocked.Allowed = false

	g := newGraph(t).
		iface("A", "external").
		comp("B", topology.CriticalityCritical).
		edge(blocked).
		vuln("V1", 9.8, "B")

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 5, 0)
	require.NoError(t, err, "zero paths is not an error")
	assert.NotNil(t, paths)
	assert.Empty(t, paths)
}

func TestFindPathsProtocolDoesNotBlockTraversal(t *testing.T) {
	smtp := topology.NewEdge("A", "B", topology.EdgeConnectsTo)
	smtp.Protocol = "SMTP"

	g := newGraph(t).iface("A", "external").comp("B", topology.CriticalityCritical).edge(smtp)

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 5, 0)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "SMTP", paths[0].Edges[0].Protocol)
}

func TestFindPathsRejectsInvalidParameters(t *testing.T) {
	g := newGraph(t).iface("A", "external")
	e := newEngine(t, g.gs)
	ctx := context.Background()

	tests := []struct {
		name    string
		source  topology.Selector
		target  topology.Selector
		maxHops int
		limit   int
	}{
		{"zero hops", external, critical, 0, 0},
		{"negative hops", external, critical, -3, 0},
		{"above ceiling", external, critical, 21, 0},
		{"negative limit", external, critical, 5, -1},
		{"empty source", topology.Selector{}, critical, 5, 0},
		{"empty target", external, topology.Selector{}, 5, 0},
		{"unknown field", topology.Selector{Field: "owner", Value: "x"}, critical, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.FindPaths(ctx, tt.source, tt.target, tt.maxHops, tt.limit)
			require.Error(t, err)
			assert.True(t, errors.Is(err, attackpath.ErrInvalidTraversalParameters), "got %v", err)
			assert.False(t, attackpath.IsGraphUnavailable(err))
		})
	}
}

func TestInvalidParametersRejectedBeforeGraphAccess(t *testing.T) {
	g := &faultyGraph{failLookup: true, err: errors.New("must not be called")}
	e := newEngine(t, g)

	_, err := e.FindPaths(context.Background(), external, critical, 0, 0)
	assert.True(t, attackpath.IsInvalidParameters(err))
}

func TestFindPathsOrdering(t *testing.T) {
	// A -> C (1 hop, cvss 5)
	// A -> X -> D (2 hops, cvss 10)
	// E -> D (1 hop, cvss 10)
	g := newGraph(t).
		iface("A", "external").
		iface("E", "external").
		iface("X", "dmz").
		comp("C", topology.CriticalityCritical).
		comp("D", topology.CriticalityCritical).
		link("A", "C").
		link("A", "X").
		link("X", "D").
		link("E", "D").
		vuln("V5", 5.0, "C").
		vuln("V10", 10.0, "D")

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 5, 0)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"E", "D"},      // 1 hop, cvss 10
		{"A", "C"},      // 1 hop, cvss 5
		{"A", "X", "D"}, // 2 hops
	}, keys(paths))
}

func TestFindPathsTiesKeepNaturalOrder(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		iface("B", "external").
		comp("T1", topology.CriticalityCritical).
		comp("T2", topology.CriticalityCritical).
		link("B", "T2").
		link("A", "T2").
		link("A", "T1")

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "T2"}, {"A", "T1"}, {"B", "T2"}}, keys(paths))
}

func TestFindPathsLimitAppliedAfterMerge(t *testing.T) {
	// source A only reaches targets through long chains; B reaches one directly
	g := newGraph(t).
		iface("A", "external").
		iface("B", "external").
		iface("M1", "dmz").
		iface("M2", "dmz").
		comp("T", topology.CriticalityCritical).
		comp("U", topology.CriticalityCritical).
		link("A", "M1").link("M1", "M2").link("M2", "T").
		link("A", "M2").link("M2", "U").
		link("B", "T")

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 5, 1)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"B", "T"}, paths[0].NodeKeys())
}

func TestFindPathsDefaultLimit(t *testing.T) {
	g := newGraph(t).iface("A", "external")
	for i := 0; i < 60; i++ {
		id := "T" + string(rune('a'+i/26)) + string(rune('a'+i%26))
		g.comp(id, topology.CriticalityCritical).link("A", id)
	}

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 1, 0)
	require.NoError(t, err)
	assert.Len(t, paths, 50)
}

func TestFindPathsNoRevisit(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		iface("B", "dmz").
		iface("C", "dmz").
		comp("T", topology.CriticalityCritical).
		link("A", "B").link("B", "C").link("C", "A").link("C", "B").
		link("C", "T")

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B", "C", "T"}}, keys(paths))
}

func TestFindPathsTerminatesAtTarget(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		comp("T1", topology.CriticalityCritical).
		comp("T2", topology.CriticalityCritical).
		link("A", "T1").
		edge(topology.NewEdge("T1", "T2", topology.EdgeDependsOn))

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "T1"}}, keys(paths))
}

func TestFindPathsRespectsMaxHops(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		iface("B", "dmz").
		iface("C", "internal").
		comp("T", topology.CriticalityCritical).
		link("A", "B").link("B", "C").link("C", "T")

	e := newEngine(t, g.gs)
	short, err := e.FindPaths(context.Background(), external, critical, 2, 0)
	require.NoError(t, err)
	assert.Empty(t, short)

	exact, err := e.FindPaths(context.Background(), external, critical, 3, 0)
	require.NoError(t, err)
	assert.Len(t, exact, 1)
}

func TestPathVulnerabilitiesCoverEveryNode(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		comp("M", topology.CriticalityLow).
		comp("T", topology.CriticalityCritical).
		edge(topology.NewEdge("A", "M", topology.EdgeDependsOn)).
		edge(topology.NewEdge("M", "T", topology.EdgeDependsOn)).
		vuln("V1", 4.0, "M").
		vuln("V2", 8.0, "T", "M")

	paths, err := newEngine(t, g.gs).FindPaths(context.Background(), external, critical, 3, 0)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"V1", "V2"}, paths[0].Vulnerabilities)
	assert.InDelta(t, 6.0, paths[0].CVSSScore, 1e-9)
	assert.Equal(t, 8.0, paths[0].MaxCVSS)
}

func TestFindPathsByVulnerabilitySeverity(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		comp("Low", topology.CriticalityLow).
		comp("High", topology.CriticalityMedium).
		comp("Behind", topology.CriticalityLow).
		link("A", "Low").
		link("A", "High").
		link("Low", "Behind").
		vuln("V3", 3.1, "Low").
		vuln("V9", 9.1, "High").
		vuln("V7", 7.5, "Behind")

	paths, err := newEngine(t, g.gs).FindPathsByVulnerabilitySeverity(context.Background(), 7.0, 4, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "High"}, {"A", "Low", "Behind"}}, keys(paths))

	_, err = newEngine(t, g.gs).FindPathsByVulnerabilitySeverity(context.Background(), 10.5, 4, 0)
	assert.True(t, attackpath.IsInvalidParameters(err))
}

func TestEnumeratePathsBetween(t *testing.T) {
	g := newGraph(t).
		comp("S", topology.CriticalityLow).
		comp("M", topology.CriticalityLow).
		comp("N", topology.CriticalityLow).
		comp("E", topology.CriticalityHigh).
		edge(topology.NewEdge("S", "E", topology.EdgeDependsOn)).
		edge(topology.NewEdge("S", "M", topology.EdgeDependsOn)).
		edge(topology.NewEdge("M", "E", topology.EdgeDependsOn)).
		edge(topology.NewEdge("M", "N", topology.EdgeDependsOn)).
		edge(topology.NewEdge("N", "E", topology.EdgeDependsOn))
	e := newEngine(t, g.gs)
	ctx := context.Background()

	all, err := e.EnumeratePathsBetween(ctx, "S", "E", 0, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S", "E"}, {"S", "M", "E"}, {"S", "M", "N", "E"}}, keys(all))

	longer, err := e.EnumeratePathsBetween(ctx, "S", "E", 2, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S", "M", "E"}, {"S", "M", "N", "E"}}, keys(longer))

	_, err = e.EnumeratePathsBetween(ctx, "S", "E", 4, 3, 0)
	assert.True(t, attackpath.IsInvalidParameters(err))

	_, err = e.EnumeratePathsBetween(ctx, "", "E", 1, 3, 0)
	assert.True(t, attackpath.IsInvalidParameters(err))

	none, err := e.EnumeratePathsBetween(ctx, "E", "S", 1, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchInboundDirection(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		comp("B", topology.CriticalityCritical).
		link("A", "B")

	paths, err := newEngine(t, g.gs).Search(context.Background(), Request{
		Source:    critical,
		Target:    Target{Selector: external},
		MaxHops:   2,
		Direction: topology.DirectionInbound,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"B", "A"}, paths[0].NodeKeys())
}

func TestSearchEdgeTypeRestriction(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		comp("B", topology.CriticalityCritical).
		edge(topology.NewEdge("A", "B", topology.EdgeDependsOn))

	e := newEngine(t, g.gs)
	paths, err := e.Search(context.Background(), Request{
		Source:    external,
		Target:    Target{Selector: critical},
		MaxHops:   2,
		EdgeTypes: []topology.EdgeType{topology.EdgeConnectsTo},
	})
	require.NoError(t, err)
	assert.Empty(t, paths)

	_, err = e.Search(context.Background(), Request{
		Source:    external,
		Target:    Target{Selector: critical},
		MaxHops:   2,
		EdgeTypes: []topology.EdgeType{topology.EdgeAffects},
	})
	assert.True(t, attackpath.IsInvalidParameters(err))
}

func TestSearchSkipsDanglingEdges(t *testing.T) {
	g := newGraph(t).iface("A", "external").comp("B", topology.CriticalityCritical).link("A", "B")

	paths, err := newEngine(t, danglingGraph{g.gs}).FindPaths(context.Background(), external, critical, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}}, keys(paths))
}

func TestGraphFailureIsGraphUnavailable(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		iface("B", "external").
		comp("T", topology.CriticalityCritical).
		link("A", "T").
		link("B", "T")
	boom := errors.New("connection refused")

	t.Run("neighbors", func(t *testing.T) {
		e := newEngine(t, &faultyGraph{Graph: g.gs, failNeighborsOf: "B", err: boom})
		paths, err := e.FindPaths(context.Background(), external, critical, 3, 0)
		assert.Nil(t, paths, "no partial result")
		assert.ErrorIs(t, err, attackpath.ErrGraphUnavailable)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("lookup", func(t *testing.T) {
		e := newEngine(t, &faultyGraph{Graph: g.gs, failLookup: true, err: boom})
		_, err := e.FindPaths(context.Background(), external, critical, 3, 0)
		assert.ErrorIs(t, err, attackpath.ErrGraphUnavailable)
	})
}

func TestSearchTimeoutStopsWorkers(t *testing.T) {
	g := newGraph(t).iface("A", "external").iface("B", "external").comp("T", topology.CriticalityCritical)
	e := newEngine(t, &faultyGraph{Graph: g.gs, block: true})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.FindPaths(ctx, external, critical, 5, 0)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, attackpath.ErrGraphUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearchCanceledContext(t *testing.T) {
	g := newGraph(t).iface("A", "external").comp("T", topology.CriticalityCritical).link("A", "T")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, g.gs).FindPaths(ctx, external, critical, 5, 0)
	assert.ErrorIs(t, err, attackpath.ErrGraphUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindPathsIdempotent(t *testing.T) {
	g := newGraph(t).
		iface("A", "external").
		iface("E", "external").
		iface("X", "dmz").
		comp("C", topology.CriticalityCritical).
		comp("D", topology.CriticalityCritical).
		link("A", "C").link("A", "X").link("X", "D").link("E", "D").link("X", "C").
		vuln("V1", 6.5, "C").
		vuln("V2", 6.5, "D")
	e := newEngine(t, g.gs)

	first, err := e.FindPaths(context.Background(), external, critical, 4, 0)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.FindPaths(context.Background(), external, critical, 4, 0)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearchRecordsMetrics(t *testing.T) {
	g := newGraph(t).iface("A", "external").comp("B", topology.CriticalityCritical).link("A", "B")
	reg := metrics.NewRegistry()
	e := newEngine(t, g.gs, WithMetrics(reg))

	_, err := e.FindPaths(context.Background(), external, critical, 2, 0)
	require.NoError(t, err)
	_, err = e.FindPaths(context.Background(), external, critical, 0, 0)
	require.Error(t, err)

	counter, err := reg.DiscoveryRequestsTotal.GetMetricWithLabelValues("find_paths", "success")
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, counter.Write(&m))
	assert.Equal(t, 1.0, m.Counter.GetValue(), "rejected requests are not searches")
}

func TestNewValidatesPolicy(t *testing.T) {
	p := attackpath.DefaultPolicy()
	p.MaxHopsCeiling = 0
	_, err := New(newGraph(t).gs, p)
	assert.Error(t, err)

	_, err = New(nil, attackpath.DefaultPolicy())
	assert.Error(t, err)
}

func TestPolicyCeilingIsPerEngine(t *testing.T) {
	g := newGraph(t).iface("A", "external").comp("B", topology.CriticalityCritical).link("A", "B")
	strict := attackpath.DefaultPolicy()
	strict.MaxHopsCeiling = 3

	e, err := New(g.gs, strict)
	require.NoError(t, err)
	_, err = e.FindPaths(context.Background(), external, critical, 4, 0)
	assert.True(t, attackpath.IsInvalidParameters(err))

	loose := newEngine(t, g.gs)
	_, err = loose.FindPaths(context.Background(), external, critical, 4, 0)
	assert.NoError(t, err)
}
