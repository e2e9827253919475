package reporting

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

type pathSpec struct {
	hops       int
	risk       float64
	vulns      int
	violations int
	validated  bool
}

func makePath(t *testing.T, tag string, s pathSpec) *attackpath.AttackPath {
	t.Helper()
	nodes := make([]topology.Node, s.hops+1)
	for i := range nodes {
		nodes[i] = topology.Node{ID: fmt.Sprintf("%s-%d", tag, i), Name: fmt.Sprintf("%s node %d", tag, i)}
	}
	edges := make([]topology.Edge, s.hops)
	for i := range edges {
		edges[i] = topology.NewEdge(nodes[i].ID, nodes[i+1].ID, topology.EdgeConnectsTo)
	}
	vulns := make([]topology.Vulnerability, s.vulns)
	for i := range vulns {
		vulns[i] = topology.Vulnerability{ID: fmt.Sprintf("CVE-%s-%d", tag, i), CVSS: 5}
	}
	p, err := attackpath.New(nodes, edges, vulns)
	require.NoError(t, err)

	p.RiskScore = s.risk
	p.FirewallRulesValidated = s.validated
	p.ProtocolCompliant = s.validated
	for i := 0; i < s.violations; i++ {
		rule := "protocol_not_allowed"
		if i%2 == 1 {
			rule = "edge_not_allowed"
		}
		p.Violations = append(p.Violations, attackpath.Violation{Rule: rule, EdgeIndex: 0})
	}
	return p
}

func TestBuildReportEmpty(t *testing.T) {
	r := BuildReport(nil)
	assert.True(t, r.NoPathsFound)
	assert.Zero(t, r.TotalPaths)
	assert.Zero(t, r.AverageHops)
	assert.Zero(t, r.AverageCVSS)
	assert.Zero(t, r.AverageRiskScore)
	assert.Empty(t, r.TopRiskPaths)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"no_paths_found":true`)
	assert.Contains(t, string(data), `"top_risk_paths":[]`)
}

func TestBuildReportAggregates(t *testing.T) {
	paths := []*attackpath.AttackPath{
		makePath(t, "a", pathSpec{hops: 1, risk: 6.0, vulns: 1, validated: true}),
		makePath(t, "b", pathSpec{hops: 3, risk: 2.0, vulns: 0}),
	}
	paths[1].ProtocolCompliant = true

	r := BuildReport(paths)
	assert.False(t, r.NoPathsFound)
	assert.Equal(t, 2, r.TotalPaths)
	assert.InDelta(t, 2.0, r.AverageHops, 1e-9)
	assert.InDelta(t, 2.5, r.AverageCVSS, 1e-9)
	assert.InDelta(t, 4.0, r.AverageRiskScore, 1e-9)
	assert.Equal(t, 1, r.FirewallValidatedPaths)
	assert.Equal(t, 2, r.ProtocolCompliantPaths)
}

func TestTopRiskPaths(t *testing.T) {
	var paths []*attackpath.AttackPath
	for i := 0; i < 12; i++ {
		paths = append(paths, makePath(t, fmt.Sprintf("p%d", i), pathSpec{hops: 2, risk: float64(i), vulns: 7}))
	}
	paths = append(paths, makePath(t, "neg", pathSpec{hops: 9, risk: -0.6}))

	r := BuildReport(paths)
	require.Len(t, r.TopRiskPaths, 10)
	assert.Equal(t, 11.0, r.TopRiskPaths[0].RiskScore)
	assert.Equal(t, 2.0, r.TopRiskPaths[9].RiskScore)
	assert.Len(t, r.TopRiskPaths[0].Vulnerabilities, 5)
	assert.Equal(t, "p11 node 0", r.TopRiskPaths[0].Source)
	assert.Equal(t, "p11 node 2", r.TopRiskPaths[0].Target)
	assert.Nil(t, r.TopRiskPaths[0].DisplayRiskScore)

	assert.Equal(t, "p0", paths[0].Nodes[0].ID[:2], "input order is preserved")
}

func TestTopRiskTiesKeepInputOrder(t *testing.T) {
	paths := []*attackpath.AttackPath{
		makePath(t, "first", pathSpec{hops: 1, risk: 3}),
		makePath(t, "second", pathSpec{hops: 2, risk: 3}),
	}
	r := BuildReport(paths)
	assert.Equal(t, "first node 0", r.TopRiskPaths[0].Source)
	assert.Equal(t, "second node 0", r.TopRiskPaths[1].Source)
}

func TestShortestPaths(t *testing.T) {
	var paths []*attackpath.AttackPath
	for _, h := range []int{4, 1, 6, 2, 1, 3, 5} {
		paths = append(paths, makePath(t, fmt.Sprintf("h%d", h), pathSpec{hops: h}))
	}

	r := BuildReport(paths)
	require.Len(t, r.ShortestPaths, 5)
	var hops []int
	for _, e := range r.ShortestPaths {
		hops = append(hops, e.Hops)
		assert.Len(t, e.Nodes, e.Hops+1)
	}
	assert.Equal(t, []int{1, 1, 2, 3, 4}, hops)
	assert.Equal(t, []string{"h1 node 0", "h1 node 1"}, r.ShortestPaths[0].Nodes)
}

func TestMostViolatingPaths(t *testing.T) {
	paths := []*attackpath.AttackPath{
		makePath(t, "clean", pathSpec{hops: 1, risk: 9, validated: true}),
		makePath(t, "one", pathSpec{hops: 1, risk: 2, violations: 1}),
		makePath(t, "three", pathSpec{hops: 2, risk: 1, violations: 3}),
		makePath(t, "one-high", pathSpec{hops: 2, risk: 5, violations: 1}),
	}

	r := BuildReport(paths)
	require.Len(t, r.MostViolatingPaths, 3)
	assert.Equal(t, "three node 0", r.MostViolatingPaths[0].Source)
	assert.Equal(t, 3, r.MostViolatingPaths[0].Violations)
	assert.Equal(t, []string{"protocol_not_allowed", "edge_not_allowed"}, r.MostViolatingPaths[0].Rules)
	assert.Equal(t, "one-high node 0", r.MostViolatingPaths[1].Source)
	assert.Equal(t, "one node 0", r.MostViolatingPaths[2].Source)
}

func TestDisplayClamping(t *testing.T) {
	paths := []*attackpath.AttackPath{
		makePath(t, "neg", pathSpec{hops: 12, risk: -0.5}),
		makePath(t, "pos", pathSpec{hops: 1, risk: 1.5}),
	}

	r := Build(paths, Options{ClampDisplayScores: true})
	require.Len(t, r.TopRiskPaths, 2)
	assert.Equal(t, 1.5, r.TopRiskPaths[0].RiskScore)
	assert.Equal(t, 1.5, *r.TopRiskPaths[0].DisplayRiskScore)
	assert.Equal(t, -0.5, r.TopRiskPaths[1].RiskScore, "ordering uses the raw score")
	assert.Equal(t, 0.0, *r.TopRiskPaths[1].DisplayRiskScore)
	assert.InDelta(t, 0.5, r.AverageRiskScore, 1e-9)
}
