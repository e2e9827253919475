package attackpath

import (
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// Violation describes one edge that fails a compliance rule.
type Violation struct {
	Rule      string `json:"rule"`
	EdgeIndex int    `json:"edge_index"`
	From      string `json:"from"`
	To        string `json:"to"`
	Detail    string `json:"detail"`
}

// AttackPath is one route an attacker could traverse. Discovery constructs it,
// scoring and compliance enrich it, and aggregation and reporting only read it.
type AttackPath struct {
	Nodes []topology.Node `json:"nodes"`
	Edges []topology.Edge `json:"edges"`
	Hops  int             `json:"hops"`

	// CVSSScore is the mean CVSS over the distinct vulnerabilities on the path.
	CVSSScore float64 `json:"cvss_score"`
	MaxCVSS   float64 `json:"max_cvss"`
	RiskScore float64 `json:"risk_score"`

	// Vulnerabilities holds distinct ids in first-seen order along the path.
	Vulnerabilities []string                 `json:"vulnerabilities"`
	Findings        []topology.Vulnerability `json:"findings,omitempty"`

	FirewallRulesValidated bool        `json:"firewall_rules_validated"`
	ProtocolCompliant      bool        `json:"protocol_compliant"`
	Violations             []Violation `json:"violations,omitempty"`
}

// New builds a path from its nodes, the edges joining consecutive nodes, and the
// vulnerabilities touching any node on it. Duplicate vulnerability ids are
// collapsed to their first occurrence.
func New(nodes []topology.Node, edges []topology.Edge, vulns []topology.Vulnerability) (*AttackPath, error) {
	if len(nodes) < 2 {
		return nil, MalformedPath("path needs at least 2 nodes, got %d", len(nodes))
	}
	if len(edges) != len(nodes)-1 {
		return nil, MalformedPath("%d nodes need %d edges, got %d", len(nodes), len(nodes)-1, len(edges))
	}
	for i, e := range edges {
		a, b := nodes[i].Key(), nodes[i+1].Key()
		if !(e.From == a && e.To == b) && !(e.From == b && e.To == a) {
			return nil, MalformedPath("edge %d (%s->%s) does not join %s and %s", i, e.From, e.To, a, b)
		}
	}

	p := &AttackPath{
		Nodes:           append([]topology.Node(nil), nodes...),
		Edges:           append([]topology.Edge(nil), edges...),
		Hops:            len(edges),
		Vulnerabilities: []string{},
	}

	seen := make(map[string]struct{}, len(vulns))
	var sum float64
	for _, v := range vulns {
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		p.Vulnerabilities = append(p.Vulnerabilities, v.ID)
		p.Findings = append(p.Findings, v)
		sum += v.CVSS
		if v.CVSS > p.MaxCVSS {
			p.MaxCVSS = v.CVSS
		}
	}
	if n := len(p.Findings); n > 0 {
		p.CVSSScore = sum / float64(n)
	}
	return p, nil
}

// Source returns the first node of the path.
func (p *AttackPath) Source() topology.Node {
	return p.Nodes[0]
}

// Target returns the last node of the path.
func (p *AttackPath) Target() topology.Node {
	return p.Nodes[len(p.Nodes)-1]
}

// NodeNames returns the display names of the nodes in order.
func (p *AttackPath) NodeNames() []string {
	names := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		names[i] = n.Label()
	}
	return names
}

// NodeKeys returns the node identities in order.
func (p *AttackPath) NodeKeys() []string {
	keys := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		keys[i] = n.Key()
	}
	return keys
}

// Validated is true when the path passes both compliance checks.
func (p *AttackPath) Validated() bool {
	return p.FirewallRulesValidated && p.ProtocolCompliant
}
