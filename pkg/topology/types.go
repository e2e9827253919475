package topology

import "strings"

// NodeKind tags the two node variants a topology graph carries.
type NodeKind string

const (
	KindNetworkInterface NodeKind = "NetworkInterface"
	KindComponent        NodeKind = "Component"
)

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	return k == KindNetworkInterface || k == KindComponent
}

// Criticality ranks how valuable a component is to an attacker.
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// Rank orders criticalities from 1 (low) to 4 (critical). Unknown values rank 0.
func (c Criticality) Rank() int {
	switch c {
	case CriticalityLow:
		return 1
	case CriticalityMedium:
		return 2
	case CriticalityHigh:
		return 3
	case CriticalityCritical:
		return 4
	default:
		return 0
	}
}

// EdgeType is the relation an edge expresses.
type EdgeType string

const (
	EdgeConnectsTo EdgeType = "CONNECTS_TO"
	EdgeDependsOn  EdgeType = "DEPENDS_ON"
	EdgeAffects    EdgeType = "AFFECTS"
)

// Action is the verdict of a firewall rule attached to an edge.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// DefaultProtocol is assumed for edges that do not state one.
const DefaultProtocol = "TCP"

// Direction selects which adjacency list Neighbors walks.
type Direction int

const (
	DirectionOutbound Direction = iota
	DirectionInbound
	DirectionBoth
)

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOutbound:
		return "outbound"
	case DirectionInbound:
		return "inbound"
	case DirectionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseDirection converts a textual direction. Empty means outbound.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "out", "outbound":
		return DirectionOutbound, true
	case "in", "inbound":
		return DirectionInbound, true
	case "both":
		return DirectionBoth, true
	default:
		return DirectionOutbound, false
	}
}

// Node is a vertex of the topology: a network interface or a component.
// Zone is meaningful for interfaces, Criticality for components.
type Node struct {
	ID          string      `json:"id"`
	Kind        NodeKind    `json:"type"`
	Name        string      `json:"name,omitempty"`
	Zone        string      `json:"zone,omitempty"`
	Criticality Criticality `json:"criticality,omitempty"`
}

// Key is the stable identity of a node: its ID, or its name when the ID is absent.
func (n Node) Key() string {
	if n.ID != "" {
		return n.ID
	}
	return n.Name
}

// Label returns the display name, falling back to the key.
func (n Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Key()
}

// Edge is a directed relation between two nodes. Its identity is (From, To, Type).
type Edge struct {
	From         string   `json:"from"`
	To           string   `json:"to"`
	Type         EdgeType `json:"type"`
	Allowed      bool     `json:"allowed"`
	Protocol     string   `json:"protocol,omitempty"`
	FirewallRule string   `json:"firewall_rule,omitempty"`
	Action       Action   `json:"action,omitempty"`
}

// NewEdge returns an edge carrying the attribute defaults: traversable over TCP.
func NewEdge(from, to string, edgeType EdgeType) Edge {
	return Edge{
		From:     from,
		To:       to,
		Type:     edgeType,
		Allowed:  true,
		Protocol: DefaultProtocol,
	}
}

// EffectiveProtocol returns the edge protocol, or TCP when none was stated.
func (e Edge) EffectiveProtocol() string {
	if strings.TrimSpace(e.Protocol) == "" {
		return DefaultProtocol
	}
	return e.Protocol
}

// Other returns the endpoint of e opposite to nodeID.
func (e Edge) Other(nodeID string) string {
	if e.From == nodeID {
		return e.To
	}
	return e.From
}

// Vulnerability is a known weakness with a CVSS base score in [0, 10].
type Vulnerability struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	CVSS float64 `json:"cvss_score"`
}
