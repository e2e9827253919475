// Package loader reads topology documents and replays them into a graph backend.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
	"github.com/dd0wney/cluso-attackpath/pkg/validation"
)

// Document is the on-disk topology format.
type Document struct {
	Nodes           []NodeSpec          `yaml:"nodes" validate:"dive"`
	Edges           []EdgeSpec          `yaml:"edges" validate:"dive"`
	Vulnerabilities []VulnerabilitySpec `yaml:"vulnerabilities" validate:"dive"`
}

// NodeSpec describes one node.
type NodeSpec struct {
	ID          string `yaml:"id" validate:"required,ident"`
	Type        string `yaml:"type" validate:"required,oneof=NetworkInterface Component"`
	Name        string `yaml:"name"`
	Zone        string `yaml:"zone"`
	Criticality string `yaml:"criticality" validate:"omitempty,oneof=low medium high critical"`
}

// EdgeSpec describes one connectivity or dependency edge. A missing allowed
// field means the edge is traversable.
type EdgeSpec struct {
	From         string `yaml:"from" validate:"required,ident"`
	To           string `yaml:"to" validate:"required,ident"`
	Type         string `yaml:"type" validate:"required,oneof=CONNECTS_TO DEPENDS_ON"`
	Allowed      *bool  `yaml:"allowed"`
	Protocol     string `yaml:"protocol"`
	FirewallRule string `yaml:"firewall_rule"`
	Action       string `yaml:"action" validate:"omitempty,oneof=allow deny"`
}

// VulnerabilitySpec describes a vulnerability and the components it affects.
type VulnerabilitySpec struct {
	ID      string   `yaml:"id" validate:"required,ident"`
	Name    string   `yaml:"name"`
	CVSS    float64  `yaml:"cvss_score" validate:"gte=0,lte=10"`
	Affects []string `yaml:"affects" validate:"dive,ident"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Nodes           int
	Edges           int
	Vulnerabilities int
	Links           int
}

// Parse decodes and validates a YAML topology document. Unknown keys are rejected.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode topology: %w", err)
	}
	if err := validation.ValidateStruct(&doc); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	return &doc, nil
}

// LoadFile parses the topology document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Node converts the document entry to a topology node.
func (n NodeSpec) Node() topology.Node {
	return topology.Node{
		ID:          n.ID,
		Kind:        topology.NodeKind(n.Type),
		Name:        n.Name,
		Zone:        n.Zone,
		Criticality: topology.Criticality(n.Criticality),
	}
}

// Edge converts the document entry to a topology edge, applying attribute defaults.
func (e EdgeSpec) Edge() topology.Edge {
	edge := topology.NewEdge(e.From, e.To, topology.EdgeType(e.Type))
	if e.Allowed != nil {
		edge.Allowed = *e.Allowed
	}
	if e.Protocol != "" {
		edge.Protocol = e.Protocol
	}
	edge.FirewallRule = e.FirewallRule
	edge.Action = topology.Action(e.Action)
	return edge
}

// Apply writes doc into b: nodes, then edges, then vulnerabilities and their
// AFFECTS links. It stops at the first failure.
func Apply(ctx context.Context, b topology.Builder, doc *Document) (Summary, error) {
	var sum Summary
	for _, n := range doc.Nodes {
		if err := b.AddNode(ctx, n.Node()); err != nil {
			return sum, fmt.Errorf("node %s: %w", n.ID, err)
		}
		sum.Nodes++
	}
	for i, e := range doc.Edges {
		if err := b.AddEdge(ctx, e.Edge()); err != nil {
			return sum, fmt.Errorf("edge %d (%s->%s): %w", i, e.From, e.To, err)
		}
		sum.Edges++
	}
	for _, v := range doc.Vulnerabilities {
		vuln := topology.Vulnerability{ID: v.ID, Name: v.Name, CVSS: v.CVSS}
		if err := b.AddVulnerability(ctx, vuln); err != nil {
			return sum, fmt.Errorf("vulnerability %s: %w", v.ID, err)
		}
		sum.Vulnerabilities++
		for _, target := range v.Affects {
			if err := b.LinkVulnerability(ctx, v.ID, target); err != nil {
				return sum, fmt.Errorf("vulnerability %s affects %s: %w", v.ID, target, err)
			}
			sum.Links++
		}
	}
	return sum, nil
}
