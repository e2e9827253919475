// Package visualization merges attack paths into a deduplicated node/link
// projection and lays it out for rendering.
package visualization

import (
	"encoding/json"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/scoring"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// Node is a distinct topology node, indexed in first-seen order.
type Node struct {
	ID          int                  `json:"id"`
	Key         string               `json:"key"`
	Label       string               `json:"label"`
	Type        topology.NodeKind    `json:"type"`
	Criticality topology.Criticality `json:"criticality,omitempty"`
	Zone        string               `json:"zone,omitempty"`
}

// Link is one hop of one path. Source and Target are node indexes.
type Link struct {
	Source   int               `json:"source"`
	Target   int               `json:"target"`
	Type     topology.EdgeType `json:"type"`
	Protocol string            `json:"protocol"`
	Allowed  bool              `json:"allowed"`
	PathID   int               `json:"path_id"`
}

// PathSummary is the per-path record shown alongside the projection.
type PathSummary struct {
	ID               int      `json:"id"`
	RiskScore        float64  `json:"risk_score"`
	DisplayRiskScore *float64 `json:"display_risk_score,omitempty"`
	CVSSScore        float64  `json:"cvss_score"`
	Hops             int      `json:"hops"`
	Vulnerabilities  []string `json:"vulnerabilities"`
	Validated        bool     `json:"validated"`
}

// Projection is the merged view of a set of paths.
type Projection struct {
	Nodes     []Node           `json:"nodes"`
	Links     []Link           `json:"links"`
	Paths     []PathSummary    `json:"paths"`
	Positions map[int]Position `json:"positions,omitempty"`
}

// Options tune projection output.
type Options struct {
	// ClampDisplayScores adds display_risk_score floored at zero.
	ClampDisplayScores bool
}

type linkKey struct {
	source, target, path int
}

// BuildProjection merges paths using default options.
func BuildProjection(paths []*attackpath.AttackPath) *Projection {
	return Build(paths, Options{})
}

// Build merges paths into a projection. Path ids are input positions. A node
// gets one entry however many paths cross it, and each (source, target, path)
// triple gets one link.
func Build(paths []*attackpath.AttackPath, opts Options) *Projection {
	proj := &Projection{
		Nodes: []Node{},
		Links: []Link{},
		Paths: make([]PathSummary, 0, len(paths)),
	}
	index := make(map[string]int)
	seen := make(map[linkKey]struct{})

	indexOf := func(n topology.Node) int {
		key := n.Key()
		if i, ok := index[key]; ok {
			return i
		}
		i := len(proj.Nodes)
		index[key] = i
		proj.Nodes = append(proj.Nodes, Node{
			ID:          i,
			Key:         key,
			Label:       n.Label(),
			Type:        n.Kind,
			Criticality: n.Criticality,
			Zone:        n.Zone,
		})
		return i
	}

	for pid, p := range paths {
		summary := PathSummary{
			ID:              pid,
			RiskScore:       p.RiskScore,
			CVSSScore:       p.CVSSScore,
			Hops:            p.Hops,
			Vulnerabilities: append([]string{}, p.Vulnerabilities...),
			Validated:       p.Validated(),
		}
		if opts.ClampDisplayScores {
			d := scoring.DisplayScore(p.RiskScore)
			summary.DisplayRiskScore = &d
		}
		proj.Paths = append(proj.Paths, summary)

		for i := 0; i+1 < len(p.Nodes); i++ {
			k := linkKey{source: indexOf(p.Nodes[i]), target: indexOf(p.Nodes[i+1]), path: pid}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}

			link := Link{Source: k.source, Target: k.target, PathID: pid}
			if i < len(p.Edges) {
				e := p.Edges[i]
				link.Type = e.Type
				link.Protocol = e.EffectiveProtocol()
				link.Allowed = e.Allowed
			}
			proj.Links = append(proj.Links, link)
		}
	}
	return proj
}

// ApplyLayout computes positions for every node with l.
func (p *Projection) ApplyLayout(l Layout) error {
	positions, err := l.Compute(p)
	if err != nil {
		return err
	}
	p.Positions = positions
	return nil
}

// PathLinks returns the links belonging to one path, for highlighting.
func (p *Projection) PathLinks(pathID int) []Link {
	var out []Link
	for _, l := range p.Links {
		if l.PathID == pathID {
			out = append(out, l)
		}
	}
	return out
}

// ExportJSON encodes the projection.
func (p *Projection) ExportJSON() ([]byte, error) {
	return json.Marshal(p)
}
