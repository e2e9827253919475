// Package reporting reduces scored attack paths to an analyst-facing summary.
package reporting

import (
	"cmp"
	"slices"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/scoring"
)

const (
	topRiskCount       = 10
	shortestCount      = 5
	mostViolatingCount = 5
	vulnerabilityLimit = 5
)

// RiskEntry is a path reduced for the top-risk table.
type RiskEntry struct {
	Hops             int      `json:"hops"`
	RiskScore        float64  `json:"risk_score"`
	DisplayRiskScore *float64 `json:"display_risk_score,omitempty"`
	CVSSScore        float64  `json:"cvss_score"`
	Vulnerabilities  []string `json:"vulnerabilities"`
	Source           string   `json:"source"`
	Target           string   `json:"target"`
}

// ShortestEntry is a path reduced to its node names.
type ShortestEntry struct {
	Hops  int      `json:"hops"`
	Nodes []string `json:"nodes"`
}

// ViolationEntry is a path reduced for the compliance-violation table.
type ViolationEntry struct {
	Hops       int      `json:"hops"`
	RiskScore  float64  `json:"risk_score"`
	Violations int      `json:"violations"`
	Rules      []string `json:"rules"`
	Source     string   `json:"source"`
	Target     string   `json:"target"`
}

// Report summarises a set of attack paths.
type Report struct {
	NoPathsFound bool `json:"no_paths_found"`
	TotalPaths   int  `json:"total_paths"`

	AverageHops      float64 `json:"average_hops"`
	AverageCVSS      float64 `json:"average_cvss"`
	AverageRiskScore float64 `json:"average_risk_score"`

	FirewallValidatedPaths int `json:"firewall_validated_paths"`
	ProtocolCompliantPaths int `json:"protocol_compliant_paths"`

	TopRiskPaths       []RiskEntry      `json:"top_risk_paths"`
	ShortestPaths      []ShortestEntry  `json:"shortest_paths"`
	MostViolatingPaths []ViolationEntry `json:"most_violating_paths"`
}

// Options tune report output.
type Options struct {
	// ClampDisplayScores adds display_risk_score floored at zero to risk entries.
	ClampDisplayScores bool
}

// BuildReport summarises paths with default options.
func BuildReport(paths []*attackpath.AttackPath) *Report {
	return Build(paths, Options{})
}

// Build summarises paths. The input slice is not reordered. Empty input gives
// a report with NoPathsFound set and zero means.
func Build(paths []*attackpath.AttackPath, opts Options) *Report {
	r := &Report{
		TotalPaths:         len(paths),
		TopRiskPaths:       []RiskEntry{},
		ShortestPaths:      []ShortestEntry{},
		MostViolatingPaths: []ViolationEntry{},
	}
	if len(paths) == 0 {
		r.NoPathsFound = true
		return r
	}

	var hops, cvss, risk float64
	for _, p := range paths {
		hops += float64(p.Hops)
		cvss += p.CVSSScore
		risk += p.RiskScore
		if p.FirewallRulesValidated {
			r.FirewallValidatedPaths++
		}
		if p.ProtocolCompliant {
			r.ProtocolCompliantPaths++
		}
	}
	n := float64(len(paths))
	r.AverageHops = hops / n
	r.AverageCVSS = cvss / n
	r.AverageRiskScore = risk / n

	byRisk := slices.Clone(paths)
	slices.SortStableFunc(byRisk, func(a, b *attackpath.AttackPath) int {
		return cmp.Compare(b.RiskScore, a.RiskScore)
	})
	for _, p := range byRisk[:min(topRiskCount, len(byRisk))] {
		r.TopRiskPaths = append(r.TopRiskPaths, riskEntry(p, opts))
	}

	byHops := slices.Clone(paths)
	slices.SortStableFunc(byHops, func(a, b *attackpath.AttackPath) int {
		return cmp.Compare(a.Hops, b.Hops)
	})
	for _, p := range byHops[:min(shortestCount, len(byHops))] {
		r.ShortestPaths = append(r.ShortestPaths, ShortestEntry{Hops: p.Hops, Nodes: p.NodeNames()})
	}

	var violating []*attackpath.AttackPath
	for _, p := range paths {
		if len(p.Violations) > 0 {
			violating = append(violating, p)
		}
	}
	slices.SortStableFunc(violating, func(a, b *attackpath.AttackPath) int {
		if c := cmp.Compare(len(b.Violations), len(a.Violations)); c != 0 {
			return c
		}
		return cmp.Compare(b.RiskScore, a.RiskScore)
	})
	for _, p := range violating[:min(mostViolatingCount, len(violating))] {
		r.MostViolatingPaths = append(r.MostViolatingPaths, violationEntry(p))
	}
	return r
}

func riskEntry(p *attackpath.AttackPath, opts Options) RiskEntry {
	vulns := p.Vulnerabilities[:min(vulnerabilityLimit, len(p.Vulnerabilities))]
	e := RiskEntry{
		Hops:            p.Hops,
		RiskScore:       p.RiskScore,
		CVSSScore:       p.CVSSScore,
		Vulnerabilities: append([]string{}, vulns...),
		Source:          p.Source().Label(),
		Target:          p.Target().Label(),
	}
	if opts.ClampDisplayScores {
		d := scoring.DisplayScore(p.RiskScore)
		e.DisplayRiskScore = &d
	}
	return e
}

func violationEntry(p *attackpath.AttackPath) ViolationEntry {
	var rules []string
	for _, v := range p.Violations {
		if !slices.Contains(rules, v.Rule) {
			rules = append(rules, v.Rule)
		}
	}
	return ViolationEntry{
		Hops:       p.Hops,
		RiskScore:  p.RiskScore,
		Violations: len(p.Violations),
		Rules:      rules,
		Source:     p.Source().Label(),
		Target:     p.Target().Label(),
	}
}
