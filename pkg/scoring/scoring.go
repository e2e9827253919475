// Package scoring assigns comparable risk scores to attack paths.
//
// The composite score rewards severity first, breadth of exposure second, and
// subtracts a small per-hop penalty:
//
//	risk = avg_cvss*Severity + vuln_count*Density - hops*HopPenalty
//
// Scores are not floored; long low-severity paths can go negative and still
// sort below short severe ones.
package scoring

import (
	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
)

// Weights are the coefficients of the composite score.
type Weights struct {
	Severity   float64
	Density    float64
	HopPenalty float64
}

// DefaultWeights returns 0.7 / 0.2 / 0.1.
func DefaultWeights() Weights {
	return WeightsFrom(attackpath.DefaultPolicy())
}

// WeightsFrom extracts the scoring weights of a policy.
func WeightsFrom(p attackpath.Policy) Weights {
	return Weights{
		Severity:   p.SeverityWeight,
		Density:    p.DensityWeight,
		HopPenalty: p.HopPenalty,
	}
}

// Compute evaluates the composite score for the given path features.
func Compute(avgCVSS float64, vulnCount, hops int, w Weights) float64 {
	return avgCVSS*w.Severity + float64(vulnCount)*w.Density - float64(hops)*w.HopPenalty
}

// CriticalScore is the worst-case score used for critical-path triage: the
// highest CVSS on the path, with no averaging or hop penalty.
func CriticalScore(p *attackpath.AttackPath) float64 {
	return p.MaxCVSS
}

// Mode selects which score a Scorer writes.
type Mode int

const (
	Composite Mode = iota
	WorstCase
)

// Scorer scores paths under fixed weights. It holds no mutable state and can
// be shared between goroutines.
type Scorer struct {
	weights Weights
	mode    Mode
}

// NewScorer returns a composite scorer.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// NewCriticalScorer returns a scorer that writes CriticalScore.
func NewCriticalScorer() *Scorer {
	return &Scorer{mode: WorstCase}
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Score computes the score of p without modifying it.
func (s *Scorer) Score(p *attackpath.AttackPath) float64 {
	if s.mode == WorstCase {
		return CriticalScore(p)
	}
	return Compute(p.CVSSScore, len(p.Vulnerabilities), p.Hops, s.weights)
}

// Apply sets RiskScore on p and returns it.
func (s *Scorer) Apply(p *attackpath.AttackPath) float64 {
	p.RiskScore = s.Score(p)
	return p.RiskScore
}

// ApplyAll scores every path in place.
func (s *Scorer) ApplyAll(paths []*attackpath.AttackPath) {
	for _, p := range paths {
		s.Apply(p)
	}
}

// DisplayScore floors a raw score at zero for presentation. Ordering always
// uses the raw score.
func DisplayScore(raw float64) float64 {
	return max(raw, 0)
}
