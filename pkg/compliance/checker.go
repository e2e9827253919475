// Package compliance annotates attack paths with firewall and protocol findings.
// Non-compliant paths are kept: they are still routes an attacker can take.
package compliance

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// Validator checks path edges against firewall rules and a protocol
// allow-list. It is immutable and safe for concurrent use.
type Validator struct {
	allowed map[string]struct{}
}

// NewValidator creates a validator with the given protocol allow-list.
// Protocols are matched case-insensitively.
func NewValidator(allowedProtocols []string) *Validator {
	v := &Validator{allowed: make(map[string]struct{}, len(allowedProtocols))}
	for _, p := range allowedProtocols {
		v.allowed[normalizeProtocol(p)] = struct{}{}
	}
	return v
}

// FromPolicy creates a validator using the policy allow-list.
func FromPolicy(p attackpath.Policy) *Validator {
	return NewValidator(p.AllowedProtocols)
}

func normalizeProtocol(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}

// ValidateFirewallRules is false when any CONNECTS_TO edge is not allowed, or
// carries a firewall rule whose action is deny. Edges without a rule pass.
func (v *Validator) ValidateFirewallRules(edges []topology.Edge) bool {
	for _, e := range edges {
		if firewallRule(e) != "" {
			return false
		}
	}
	return true
}

// CheckProtocolCompliance is false when any edge uses a protocol outside the
// allow-list. An unset protocol counts as TCP.
func (v *Validator) CheckProtocolCompliance(edges []topology.Edge) bool {
	for _, e := range edges {
		if !v.protocolAllowed(e) {
			return false
		}
	}
	return true
}

// Violations lists every rule broken by every edge, in edge order.
func (v *Validator) Violations(edges []topology.Edge) []attackpath.Violation {
	var out []attackpath.Violation
	for i, e := range edges {
		switch firewallRule(e) {
		case RuleEdgeNotAllowed:
			out = append(out, violation(RuleEdgeNotAllowed, i, e, "connection is not allowed"))
		case RuleFirewallDeny:
			out = append(out, violation(RuleFirewallDeny, i, e, fmt.Sprintf("rule %q denies traffic", e.FirewallRule)))
		}
		if !v.protocolAllowed(e) {
			out = append(out, violation(RuleProtocolNotAllowed, i, e,
				fmt.Sprintf("protocol %s is not allowed", e.EffectiveProtocol())))
		}
	}
	return out
}

// Annotate sets the compliance findings and violations on p.
func (v *Validator) Annotate(p *attackpath.AttackPath) {
	p.FirewallRulesValidated = v.ValidateFirewallRules(p.Edges)
	p.ProtocolCompliant = v.CheckProtocolCompliance(p.Edges)
	p.Violations = v.Violations(p.Edges)
}

// Summarize counts findings across already annotated paths.
func (v *Validator) Summarize(paths []*attackpath.AttackPath) Summary {
	s := Summary{TotalPaths: len(paths), Violations: make(map[Rule]int)}
	for _, p := range paths {
		if p.FirewallRulesValidated {
			s.FirewallValidated++
		}
		if p.ProtocolCompliant {
			s.ProtocolCompliant++
		}
		if p.Validated() {
			s.FullyCompliant++
		}
		for _, vi := range p.Violations {
			s.Violations[Rule(vi.Rule)]++
		}
	}

	switch {
	case s.TotalPaths == 0 || s.FullyCompliant == s.TotalPaths:
		s.Status = StatusCompliant
	case s.FullyCompliant == 0:
		s.Status = StatusNonCompliant
	default:
		s.Status = StatusPartial
	}
	s.ComplianceScore = 100
	if s.TotalPaths > 0 {
		s.ComplianceScore = float64(s.FullyCompliant) / float64(s.TotalPaths) * 100
	}
	return s
}

// firewallRule returns the firewall rule e breaks, or "".
func firewallRule(e topology.Edge) Rule {
	if e.Type != topology.EdgeConnectsTo {
		return ""
	}
	if !e.Allowed {
		return RuleEdgeNotAllowed
	}
	if e.FirewallRule != "" && strings.EqualFold(string(e.Action), string(topology.ActionDeny)) {
		return RuleFirewallDeny
	}
	return ""
}

func (v *Validator) protocolAllowed(e topology.Edge) bool {
	_, ok := v.allowed[normalizeProtocol(e.EffectiveProtocol())]
	return ok
}

func violation(rule Rule, i int, e topology.Edge, detail string) attackpath.Violation {
	return attackpath.Violation{Rule: string(rule), EdgeIndex: i, From: e.From, To: e.To, Detail: detail}
}
