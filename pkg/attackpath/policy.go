package attackpath

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
	"github.com/dd0wney/cluso-attackpath/pkg/validation"
)

// HardMaxHops bounds every search regardless of policy.
const HardMaxHops = 20

// Policy carries every analysis tunable. Engines copy it on construction, so
// concurrent engines with different policies never share state.
type Policy struct {
	MaxHopsCeiling int `mapstructure:"max_hops_ceiling" yaml:"max_hops_ceiling"`
	DefaultLimit   int `mapstructure:"default_limit" yaml:"default_limit"`

	SeverityWeight float64 `mapstructure:"severity_weight" yaml:"severity_weight"`
	DensityWeight  float64 `mapstructure:"density_weight" yaml:"density_weight"`
	HopPenalty     float64 `mapstructure:"hop_penalty" yaml:"hop_penalty"`

	AllowedProtocols   []string            `mapstructure:"allowed_protocols" yaml:"allowed_protocols"`
	ExternalZone       string              `mapstructure:"external_zone" yaml:"external_zone"`
	TraversalEdgeTypes []topology.EdgeType `mapstructure:"traversal_edge_types" yaml:"traversal_edge_types"`

	Parallelism    int           `mapstructure:"parallelism" yaml:"parallelism"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // 0 disables

	// ClampDisplayScores adds a display score floored at 0 to reports and
	// projections. Ranking always uses the raw score.
	ClampDisplayScores bool `mapstructure:"clamp_display_scores" yaml:"clamp_display_scores"`
}

// DefaultPolicy returns the standard weights, limits and protocol allow-list.
func DefaultPolicy() Policy {
	return Policy{
		MaxHopsCeiling:     HardMaxHops,
		DefaultLimit:       50,
		SeverityWeight:     0.7,
		DensityWeight:      0.2,
		HopPenalty:         0.1,
		AllowedProtocols:   []string{"TCP", "UDP", "HTTP", "HTTPS", "SSH", "RDP", "ICMP"},
		ExternalZone:       "external",
		TraversalEdgeTypes: []topology.EdgeType{topology.EdgeConnectsTo, topology.EdgeDependsOn},
		Parallelism:        runtime.NumCPU(),
		RequestTimeout:     30 * time.Second,
	}
}

// Validate checks every tunable.
func (p Policy) Validate() error {
	cv := validation.NewConfigValidator("Policy").
		RangeInt("MaxHopsCeiling", p.MaxHopsCeiling, 1, HardMaxHops).
		Positive("DefaultLimit", p.DefaultLimit).
		NonNegativeFloat("SeverityWeight", p.SeverityWeight).
		NonNegativeFloat("DensityWeight", p.DensityWeight).
		NonNegativeFloat("HopPenalty", p.HopPenalty).
		Required("ExternalZone", p.ExternalZone).
		Positive("Parallelism", p.Parallelism).
		NonNegativeDuration("RequestTimeout", p.RequestTimeout).
		Custom("TraversalEdgeTypes", func() error {
			for _, t := range p.TraversalEdgeTypes {
				switch t {
				case topology.EdgeConnectsTo, topology.EdgeDependsOn:
				case topology.EdgeAffects:
					return fmt.Errorf("%s links vulnerabilities and cannot be traversed", t)
				default:
					return fmt.Errorf("unknown edge type %q", t)
				}
			}
			return nil
		})
	validation.NotEmpty(cv, "AllowedProtocols", p.AllowedProtocols)
	validation.NotEmpty(cv, "TraversalEdgeTypes", p.TraversalEdgeTypes)
	return cv.Validate()
}

// Limit resolves a requested limit: 0 selects DefaultLimit.
func (p Policy) Limit(requested int) int {
	return validation.DefaultOr(requested, p.DefaultLimit)
}
