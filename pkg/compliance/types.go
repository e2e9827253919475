package compliance

// Rule identifies a compliance rule applied to path edges
type Rule string

const (
	// RuleEdgeNotAllowed flags a CONNECTS_TO edge that is not permitted.
	RuleEdgeNotAllowed Rule = "edge_not_allowed"
	// RuleFirewallDeny flags a CONNECTS_TO edge whose attached rule denies traffic.
	RuleFirewallDeny Rule = "firewall_deny"
	// RuleProtocolNotAllowed flags an edge using a protocol outside the allow-list.
	RuleProtocolNotAllowed Rule = "protocol_not_allowed"
)

// Check names the two path-level findings
type Check string

const (
	CheckFirewall Check = "firewall"
	CheckProtocol Check = "protocol"
)

// Status represents the compliance status of a path or a set of paths
type Status string

const (
	StatusCompliant    Status = "compliant"
	StatusPartial      Status = "partial"
	StatusNonCompliant Status = "non_compliant"
)

// RuleInfo describes a rule for reports
type RuleInfo struct {
	ID          Rule   `json:"id"`
	Check       Check  `json:"check"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var ruleCatalog = []RuleInfo{
	{
		ID:          RuleEdgeNotAllowed,
		Check:       CheckFirewall,
		Title:       "Traffic not permitted",
		Description: "A network connection on the path is marked as not allowed",
	},
	{
		ID:          RuleFirewallDeny,
		Check:       CheckFirewall,
		Title:       "Firewall rule denies traffic",
		Description: "A network connection on the path carries a firewall rule with action deny",
	},
	{
		ID:          RuleProtocolNotAllowed,
		Check:       CheckProtocol,
		Title:       "Protocol outside allow-list",
		Description: "An edge on the path uses a protocol that is not in the allowed set",
	},
}

// Rules returns every rule the validator evaluates
func Rules() []RuleInfo {
	return append([]RuleInfo(nil), ruleCatalog...)
}

// Summary provides an overview of compliance across a set of paths
type Summary struct {
	TotalPaths        int          `json:"total_paths"`
	FirewallValidated int          `json:"firewall_validated"`
	ProtocolCompliant int          `json:"protocol_compliant"`
	FullyCompliant    int          `json:"fully_compliant"`
	Violations        map[Rule]int `json:"violations"`
	Status            Status       `json:"status"`
	ComplianceScore   float64      `json:"compliance_score"` // 0-100%
}

func getStatusEmoji(status Status) string {
	switch status {
	case StatusCompliant:
		return "✅"
	case StatusPartial:
		return "⚠️"
	case StatusNonCompliant:
		return "❌"
	default:
		return "❓"
	}
}
