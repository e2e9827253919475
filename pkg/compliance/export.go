package compliance

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ExportSummary writes a compliance summary as json, text or markdown
func ExportSummary(s Summary, format string, writer io.Writer) error {
	switch format {
	case "json":
		return exportJSON(s, writer)
	case "text":
		return exportText(s, writer)
	case "markdown":
		return exportMarkdown(s, writer)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func exportJSON(s Summary, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// sortedRules returns the violated rules in catalog order, then any others
// alphabetically.
func sortedRules(s Summary) []Rule {
	var rules []Rule
	seen := make(map[Rule]bool)
	for _, info := range ruleCatalog {
		if s.Violations[info.ID] > 0 {
			rules = append(rules, info.ID)
			seen[info.ID] = true
		}
	}
	var rest []Rule
	for r, n := range s.Violations {
		if n > 0 && !seen[r] {
			rest = append(rest, r)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(rules, rest...)
}

func exportText(s Summary, writer io.Writer) error {
	fmt.Fprintf(writer, "Path Compliance: %s\n\n", s.Status)
	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Total Paths: %d\n", s.TotalPaths)
	fmt.Fprintf(writer, "  Firewall Validated: %d\n", s.FirewallValidated)
	fmt.Fprintf(writer, "  Protocol Compliant: %d\n", s.ProtocolCompliant)
	fmt.Fprintf(writer, "  Fully Compliant: %d\n", s.FullyCompliant)
	fmt.Fprintf(writer, "  Compliance Score: %.1f%%\n", s.ComplianceScore)

	rules := sortedRules(s)
	if len(rules) == 0 {
		return nil
	}
	fmt.Fprintf(writer, "\nViolations:\n")
	for _, r := range rules {
		fmt.Fprintf(writer, "  %s: %d\n", r, s.Violations[r])
	}
	return nil
}

func exportMarkdown(s Summary, writer io.Writer) error {
	fmt.Fprintf(writer, "# %s Path Compliance\n\n", getStatusEmoji(s.Status))

	fmt.Fprintf(writer, "| Metric | Value |\n")
	fmt.Fprintf(writer, "|--------|-------|\n")
	fmt.Fprintf(writer, "| Total Paths | %d |\n", s.TotalPaths)
	fmt.Fprintf(writer, "| Firewall Validated | %d |\n", s.FirewallValidated)
	fmt.Fprintf(writer, "| Protocol Compliant | %d |\n", s.ProtocolCompliant)
	fmt.Fprintf(writer, "| Fully Compliant | %d |\n", s.FullyCompliant)
	fmt.Fprintf(writer, "| **Compliance Score** | **%.1f%%** |\n\n", s.ComplianceScore)

	rules := sortedRules(s)
	if len(rules) == 0 {
		return nil
	}
	fmt.Fprintf(writer, "## Violations\n\n")
	for _, r := range rules {
		fmt.Fprintf(writer, "- `%s`: %d\n", r, s.Violations[r])
	}
	fmt.Fprintf(writer, "\n")
	return nil
}
