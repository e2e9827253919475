package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-attackpath/pkg/analysis"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		source, target string
		maxHops, limit int
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Find attack paths from source nodes to target nodes",
		Long: `Find attack paths between every node matching --source and every node
matching --target. Selectors take the form field:value where field is one of
id, name, kind, zone or criticality.`,
		Example: "  attackpath analyze -t plant.yaml --source zone:external --target criticality:critical --max-hops 5",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := topology.ParseSelector(source)
			if err != nil {
				return err
			}
			dst, err := topology.ParseSelector(target)
			if err != nil {
				return err
			}
			return a.analyze(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, an *analysis.Analyzer) (*analysis.Result, error) {
				return an.Analyze(ctx, src, dst, maxHops, limit)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "zone:external", "source node selector")
	cmd.Flags().StringVar(&target, "target", "criticality:critical", "target node selector")
	cmd.Flags().IntVar(&maxHops, "max-hops", 5, "maximum edges per path")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum paths returned (0 uses the policy default)")
	return cmd
}

func newSeverityCmd(a *app) *cobra.Command {
	var (
		minCVSS        float64
		maxHops, limit int
	)
	cmd := &cobra.Command{
		Use:   "severity",
		Short: "Find paths from the external zone to components with severe vulnerabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.analyze(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, an *analysis.Analyzer) (*analysis.Result, error) {
				return an.AnalyzeBySeverity(ctx, minCVSS, maxHops, limit)
			})
		},
	}
	cmd.Flags().Float64Var(&minCVSS, "min-cvss", 7.0, "minimum CVSS score of a target vulnerability")
	cmd.Flags().IntVar(&maxHops, "max-hops", 5, "maximum edges per path")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum paths returned (0 uses the policy default)")
	return cmd
}

func newReachCmd(a *app) *cobra.Command {
	var minHops, maxHops, limit int
	cmd := &cobra.Command{
		Use:   "reach <start> <end>",
		Short: "Enumerate paths between two node ids",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end := args[0], args[1]
			return a.analyze(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, an *analysis.Analyzer) (*analysis.Result, error) {
				return an.Reachability(ctx, start, end, minHops, maxHops, limit)
			})
		},
	}
	cmd.Flags().IntVar(&minHops, "min-hops", 1, "minimum edges per path")
	cmd.Flags().IntVar(&maxHops, "max-hops", 5, "maximum edges per path")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum paths returned (0 uses the policy default)")
	return cmd
}

func newCriticalCmd(a *app) *cobra.Command {
	var (
		minCVSS float64
		maxHops int
	)
	cmd := &cobra.Command{
		Use:   "critical",
		Short: "Find paths from the external zone to vulnerable components, ranked by worst CVSS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.analyze(cmd.Context(), cmd.OutOrStdout(), func(ctx context.Context, an *analysis.Analyzer) (*analysis.Result, error) {
				return an.FindCriticalPaths(ctx, minCVSS, maxHops)
			})
		},
	}
	cmd.Flags().Float64Var(&minCVSS, "min-cvss", 7.0, "minimum CVSS score of a target vulnerability")
	cmd.Flags().IntVar(&maxHops, "max-hops", 5, "maximum edges per path")
	return cmd
}
