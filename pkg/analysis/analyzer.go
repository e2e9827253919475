// Package analysis runs complete attack-path analyses: discovery, scoring,
// compliance annotation, projection and reporting, under one request id,
// deadline and trace.
package analysis

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/compliance"
	"github.com/dd0wney/cluso-attackpath/pkg/discovery"
	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
	"github.com/dd0wney/cluso-attackpath/pkg/parallel"
	"github.com/dd0wney/cluso-attackpath/pkg/reporting"
	"github.com/dd0wney/cluso-attackpath/pkg/scoring"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
	"github.com/dd0wney/cluso-attackpath/pkg/visualization"
)

// TracerName is the instrumentation scope of analysis spans.
const TracerName = "github.com/dd0wney/cluso-attackpath/pkg/analysis"

// Operation names used in results, spans, metrics and logs.
const (
	OpAnalyze      = "analyze"
	OpSeverity     = "analyze_by_severity"
	OpReachability = "reachability"
	OpCritical     = "find_critical_paths"
)

// Result is the outcome of one analysis request.
type Result struct {
	RequestID  string                    `json:"request_id"`
	Operation  string                    `json:"operation"`
	Paths      []*attackpath.AttackPath  `json:"paths"`
	Projection *visualization.Projection `json:"projection"`
	Report     *reporting.Report         `json:"report"`
	Compliance compliance.Summary        `json:"compliance"`
	Duration   time.Duration             `json:"duration_ns"`
}

// Analyzer orchestrates the analysis pipeline over one graph and policy. It is
// safe for concurrent use.
type Analyzer struct {
	engine    *discovery.Engine
	policy    attackpath.Policy
	composite *scoring.Scorer
	critical  *scoring.Scorer
	validator *compliance.Validator

	tracer  trace.Tracer
	metrics *metrics.Registry
	logger  logging.Logger
	newID   func() string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTracerProvider creates spans from tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Analyzer) { a.tracer = tp.Tracer(TracerName) }
}

// WithMetrics records analysis and discovery metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *Analyzer) { a.metrics = reg }
}

// WithLogger sets the analyzer logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(gen func() string) Option {
	return func(a *Analyzer) { a.newID = gen }
}

// New creates an analyzer over graph.
func New(graph topology.Graph, policy attackpath.Policy, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		policy:    policy,
		composite: scoring.NewScorer(scoring.WeightsFrom(policy)),
		critical:  scoring.NewCriticalScorer(),
		validator: compliance.FromPolicy(policy),
		tracer:    noop.NewTracerProvider().Tracer(TracerName),
		logger:    logging.DefaultLogger(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	engineOpts := []discovery.Option{discovery.WithLogger(a.logger)}
	if a.metrics != nil {
		engineOpts = append(engineOpts, discovery.WithMetrics(a.metrics))
	}
	engine, err := discovery.New(graph, policy, engineOpts...)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	a.logger = a.logger.With(logging.Component("analysis"))
	return a, nil
}

// Policy returns the analyzer's policy.
func (a *Analyzer) Policy() attackpath.Policy {
	return a.policy
}

// Analyze finds, scores and reports the paths from source to target.
func (a *Analyzer) Analyze(ctx context.Context, source, target topology.Selector, maxHops, limit int) (*Result, error) {
	return a.run(ctx, OpAnalyze, a.composite, func(ctx context.Context) ([]*attackpath.AttackPath, error) {
		return a.engine.FindPaths(ctx, source, target, maxHops, limit)
	}, attribute.String("source", source.String()), attribute.String("target", target.String()), attribute.Int("max_hops", maxHops))
}

// AnalyzeBySeverity analyzes the paths from any interface to a component with
// a vulnerability scoring at least minCVSS.
func (a *Analyzer) AnalyzeBySeverity(ctx context.Context, minCVSS float64, maxHops, limit int) (*Result, error) {
	return a.run(ctx, OpSeverity, a.composite, func(ctx context.Context) ([]*attackpath.AttackPath, error) {
		return a.engine.FindPathsByVulnerabilitySeverity(ctx, minCVSS, maxHops, limit)
	}, attribute.Float64("min_cvss", minCVSS), attribute.Int("max_hops", maxHops))
}

// Reachability analyzes the paths from start to end.
func (a *Analyzer) Reachability(ctx context.Context, start, end string, minHops, maxHops, limit int) (*Result, error) {
	return a.run(ctx, OpReachability, a.composite, func(ctx context.Context) ([]*attackpath.AttackPath, error) {
		return a.engine.EnumeratePathsBetween(ctx, start, end, minHops, maxHops, limit)
	}, attribute.String("start", start), attribute.String("end", end), attribute.Int("max_hops", maxHops))
}

// FindCriticalPaths analyzes the paths from the external zone to components
// with a vulnerability scoring at least minCVSS. Their risk score is the
// highest CVSS on the path.
func (a *Analyzer) FindCriticalPaths(ctx context.Context, minCVSS float64, maxHops int) (*Result, error) {
	return a.run(ctx, OpCritical, a.critical, func(ctx context.Context) ([]*attackpath.AttackPath, error) {
		return a.engine.Search(ctx, discovery.Request{
			Operation: OpCritical,
			Source:    topology.ByZone(a.policy.ExternalZone),
			Target:    discovery.Target{RequireVulnerability: true, MinCVSS: minCVSS},
			MaxHops:   maxHops,
		})
	}, attribute.Float64("min_cvss", minCVSS), attribute.Int("max_hops", maxHops))
}

type stageFunc func(ctx context.Context) ([]*attackpath.AttackPath, error)

func (a *Analyzer) run(ctx context.Context, op string, scorer *scoring.Scorer, discover stageFunc, attrs ...attribute.KeyValue) (res *Result, err error) {
	start := time.Now()
	id := a.newID()
	log := a.logger.With(logging.RequestID(id), logging.Operation(op))

	if a.policy.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.policy.RequestTimeout)
		defer cancel()
	}

	ctx, span := a.tracer.Start(ctx, "analysis."+op,
		trace.WithAttributes(append(attrs, attribute.String("request_id", id))...))
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn("analysis failed", logging.Error(err), logging.Latency(time.Since(start)))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		if a.metrics != nil {
			a.metrics.RecordAnalysis(op, status, time.Since(start))
		}
		span.End()
	}()

	paths, err := a.stage(ctx, "discover", discover)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("paths", len(paths)))

	if _, err := a.stage(ctx, "enrich", func(ctx context.Context) ([]*attackpath.AttackPath, error) {
		return paths, a.enrich(ctx, paths, scorer)
	}); err != nil {
		return nil, attackpath.GraphUnavailable(op, err)
	}

	res = &Result{RequestID: id, Operation: op, Paths: paths}
	_, _ = a.stage(ctx, "aggregate", func(context.Context) ([]*attackpath.AttackPath, error) {
		res.Projection = visualization.Build(paths, visualization.Options{ClampDisplayScores: a.policy.ClampDisplayScores})
		return paths, nil
	})
	_, _ = a.stage(ctx, "report", func(context.Context) ([]*attackpath.AttackPath, error) {
		res.Report = reporting.Build(paths, reporting.Options{ClampDisplayScores: a.policy.ClampDisplayScores})
		res.Compliance = a.validator.Summarize(paths)
		return paths, nil
	})
	res.Duration = time.Since(start)

	log.Info("analysis complete",
		logging.Count(len(paths)),
		logging.Int("compliant", res.Compliance.FullyCompliant),
		logging.Latency(res.Duration),
	)
	return res, nil
}

// stage runs fn inside a child span named name.
func (a *Analyzer) stage(ctx context.Context, name string, fn stageFunc) ([]*attackpath.AttackPath, error) {
	ctx, span := a.tracer.Start(ctx, name)
	defer span.End()

	paths, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("paths", len(paths)))
	return paths, nil
}

// enrich scores and annotates every path. Paths are independent, so the work
// fans out under the policy parallelism.
func (a *Analyzer) enrich(ctx context.Context, paths []*attackpath.AttackPath, scorer *scoring.Scorer) error {
	err := parallel.ForEach(ctx, len(paths), a.policy.Parallelism, func(_ context.Context, i int) error {
		scorer.Apply(paths[i])
		a.validator.Annotate(paths[i])
		return nil
	})
	if err != nil {
		return err
	}

	if a.metrics != nil {
		for _, p := range paths {
			a.metrics.ObserveRiskScore(p.RiskScore)
			for _, rule := range brokenRules(p) {
				a.metrics.RecordNonCompliant(rule)
			}
		}
	}
	return nil
}

func brokenRules(p *attackpath.AttackPath) []string {
	var rules []string
	for _, v := range p.Violations {
		if !slices.Contains(rules, v.Rule) {
			rules = append(rules, v.Rule)
		}
	}
	return rules
}
