// Package discovery enumerates constrained attack paths over a topology graph.
package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
	"github.com/dd0wney/cluso-attackpath/pkg/parallel"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// Engine runs path searches against a graph under a fixed policy.
type Engine struct {
	graph   topology.Graph
	policy  attackpath.Policy
	metrics *metrics.Registry
	logger  logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records discovery metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = reg }
}

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine. The policy is validated and copied.
func New(graph topology.Graph, policy attackpath.Policy, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("discovery: graph is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{graph: graph, policy: policy, logger: logging.DefaultLogger()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.Component("discovery"))
	return e, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() attackpath.Policy {
	return e.policy
}

// FindPaths returns every traversable path from a node matching source to a
// node matching target, at most maxHops edges long.
func (e *Engine) FindPaths(ctx context.Context, source, target topology.Selector, maxHops, limit int) ([]*attackpath.AttackPath, error) {
	return e.Search(ctx, Request{
		Operation: "find_paths",
		Source:    source,
		Target:    Target{Selector: target},
		MaxHops:   maxHops,
		Limit:     limit,
	})
}

// FindPathsByVulnerabilitySeverity returns paths from any network interface to
// a component affected by a vulnerability scoring at least minCVSS.
func (e *Engine) FindPathsByVulnerabilitySeverity(ctx context.Context, minCVSS float64, maxHops, limit int) ([]*attackpath.AttackPath, error) {
	return e.Search(ctx, Request{
		Operation: "find_by_severity",
		Source:    topology.ByKind(topology.KindNetworkInterface),
		Target:    Target{RequireVulnerability: true, MinCVSS: minCVSS},
		MaxHops:   maxHops,
		Limit:     limit,
	})
}

// EnumeratePathsBetween returns the paths from start to end whose length is
// within [minHops, maxHops]. A minHops of 0 means 1.
func (e *Engine) EnumeratePathsBetween(ctx context.Context, start, end string, minHops, maxHops, limit int) ([]*attackpath.AttackPath, error) {
	return e.Search(ctx, Request{
		Operation: "enumerate_between",
		Source:    topology.ByID(start),
		Target:    Target{Selector: topology.ByID(end)},
		MinHops:   minHops,
		MaxHops:   maxHops,
		Limit:     limit,
	})
}

type sourceResult struct {
	paths    []*attackpath.AttackPath
	expanded int
}

// Search runs req: one bounded search per matching source, merged in source
// order, sorted, then truncated to the limit. Any graph failure fails the
// whole request with ErrGraphUnavailable.
func (e *Engine) Search(ctx context.Context, req Request) (paths []*attackpath.AttackPath, err error) {
	req, err = req.normalize(e.policy)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	expanded := 0
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		if e.metrics != nil {
			e.metrics.RecordDiscovery(req.Operation, status, time.Since(start), len(paths), expanded)
		}
	}()

	sources, err := e.graph.LookupNodes(ctx, req.Source)
	if err != nil {
		return nil, attackpath.GraphUnavailable(req.Operation, err)
	}

	results, err := parallel.Map(ctx, sources, e.policy.Parallelism,
		func(ctx context.Context, src topology.Node) (sourceResult, error) {
			s := newSearcher(e.graph, req)
			found, err := s.run(ctx, src)
			return sourceResult{paths: found, expanded: s.expanded}, err
		})
	if err != nil {
		e.logger.Warn("path search failed",
			logging.Operation(req.Operation),
			logging.String("source", req.Source.String()),
			logging.Error(err),
		)
		return nil, attackpath.GraphUnavailable(req.Operation, err)
	}

	paths = make([]*attackpath.AttackPath, 0)
	for _, r := range results {
		paths = append(paths, r.paths...)
		expanded += r.expanded
	}
	total := len(paths)
	SortPaths(paths)
	if len(paths) > req.Limit {
		paths = paths[:req.Limit]
	}

	e.logger.Debug("path search complete",
		logging.Operation(req.Operation),
		logging.Int("sources", len(sources)),
		logging.Int("found", total),
		logging.Count(len(paths)),
		logging.Hops(req.MaxHops),
		logging.Latency(time.Since(start)),
	)
	return paths, nil
}
