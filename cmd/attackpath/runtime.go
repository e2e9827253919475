package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dd0wney/cluso-attackpath/pkg/analysis"
	"github.com/dd0wney/cluso-attackpath/pkg/compliance"
	"github.com/dd0wney/cluso-attackpath/pkg/config"
	"github.com/dd0wney/cluso-attackpath/pkg/export"
	"github.com/dd0wney/cluso-attackpath/pkg/loader"
	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
	"github.com/dd0wney/cluso-attackpath/pkg/pgstore"
	"github.com/dd0wney/cluso-attackpath/pkg/storage"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

const (
	outputJSON       = "json"
	outputReport     = "report"
	outputCompliance = "compliance"
)

// store is what both backends offer: traversal reads, topology writes, and Close.
type store interface {
	topology.Graph
	topology.Builder
	Close() error
}

// session is one opened graph with an analyzer over it.
type session struct {
	analyzer *analysis.Analyzer
	graph    store
	metrics  *metrics.Registry
}

func (s *session) Close() error {
	return s.graph.Close()
}

// open connects the configured backend, loads the topology file if one is set,
// and builds an analyzer.
func (a *app) open(ctx context.Context) (*session, error) {
	var reg *metrics.Registry
	if a.cfg.Metrics.Enabled || a.cfg.Metrics.TextfilePath != "" {
		reg = metrics.NewRegistry()
	}

	graph, err := a.openGraph(ctx, reg)
	if err != nil {
		return nil, err
	}

	if path := a.cfg.Graph.TopologyFile; path != "" {
		if err := a.loadTopology(ctx, graph, path); err != nil {
			_ = graph.Close()
			return nil, err
		}
	}

	opts := []analysis.Option{analysis.WithLogger(a.logger)}
	if reg != nil {
		opts = append(opts, analysis.WithMetrics(reg))
	}
	analyzer, err := analysis.New(graph, a.cfg.Policy, opts...)
	if err != nil {
		_ = graph.Close()
		return nil, err
	}
	return &session{analyzer: analyzer, graph: graph, metrics: reg}, nil
}

func (a *app) openGraph(ctx context.Context, reg *metrics.Registry) (store, error) {
	switch a.cfg.Graph.Backend {
	case config.BackendPostgres:
		pg, err := pgstore.Open(ctx, a.cfg.Graph.PostgresURL, a.cfg.Graph.Pool,
			pgstore.WithMetrics(reg), pgstore.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		if a.cfg.Graph.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		return pg, nil
	default:
		return storage.NewWithConfig(storage.Config{Metrics: reg, Logger: a.logger}), nil
	}
}

func (a *app) loadTopology(ctx context.Context, b topology.Builder, path string) error {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	sum, err := loader.Apply(ctx, b, doc)
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}
	a.logger.Info("topology loaded",
		logging.String("file", path),
		logging.Int("nodes", sum.Nodes),
		logging.Int("edges", sum.Edges),
		logging.Int("vulnerabilities", sum.Vulnerabilities))
	return nil
}

// analyze opens a session, runs fn, prints the result, and publishes
// artifacts and metrics when configured.
func (a *app) analyze(ctx context.Context, out io.Writer, fn func(context.Context, *analysis.Analyzer) (*analysis.Result, error)) (err error) {
	sess, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sess.Close(), a.writeMetrics(sess.metrics))
	}()

	res, err := fn(ctx, sess.analyzer)
	if err != nil {
		return err
	}
	if err := a.publish(ctx, res, sess.metrics); err != nil {
		return err
	}
	return a.print(out, res)
}

func (a *app) print(out io.Writer, res *analysis.Result) error {
	switch a.output {
	case outputReport:
		return writeJSON(out, res.Report)
	case outputCompliance:
		return compliance.ExportSummary(res.Compliance, "text", out)
	default:
		return writeJSON(out, res)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) publish(ctx context.Context, res *analysis.Result, reg *metrics.Registry) error {
	ec := a.cfg.Export
	if !ec.Enabled {
		return nil
	}

	var sink export.Sink
	switch ec.Sink {
	case config.SinkS3:
		s3, err := export.NewS3SinkFromConfig(ctx, ec.S3)
		if err != nil {
			return err
		}
		sink = s3
	default:
		sink = export.NewFileSink(ec.Dir)
	}

	written, err := export.Publish(ctx, sink, res, export.Options{
		Compress:     ec.Compress,
		IncludePaths: ec.IncludePaths,
		Metrics:      reg,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	a.logger.Info("artifacts published",
		logging.String("sink", sink.Kind()),
		logging.Count(len(written)),
		logging.RequestID(res.RequestID))
	return nil
}

func (a *app) writeMetrics(reg *metrics.Registry) error {
	path := a.cfg.Metrics.TextfilePath
	if reg == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg.GetPrometheusRegistry()); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
