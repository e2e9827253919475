package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-attackpath/pkg/config"
	"github.com/dd0wney/cluso-attackpath/pkg/logging"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	output  string

	cfg    *config.Config
	logger *logging.ZapLogger
}

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"backend":       "graph.backend",
	"topology":      "graph.topology_file",
	"postgres-url":  "graph.postgres_url",
	"migrate":       "graph.migrate",
	"log-level":     "logger.level",
	"log-format":    "logger.format",
	"export":        "export.enabled",
	"export-dir":    "export.dir",
	"compress":      "export.compress",
	"metrics-file":  "metrics.textfile_path",
	"clamp-display": "policy.clamp_display_scores",
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:               "attackpath",
		Short:             "Attack path analysis over network and component topologies.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initialize,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./attackpath.yaml)")
	pf.StringVarP(&a.output, "output", "o", "json", "output format: json, report or compliance")
	pf.String("backend", "", "graph backend: memory or postgres")
	pf.StringP("topology", "t", "", "topology YAML document to load")
	pf.String("postgres-url", "", "PostgreSQL connection URL")
	pf.Bool("migrate", false, "create the PostgreSQL schema before loading")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: json or console")
	pf.Bool("export", false, "publish projection and report artifacts")
	pf.String("export-dir", "", "directory for the file sink")
	pf.Bool("compress", false, "snappy-compress exported artifacts")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.Bool("clamp-display", false, "add display risk scores clamped at zero")

	if err := bindFlags(a.v, pf); err != nil {
		panic(err)
	}

	root.AddCommand(
		newAnalyzeCmd(a),
		newSeverityCmd(a),
		newReachCmd(a),
		newCriticalCmd(a),
		newVersionCmd(),
	)
	return root
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

// initialize loads configuration and builds the logger before any analysis command runs.
func (a *app) initialize(cmd *cobra.Command, _ []string) error {
	switch a.output {
	case outputJSON, outputReport, outputCompliance:
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger

	logger.Debug("configuration loaded",
		logging.String("version", Version),
		logging.String("command", cmd.Name()),
		logging.String("backend", cfg.Graph.Backend))
	return nil
}
