// Package config loads application configuration from a YAML file and
// ATTACKPATH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-attackpath/pkg/attackpath"
	"github.com/dd0wney/cluso-attackpath/pkg/export"
	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/pgstore"
	"github.com/dd0wney/cluso-attackpath/pkg/validation"
)

// EnvPrefix prefixes every environment override, e.g. ATTACKPATH_POLICY_DEFAULT_LIMIT.
const EnvPrefix = "ATTACKPATH"

// Backends for the graph section.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Sinks for the export section.
const (
	SinkFile = "file"
	SinkS3   = "s3"
)

// Config is the complete application configuration.
type Config struct {
	Logger  logging.Config    `mapstructure:"logger" yaml:"logger"`
	Graph   GraphConfig       `mapstructure:"graph" yaml:"graph"`
	Policy  attackpath.Policy `mapstructure:"policy" yaml:"policy"`
	Metrics MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Export  ExportConfig      `mapstructure:"export" yaml:"export"`
}

// GraphConfig selects and locates the topology store.
type GraphConfig struct {
	Backend      string             `mapstructure:"backend" yaml:"backend" validate:"required,oneof=memory postgres"`
	TopologyFile string             `mapstructure:"topology_file" yaml:"topology_file"`
	PostgresURL  string             `mapstructure:"postgres_url" yaml:"postgres_url"`
	Migrate      bool               `mapstructure:"migrate" yaml:"migrate"`
	Pool         pgstore.PoolConfig `mapstructure:"pool" yaml:"pool"`
}

// MetricsConfig controls metric collection. With TextfilePath set, metrics
// are written in Prometheus text format when a command finishes.
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	TextfilePath string `mapstructure:"textfile_path" yaml:"textfile_path"`
}

// ExportConfig controls artifact publishing.
type ExportConfig struct {
	Enabled      bool            `mapstructure:"enabled" yaml:"enabled"`
	Sink         string          `mapstructure:"sink" yaml:"sink" validate:"omitempty,oneof=file s3"`
	Dir          string          `mapstructure:"dir" yaml:"dir"`
	Compress     bool            `mapstructure:"compress" yaml:"compress"`
	IncludePaths bool            `mapstructure:"include_paths" yaml:"include_paths"`
	S3           export.S3Config `mapstructure:"s3" yaml:"s3"`
}

// SetDefaults registers every key with its default value. Keys must be known
// to viper for environment overrides to apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	p := attackpath.DefaultPolicy()
	pool := pgstore.DefaultPoolConfig()

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	// -- Graph --
	v.SetDefault("graph.backend", BackendMemory)
	v.SetDefault("graph.topology_file", "")
	v.SetDefault("graph.postgres_url", "")
	v.SetDefault("graph.migrate", false)
	v.SetDefault("graph.pool.max_conns", pool.MaxConns)
	v.SetDefault("graph.pool.min_conns", pool.MinConns)
	v.SetDefault("graph.pool.max_conn_lifetime", pool.MaxConnLifetime)
	v.SetDefault("graph.pool.max_conn_idle_time", pool.MaxConnIdleTime)

	// -- Policy --
	v.SetDefault("policy.max_hops_ceiling", p.MaxHopsCeiling)
	v.SetDefault("policy.default_limit", p.DefaultLimit)
	v.SetDefault("policy.severity_weight", p.SeverityWeight)
	v.SetDefault("policy.density_weight", p.DensityWeight)
	v.SetDefault("policy.hop_penalty", p.HopPenalty)
	v.SetDefault("policy.allowed_protocols", p.AllowedProtocols)
	v.SetDefault("policy.external_zone", p.ExternalZone)
	v.SetDefault("policy.traversal_edge_types", []string{"CONNECTS_TO", "DEPENDS_ON"})
	v.SetDefault("policy.parallelism", runtime.NumCPU())
	v.SetDefault("policy.request_timeout", 30*time.Second)
	v.SetDefault("policy.clamp_display_scores", false)

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", "")

	// -- Export --
	v.SetDefault("export.enabled", false)
	v.SetDefault("export.sink", SinkFile)
	v.SetDefault("export.dir", "attackpath-out")
	v.SetDefault("export.compress", false)
	v.SetDefault("export.include_paths", false)
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.prefix", "")
	v.SetDefault("export.s3.region", "")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.access_key_id", "")
	v.SetDefault("export.s3.secret_access_key", "")
	v.SetDefault("export.s3.use_path_style", false)
}

// New returns a viper instance with defaults and environment binding, ready
// for flags to be bound to it.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the defaults without reading any file or environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := fromViper(v)
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return cfg
}

// Load reads path (or ./attackpath.yaml when path is empty and the file
// exists) into v, then decodes and validates the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("attackpath")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks tags, the policy, and the cross-field requirements of the
// selected backend and sink.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}

	cv := validation.NewConfigValidator("Config").
		When(c.Graph.Backend == BackendPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("graph.postgres_url", c.Graph.PostgresURL)
		}).
		When(c.Graph.Backend == BackendMemory, func(cv *validation.ConfigValidator) {
			cv.Required("graph.topology_file", c.Graph.TopologyFile)
		}).
		When(c.Export.Enabled && c.Export.Sink == SinkFile, func(cv *validation.ConfigValidator) {
			cv.Required("export.dir", c.Export.Dir)
		}).
		When(c.Export.Enabled && c.Export.Sink == SinkS3, func(cv *validation.ConfigValidator) {
			cv.Required("export.s3.bucket", c.Export.S3.Bucket)
		})
	return cv.Validate()
}
