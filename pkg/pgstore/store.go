// Package pgstore keeps a topology graph in PostgreSQL adjacency tables and
// serves it through the same traversal contract as the in-memory store.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/metrics"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// Backend is the label this store reports in graph lookup metrics.
const Backend = "postgres"

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PoolConfig tunes the connection pool opened by Open.
type PoolConfig struct {
	MaxConns        int32         `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns" yaml:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time" yaml:"max_conn_idle_time"`
}

// DefaultPoolConfig returns the pool sizing used when none is configured.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 1 * time.Minute,
	}
}

// Store implements topology.Graph and topology.Builder over PostgreSQL.
type Store struct {
	pool    DBPool
	metrics *metrics.Registry
	log     logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records every graph call in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Store) { s.metrics = reg }
}

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l.With(logging.Component("pgstore")) }
}

// New wraps an existing pool. It does not touch the database.
func New(pool DBPool, opts ...Option) *Store {
	s := &Store{
		pool: pool,
		log:  logging.DefaultLogger().With(logging.Component("pgstore")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to databaseURL, verifies the connection and returns a Store.
func Open(ctx context.Context, databaseURL string, cfg PoolConfig, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	defaults := DefaultPoolConfig()
	config.MaxConns = orDefault(cfg.MaxConns, defaults.MaxConns)
	config.MinConns = orDefault(cfg.MinConns, defaults.MinConns)
	config.MaxConnLifetime = orDefault(cfg.MaxConnLifetime, defaults.MaxConnLifetime)
	config.MaxConnIdleTime = orDefault(cfg.MaxConnIdleTime, defaults.MaxConnIdleTime)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return New(pool, opts...), nil
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordGraphLookup(Backend, op, status, time.Since(start))
}

var (
	_ topology.Graph   = (*Store)(nil)
	_ topology.Builder = (*Store)(nil)
)
