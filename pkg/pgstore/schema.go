package pgstore

import (
	"context"
	"fmt"
)

const schema = `
	CREATE TABLE IF NOT EXISTS topology_nodes (
		seq BIGSERIAL NOT NULL,
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		zone TEXT NOT NULL DEFAULT '',
		criticality TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_topology_nodes_kind ON topology_nodes(kind);
	CREATE INDEX IF NOT EXISTS idx_topology_nodes_name ON topology_nodes(name);
	CREATE INDEX IF NOT EXISTS idx_topology_nodes_zone ON topology_nodes(zone);
	CREATE INDEX IF NOT EXISTS idx_topology_nodes_criticality ON topology_nodes(criticality);

	CREATE TABLE IF NOT EXISTS topology_edges (
		seq BIGSERIAL NOT NULL,
		from_node TEXT NOT NULL REFERENCES topology_nodes(id),
		to_node TEXT NOT NULL REFERENCES topology_nodes(id),
		type TEXT NOT NULL,
		allowed BOOLEAN NOT NULL DEFAULT TRUE,
		protocol TEXT NOT NULL DEFAULT '',
		firewall_rule TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (from_node, to_node, type)
	);

	CREATE INDEX IF NOT EXISTS idx_topology_edges_from ON topology_edges(from_node, seq);
	CREATE INDEX IF NOT EXISTS idx_topology_edges_to ON topology_edges(to_node, seq);

	CREATE TABLE IF NOT EXISTS vulnerabilities (
		seq BIGSERIAL NOT NULL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		cvss_score DOUBLE PRECISION NOT NULL CHECK (cvss_score >= 0 AND cvss_score <= 10)
	);

	CREATE TABLE IF NOT EXISTS vulnerability_affects (
		seq BIGSERIAL NOT NULL,
		vuln_id TEXT NOT NULL REFERENCES vulnerabilities(id),
		node_id TEXT NOT NULL REFERENCES topology_nodes(id),
		PRIMARY KEY (vuln_id, node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_vulnerability_affects_node ON vulnerability_affects(node_id, seq);
	`

// Migrate creates the topology tables if they don't exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
