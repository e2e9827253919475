package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dd0wney/cluso-attackpath/pkg/storage"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

const (
	sqlInsertNode = `
		INSERT INTO topology_nodes (id, kind, name, zone, criticality)
		VALUES ($1, $2, $3, $4, $5)`

	sqlInsertEdge = `
		INSERT INTO topology_edges (from_node, to_node, type, allowed, protocol, firewall_rule, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	sqlInsertVulnerability = `
		INSERT INTO vulnerabilities (id, name, cvss_score)
		VALUES ($1, $2, $3)`

	sqlNodeKind = `SELECT kind FROM topology_nodes WHERE id = $1`

	sqlInsertAffects = `
		INSERT INTO vulnerability_affects (vuln_id, node_id)
		VALUES ($1, $2)
		ON CONFLICT (vuln_id, node_id) DO NOTHING`
)

// PostgreSQL error codes mapped onto storage sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// AddNode inserts a node keyed by its ID (or name when the ID is empty).
func (s *Store) AddNode(ctx context.Context, node topology.Node) error {
	key := node.Key()
	if key == "" {
		return storage.NewError("AddNode").Node(key).Field("id").Cause(storage.ErrInvalidNode).Err()
	}
	if !node.Kind.Valid() {
		return storage.NewError("AddNode").Node(key).Field("type").Cause(storage.ErrInvalidNode).Err()
	}

	_, err := s.pool.Exec(ctx, sqlInsertNode, key, string(node.Kind), node.Name, node.Zone, string(node.Criticality))
	switch {
	case err == nil:
		return nil
	case pgCode(err) == codeUniqueViolation:
		return storage.NewError("AddNode").Node(key).Cause(storage.ErrDuplicateNode).Err()
	default:
		return storage.NewError("AddNode").Node(key).Cause(err).Err()
	}
}

// AddEdge inserts a connectivity or dependency edge between two existing nodes.
func (s *Store) AddEdge(ctx context.Context, edge topology.Edge) error {
	switch edge.Type {
	case topology.EdgeConnectsTo, topology.EdgeDependsOn:
	default:
		return storage.NewError("AddEdge").Edge(edge.From, edge.To).Field("type").Cause(storage.ErrInvalidEdge).Err()
	}
	if edge.Action != "" && edge.Action != topology.ActionAllow && edge.Action != topology.ActionDeny {
		return storage.NewError("AddEdge").Edge(edge.From, edge.To).Field("action").Cause(storage.ErrInvalidEdge).Err()
	}

	_, err := s.pool.Exec(ctx, sqlInsertEdge,
		edge.From, edge.To, string(edge.Type), edge.Allowed, edge.Protocol, edge.FirewallRule, string(edge.Action))
	switch {
	case err == nil:
		return nil
	case pgCode(err) == codeUniqueViolation:
		return storage.NewError("AddEdge").Edge(edge.From, edge.To).Context(string(edge.Type)).Cause(storage.ErrDuplicateEdge).Err()
	case pgCode(err) == codeForeignKeyViolation:
		return storage.NewError("AddEdge").Edge(edge.From, edge.To).Cause(storage.ErrNodeNotFound).Err()
	default:
		return storage.NewError("AddEdge").Edge(edge.From, edge.To).Cause(err).Err()
	}
}

// AddVulnerability registers a vulnerability record.
func (s *Store) AddVulnerability(ctx context.Context, vuln topology.Vulnerability) error {
	if vuln.ID == "" {
		return storage.NewError("AddVulnerability").Field("id").Cause(storage.ErrInvalidVulnerability).Err()
	}

	_, err := s.pool.Exec(ctx, sqlInsertVulnerability, vuln.ID, vuln.Name, vuln.CVSS)
	switch {
	case err == nil:
		return nil
	case pgCode(err) == codeUniqueViolation:
		return storage.NewError("AddVulnerability").Vulnerability(vuln.ID).Cause(storage.ErrDuplicateVulnerability).Err()
	case pgCode(err) == codeCheckViolation:
		return storage.NewError("AddVulnerability").Vulnerability(vuln.ID).Field("cvss_score").Cause(storage.ErrInvalidVulnerability).Err()
	default:
		return storage.NewError("AddVulnerability").Vulnerability(vuln.ID).Cause(err).Err()
	}
}

// LinkVulnerability records that vulnID AFFECTS the component nodeID. Linking
// the same pair twice is a no-op.
func (s *Store) LinkVulnerability(ctx context.Context, vulnID, nodeID string) error {
	var kind string
	if err := s.pool.QueryRow(ctx, sqlNodeKind, nodeID).Scan(&kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.NodeNotFoundError("LinkVulnerability", nodeID)
		}
		return storage.NewError("LinkVulnerability").Node(nodeID).Cause(err).Err()
	}
	if topology.NodeKind(kind) != topology.KindComponent {
		return storage.NewError("LinkVulnerability").Edge(vulnID, nodeID).
			Context("AFFECTS target must be a Component").Cause(storage.ErrInvalidEdge).Err()
	}

	_, err := s.pool.Exec(ctx, sqlInsertAffects, vulnID, nodeID)
	switch {
	case err == nil:
		return nil
	case pgCode(err) == codeForeignKeyViolation:
		return storage.NewError("LinkVulnerability").Vulnerability(vulnID).Cause(storage.ErrVulnerabilityNotFound).Err()
	default:
		return storage.NewError("LinkVulnerability").Edge(vulnID, nodeID).Cause(err).Err()
	}
}
