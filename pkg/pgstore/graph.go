package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-attackpath/pkg/logging"
	"github.com/dd0wney/cluso-attackpath/pkg/storage"
	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// selectorColumns whitelists the columns a selector may filter on.
var selectorColumns = map[topology.SelectorField]string{
	topology.FieldID:          "id",
	topology.FieldName:        "name",
	topology.FieldKind:        "kind",
	topology.FieldZone:        "zone",
	topology.FieldCriticality: "criticality",
}

const (
	sqlSelectNodes = `SELECT id, kind, name, zone, criticality FROM topology_nodes WHERE `

	sqlSelectEdges = `
		SELECT from_node, to_node, type, allowed, protocol, firewall_rule, action
		FROM topology_edges WHERE `

	sqlAffecting = `
		SELECT v.id, v.name, v.cvss_score
		FROM vulnerability_affects a
		JOIN vulnerabilities v ON v.id = a.vuln_id
		WHERE a.node_id = $1
		ORDER BY a.seq`
)

var directionClauses = map[topology.Direction]string{
	topology.DirectionOutbound: "from_node = $1",
	topology.DirectionInbound:  "to_node = $1",
	topology.DirectionBoth:     "(from_node = $1 OR to_node = $1)",
}

// LookupNodes returns every node matching sel in insertion order.
func (s *Store) LookupNodes(ctx context.Context, sel topology.Selector) (result []topology.Node, err error) {
	defer func(start time.Time) { s.observe("lookup_nodes", start, err) }(time.Now())

	if err := sel.Validate(); err != nil {
		return nil, storage.NewError("LookupNodes").Context(sel.String()).Cause(err).Err()
	}
	column := selectorColumns[sel.Field]

	rows, err := s.pool.Query(ctx, sqlSelectNodes+column+" = $1 ORDER BY seq", sel.Value)
	if err != nil {
		return nil, storage.NewError("LookupNodes").Context(sel.String()).Cause(err).Err()
	}
	defer rows.Close()

	result = []topology.Node{}
	for rows.Next() {
		var id, kind, name, zone, criticality string
		if err := rows.Scan(&id, &kind, &name, &zone, &criticality); err != nil {
			return nil, storage.NewError("LookupNodes").Context("scan").Cause(err).Err()
		}
		result = append(result, topology.Node{
			ID:          id,
			Kind:        topology.NodeKind(kind),
			Name:        name,
			Zone:        zone,
			Criticality: topology.Criticality(criticality),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewError("LookupNodes").Cause(err).Err()
	}
	return result, nil
}

// Neighbors returns the edges incident to nodeID in insertion order. An
// unknown node yields an empty result.
func (s *Store) Neighbors(ctx context.Context, nodeID string, types []topology.EdgeType, dir topology.Direction) (result []topology.Edge, err error) {
	defer func(start time.Time) { s.observe("neighbors", start, err) }(time.Now())

	clause, ok := directionClauses[dir]
	if !ok {
		return nil, storage.NewError("Neighbors").Node(nodeID).Context("direction " + dir.String()).Cause(storage.ErrInvalidEdge).Err()
	}

	var rows pgx.Rows
	if len(types) == 0 {
		rows, err = s.pool.Query(ctx, sqlSelectEdges+clause+" ORDER BY seq", nodeID)
	} else {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		rows, err = s.pool.Query(ctx, sqlSelectEdges+clause+" AND type = ANY($2) ORDER BY seq", nodeID, names)
	}
	if err != nil {
		return nil, storage.NewError("Neighbors").Node(nodeID).Cause(err).Err()
	}
	defer rows.Close()

	result = []topology.Edge{}
	for rows.Next() {
		var e topology.Edge
		var typ, action string
		if err := rows.Scan(&e.From, &e.To, &typ, &e.Allowed, &e.Protocol, &e.FirewallRule, &action); err != nil {
			return nil, storage.NewError("Neighbors").Node(nodeID).Context("scan").Cause(err).Err()
		}
		e.Type = topology.EdgeType(typ)
		e.Action = topology.Action(action)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewError("Neighbors").Node(nodeID).Cause(err).Err()
	}

	s.log.Debug("neighbors fetched", logging.NodeID(nodeID), logging.Count(len(result)))
	return result, nil
}

// AffectingVulnerabilities returns the vulnerabilities linked to nodeID in link order.
func (s *Store) AffectingVulnerabilities(ctx context.Context, nodeID string) (result []topology.Vulnerability, err error) {
	defer func(start time.Time) { s.observe("affecting_vulnerabilities", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, sqlAffecting, nodeID)
	if err != nil {
		return nil, storage.NewError("AffectingVulnerabilities").Node(nodeID).Cause(err).Err()
	}
	defer rows.Close()

	result = []topology.Vulnerability{}
	for rows.Next() {
		var v topology.Vulnerability
		if err := rows.Scan(&v.ID, &v.Name, &v.CVSS); err != nil {
			return nil, storage.NewError("AffectingVulnerabilities").Node(nodeID).Context("scan").Cause(err).Err()
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewError("AffectingVulnerabilities").Node(nodeID).Cause(err).Err()
	}
	return result, nil
}
