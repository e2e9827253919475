package storage

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// AddVulnerability registers a vulnerability record.
func (gs *GraphStorage) AddVulnerability(ctx context.Context, vuln topology.Vulnerability) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return NewError("AddVulnerability").Vulnerability(vuln.ID).Cause(err).Err()
	}
	if gs.closed {
		return NewError("AddVulnerability").Cause(ErrStorageClosed).Err()
	}
	if vuln.ID == "" {
		return NewError("AddVulnerability").Field("id").Cause(ErrInvalidVulnerability).Err()
	}
	if vuln.CVSS < 0 || vuln.CVSS > 10 {
		return NewError("AddVulnerability").Vulnerability(vuln.ID).Field("cvss_score").Cause(ErrInvalidVulnerability).Err()
	}
	if _, exists := gs.vulns[vuln.ID]; exists {
		return NewError("AddVulnerability").Vulnerability(vuln.ID).Cause(ErrDuplicateVulnerability).Err()
	}

	v := vuln
	gs.vulns[v.ID] = &v
	gs.vulnOrder = append(gs.vulnOrder, v.ID)

	atomic.AddUint64(&gs.stats.VulnerabilityCount, 1)
	gs.publishCounts()
	return nil
}

// LinkVulnerability records that vulnID AFFECTS the component nodeID. Linking
// the same pair twice is a no-op.
func (gs *GraphStorage) LinkVulnerability(ctx context.Context, vulnID, nodeID string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return NewError("LinkVulnerability").Vulnerability(vulnID).Cause(err).Err()
	}
	if gs.closed {
		return NewError("LinkVulnerability").Cause(ErrStorageClosed).Err()
	}
	if _, ok := gs.vulns[vulnID]; !ok {
		return NewError("LinkVulnerability").Vulnerability(vulnID).Cause(ErrVulnerabilityNotFound).Err()
	}
	node, ok := gs.nodes[nodeID]
	if !ok {
		return NodeNotFoundError("LinkVulnerability", nodeID)
	}
	if node.Kind != topology.KindComponent {
		return NewError("LinkVulnerability").Edge(vulnID, nodeID).
			Context("AFFECTS target must be a Component").Cause(ErrInvalidEdge).Err()
	}

	if slices.Contains(gs.affects[nodeID], vulnID) {
		return nil
	}
	gs.affects[nodeID] = append(gs.affects[nodeID], vulnID)
	return nil
}

// AffectingVulnerabilities returns the vulnerabilities linked to nodeID in link
// order. A node without links yields an empty result.
func (gs *GraphStorage) AffectingVulnerabilities(ctx context.Context, nodeID string) (result []topology.Vulnerability, err error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	done, err := gs.begin(ctx, "affecting_vulnerabilities")
	if err != nil {
		return nil, err
	}
	defer func() { done(err) }()

	if _, ok := gs.nodes[nodeID]; !ok {
		return nil, NodeNotFoundError("AffectingVulnerabilities", nodeID)
	}

	ids := gs.affects[nodeID]
	result = make([]topology.Vulnerability, 0, len(ids))
	for _, id := range ids {
		result = append(result, *gs.vulns[id])
	}
	return result, nil
}
