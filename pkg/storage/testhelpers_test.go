package storage

import (
	"context"
	"testing"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

func mustAddNode(t *testing.T, gs *GraphStorage, n topology.Node) {
	t.Helper()
	if err := gs.AddNode(context.Background(), n); err != nil {
		t.Fatalf("AddNode(%s) failed: %v", n.Key(), err)
	}
}

func mustAddEdge(t *testing.T, gs *GraphStorage, e topology.Edge) {
	t.Helper()
	if err := gs.AddEdge(context.Background(), e); err != nil {
		t.Fatalf("AddEdge(%s->%s) failed: %v", e.From, e.To, err)
	}
}

// newFacility builds: A(external) -> B(dmz) -> C(critical), A -> D, with V1 on C.
func newFacility(t *testing.T) *GraphStorage {
	t.Helper()
	gs := New()
	mustAddNode(t, gs, topology.Node{ID: "A", Kind: topology.KindNetworkInterface, Name: "edge-fw", Zone: "external"})
	mustAddNode(t, gs, topology.Node{ID: "B", Kind: topology.KindNetworkInterface, Name: "dmz-gw", Zone: "dmz"})
	mustAddNode(t, gs, topology.Node{ID: "C", Kind: topology.KindComponent, Name: "scada", Criticality: topology.CriticalityCritical})
	mustAddNode(t, gs, topology.Node{ID: "D", Kind: topology.KindComponent, Name: "historian", Criticality: topology.CriticalityHigh})

	mustAddEdge(t, gs, topology.NewEdge("A", "B", topology.EdgeConnectsTo))
	mustAddEdge(t, gs, topology.NewEdge("B", "C", topology.EdgeConnectsTo))
	mustAddEdge(t, gs, topology.NewEdge("A", "D", topology.EdgeDependsOn))

	ctx := context.Background()
	if err := gs.AddVulnerability(ctx, topology.Vulnerability{ID: "V1", CVSS: 9.8}); err != nil {
		t.Fatalf("AddVulnerability failed: %v", err)
	}
	if err := gs.LinkVulnerability(ctx, "V1", "C"); err != nil {
		t.Fatalf("LinkVulnerability failed: %v", err)
	}
	return gs
}
