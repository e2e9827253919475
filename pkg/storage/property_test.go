package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

// buildRandomGraph adds n components and one edge per (from, to) pair in the
// generated list, skipping duplicates.
func buildRandomGraph(n int, pairs [][2]int) *GraphStorage {
	gs := New()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_ = gs.AddNode(ctx, topology.Node{ID: fmt.Sprintf("n%d", i), Kind: topology.KindComponent})
	}
	for _, p := range pairs {
		from, to := fmt.Sprintf("n%d", p[0]%n), fmt.Sprintf("n%d", p[1]%n)
		_ = gs.AddEdge(ctx, topology.NewEdge(from, to, topology.EdgeConnectsTo))
	}
	return gs
}

func pairGen() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 1000).Map(func(v int) [2]int {
		return [2]int{v / 37, v % 37}
	}))
}

// TestAdjacencyInvariants uses property-based testing to verify adjacency invariants
func TestAdjacencyInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("outbound edges start at the queried node", prop.ForAll(
		func(n int, pairs [][2]int) bool {
			gs := buildRandomGraph(n, pairs)
			for _, node := range gs.AllNodes() {
				edges, err := gs.Neighbors(context.Background(), node.ID, nil, topology.DirectionOutbound)
				if err != nil {
					return false
				}
				for _, e := range edges {
					if e.From != node.ID {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		pairGen(),
	))

	properties.Property("both equals outbound plus inbound without double counting", prop.ForAll(
		func(n int, pairs [][2]int) bool {
			gs := buildRandomGraph(n, pairs)
			ctx := context.Background()
			for _, node := range gs.AllNodes() {
				out, _ := gs.Neighbors(ctx, node.ID, nil, topology.DirectionOutbound)
				in, _ := gs.Neighbors(ctx, node.ID, nil, topology.DirectionInbound)
				both, _ := gs.Neighbors(ctx, node.ID, nil, topology.DirectionBoth)
				loops := 0
				for _, e := range out {
					if e.From == e.To {
						loops++
					}
				}
				if len(both) != len(out)+len(in)-loops {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		pairGen(),
	))

	properties.Property("edge count matches sum of outbound degrees", prop.ForAll(
		func(n int, pairs [][2]int) bool {
			gs := buildRandomGraph(n, pairs)
			total := 0
			for _, node := range gs.AllNodes() {
				out, _ := gs.Neighbors(context.Background(), node.ID, nil, topology.DirectionOutbound)
				total += len(out)
			}
			return uint64(total) == gs.GetStatistics().EdgeCount
		},
		gen.IntRange(1, 12),
		pairGen(),
	))

	properties.TestingRun(t)
}
