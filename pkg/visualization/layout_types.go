package visualization

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutConfig configures layout parameters
type LayoutConfig struct {
	Width      float64 // Canvas width
	Height     float64 // Canvas height
	Iterations int     // Number of iterations for iterative algorithms
	Padding    float64 // Padding from edges
	Seed       int64   // Seed for initial positions; equal seeds give equal layouts
}

// Layout interface for different layout algorithms
type Layout interface {
	Compute(p *Projection) (map[int]Position, error)
}

// neighbours returns the undirected adjacency of the projection's links.
func neighbours(p *Projection) map[int]map[int]bool {
	adj := make(map[int]map[int]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		adj[n.ID] = make(map[int]bool)
	}
	for _, l := range p.Links {
		if l.Source == l.Target {
			continue
		}
		adj[l.Source][l.Target] = true
		adj[l.Target][l.Source] = true
	}
	return adj
}
