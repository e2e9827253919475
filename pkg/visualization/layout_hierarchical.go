package visualization

// HierarchicalLayout arranges nodes in layers by distance from path sources
type HierarchicalLayout struct {
	config LayoutConfig
}

// NewHierarchicalLayout creates a new hierarchical layout
func NewHierarchicalLayout(config LayoutConfig) *HierarchicalLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &HierarchicalLayout{config: config}
}

// Compute places nodes without incoming links on the first layer and each
// following layer one hop further along the links.
func (hl *HierarchicalLayout) Compute(p *Projection) (map[int]Position, error) {
	positions := make(map[int]Position, len(p.Nodes))

	if len(p.Nodes) == 0 {
		return positions, nil
	}

	outgoing := make(map[int][]int)
	hasIncoming := make(map[int]bool)
	for _, l := range p.Links {
		outgoing[l.Source] = append(outgoing[l.Source], l.Target)
		if l.Source != l.Target {
			hasIncoming[l.Target] = true
		}
	}

	roots := make([]int, 0)
	for _, n := range p.Nodes {
		if !hasIncoming[n.ID] {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		// No clear root, use first node
		roots = []int{p.Nodes[0].ID}
	}

	// Build levels using BFS
	levels := make([][]int, 0)
	visited := make(map[int]bool)
	for _, r := range roots {
		visited[r] = true
	}
	currentLevel := roots

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		nextLevel := make([]int, 0)

		for _, id := range currentLevel {
			for _, to := range outgoing[id] {
				if !visited[to] {
					visited[to] = true
					nextLevel = append(nextLevel, to)
				}
			}
		}

		currentLevel = nextLevel
	}

	// Add unvisited nodes to last level
	for _, n := range p.Nodes {
		if !visited[n.ID] {
			levels[len(levels)-1] = append(levels[len(levels)-1], n.ID)
		}
	}

	levelHeight := (hl.config.Height - 2*hl.config.Padding) / float64(len(levels))

	for levelIdx, level := range levels {
		y := hl.config.Padding + float64(levelIdx)*levelHeight + levelHeight/2
		levelWidth := hl.config.Width - 2*hl.config.Padding
		spacing := levelWidth / float64(len(level)+1)

		for nodeIdx, id := range level {
			x := hl.config.Padding + spacing*float64(nodeIdx+1)
			positions[id] = Position{X: x, Y: y}
		}
	}

	return positions, nil
}
