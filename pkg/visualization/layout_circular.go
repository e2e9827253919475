package visualization

import (
	"math"
)

// CircularLayout arranges nodes in a circle in index order
type CircularLayout struct {
	config LayoutConfig
}

// NewCircularLayout creates a new circular layout
func NewCircularLayout(config LayoutConfig) *CircularLayout {
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &CircularLayout{config: config}
}

// Compute arranges nodes in a circle
func (cl *CircularLayout) Compute(p *Projection) (map[int]Position, error) {
	positions := make(map[int]Position, len(p.Nodes))

	if len(p.Nodes) == 0 {
		return positions, nil
	}

	centerX := cl.config.Width / 2
	centerY := cl.config.Height / 2
	radius := math.Min(centerX, centerY) - cl.config.Padding

	angleStep := 2 * math.Pi / float64(len(p.Nodes))

	for i, n := range p.Nodes {
		angle := float64(i) * angleStep
		positions[n.ID] = Position{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		}
	}

	return positions, nil
}
