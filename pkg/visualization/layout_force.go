package visualization

import (
	"math"
	"math/rand"
)

// ForceLayout implements Fruchterman-Reingold style force-directed layout.
// Initial positions come from a seeded source, so equal inputs and seeds give
// equal layouts.
type ForceLayout struct {
	config LayoutConfig
}

// NewForceLayout creates a new force-directed layout
func NewForceLayout(config LayoutConfig) *ForceLayout {
	if config.Iterations == 0 {
		config.Iterations = 50
	}
	if config.Padding == 0 {
		config.Padding = 50
	}
	return &ForceLayout{config: config}
}

// Compute computes positions using force-directed algorithm
func (fl *ForceLayout) Compute(p *Projection) (map[int]Position, error) {
	cfg := fl.config
	if len(p.Nodes) == 0 {
		return make(map[int]Position), nil
	}

	// Single node - center it
	if len(p.Nodes) == 1 {
		return map[int]Position{
			p.Nodes[0].ID: {X: cfg.Width / 2, Y: cfg.Height / 2},
		}, nil
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	ids := make([]int, len(p.Nodes))
	positions := make(map[int]Position, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
		positions[n.ID] = Position{
			X: rng.Float64()*(cfg.Width-2*cfg.Padding) + cfg.Padding,
			Y: rng.Float64()*(cfg.Height-2*cfg.Padding) + cfg.Padding,
		}
	}
	adj := neighbours(p)

	k := math.Sqrt((cfg.Width * cfg.Height) / float64(len(ids))) // Optimal distance
	temperature := cfg.Width / 10.0

	for iter := 0; iter < cfg.Iterations; iter++ {
		forces := make([]Position, len(ids))

		// Repulsion between all nodes
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				a, b := positions[ids[i]], positions[ids[j]]
				dx, dy := a.X-b.X, a.Y-b.Y
				dist := math.Max(math.Sqrt(dx*dx+dy*dy), 0.01)

				force := (k * k) / dist
				fx, fy := (dx/dist)*force, (dy/dist)*force
				forces[i].X += fx
				forces[i].Y += fy
				forces[j].X -= fx
				forces[j].Y -= fy
			}
		}

		// Attraction between connected nodes
		for i, id := range ids {
			for other := range adj[id] {
				a, b := positions[id], positions[other]
				dx, dy := a.X-b.X, a.Y-b.Y
				dist := math.Sqrt(dx*dx + dy*dy)
				if dist < 0.01 {
					continue
				}
				force := (dist * dist) / k
				forces[i].X -= (dx / dist) * force
				forces[i].Y -= (dy / dist) * force
			}
		}

		// Apply forces with cooling
		cool := 1.0 - float64(iter)/float64(cfg.Iterations)
		for i, id := range ids {
			f := forces[i]
			mag := math.Sqrt(f.X*f.X + f.Y*f.Y)
			if mag == 0 {
				continue
			}
			step := math.Min(mag, temperature) * cool
			pos := positions[id]
			positions[id] = Position{X: pos.X + (f.X/mag)*step, Y: pos.Y + (f.Y/mag)*step}
		}

		temperature *= 0.95
	}

	return normalizePositions(positions, cfg.Width, cfg.Height, cfg.Padding), nil
}
