package graph

import (
	"math"

	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
)

// Position is a node coordinate normalised to the unit square.
type Position struct {
	X, Y float64
}

// LayoutOptions tunes the force-directed layout.
type LayoutOptions struct {
	Updates   int
	Repulsion float64
	Rate      float64
	Theta     float64
}

// DefaultLayoutOptions returns the settings used for rendering.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{Updates: 50, Repulsion: 1, Rate: 0.05, Theta: 0.2}
}

// Layout computes a force-directed (Eades spring) layout. Edge direction is ignored for
// placement. Returned positions lie in [0,1] on both axes.
func Layout(kg *KnowledgeGraph, opts LayoutOptions) map[int64]Position {
	pos := make(map[int64]Position, len(kg.Nodes))
	switch len(kg.Nodes) {
	case 0:
		return pos
	case 1:
		pos[kg.Nodes[0].ID] = Position{X: 0.5, Y: 0.5}
		return pos
	}

	ug := simple.NewUndirectedGraph()
	for _, n := range kg.Nodes {
		ug.AddNode(simple.Node(n.ID))
	}
	for _, e := range kg.Edges {
		if e.From == e.To || ug.HasEdgeBetween(e.From, e.To) {
			continue
		}
		ug.SetEdge(ug.NewEdge(simple.Node(e.From), simple.Node(e.To)))
	}

	eades := layout.EadesR2{
		Repulsion: opts.Repulsion,
		Rate:      opts.Rate,
		Updates:   opts.Updates,
		Theta:     opts.Theta,
	}
	o := layout.NewOptimizerR2(ug, eades.Update)
	for o.Update() {
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	raw := make(map[int64]Position, len(kg.Nodes))
	for _, n := range kg.Nodes {
		c := o.Coord2(n.ID)
		x, y := c.X, c.Y
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		if math.IsNaN(y) || math.IsInf(y, 0) {
			y = 0
		}
		raw[n.ID] = Position{X: x, Y: y}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	for id, p := range raw {
		pos[id] = Position{X: normalise(p.X, minX, maxX), Y: normalise(p.Y, minY, maxY)}
	}
	return pos
}

func normalise(v, lo, hi float64) float64 {
	if hi-lo < 1e-9 {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}
