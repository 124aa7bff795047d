package detect

import (
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/planar"
)

// Dangling walks from every free end through degree-two vertices until it
// reaches a junction or another free end. Chains no longer than Limit are
// reported whole, one result per chain. The graph has a node at every
// vertex, so a chain stops where it meets an interior vertex of another
// curve; when that junction is an interior vertex of the chain's own last
// curve, the payload names that curve in Trim.
func Dangling(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.EraseDangling, p)
	g := planar.Build(r.usable(entities), p.Tol, planar.SegmentEdges)
	walked := make(map[int]bool)

	for _, start := range g.FreeEnds() {
		if !r.step() {
			break
		}
		chain, ok := walk(g, start, walked)
		if !ok || chain.Length > p.Limit {
			continue
		}
		r.add(chain, chain.Path...)
	}
	return r.outcome()
}

// walk follows the chain leaving start. It reports false when the chain
// was already walked from its other end.
func walk(g *planar.Graph, start *planar.Node, walked map[int]bool) (model.DanglingPayload, bool) {
	chain := model.DanglingPayload{FreeEnd: start.Point}
	adj := g.SolidNeighbors(start)
	if len(adj) != 1 {
		return chain, false
	}
	edge, node := adj[0].Edge, adj[0].Node
	entry := start
	for {
		if walked[edge.ID] {
			return chain, len(chain.Path) > 0
		}
		walked[edge.ID] = true
		if n := len(chain.Path); n == 0 || chain.Path[n-1] != edge.Handle {
			chain.Path = model.Selection(chain.Path).Union([]model.EntityHandle{edge.Handle})
			entry = g.Nodes[edge.Other(node.ID)]
		}
		chain.Length += edge.Length

		switch deg := g.SolidDegree(node); {
		case deg == 1:
			return chain, true
		case deg >= 3:
			pt := node.Point
			chain.Junction = &pt
			if !isEndOf(g, node, edge) {
				chain.Trim = edge.Handle
				chain.TrimFrom = entry.Point
			}
			return chain, true
		}
		next := nextEdge(g, node, edge)
		if next == nil {
			return chain, true
		}
		edge = next
		node = g.Nodes[edge.Other(node.ID)]
	}
}

// isEndOf reports whether node holds an end vertex of the open curve e
// belongs to.
func isEndOf(g *planar.Graph, node *planar.Node, e *planar.Edge) bool {
	c := g.Entities[e.Entity].Geometry
	if c.Closed {
		return false
	}
	last := len(c.Vertices) - 1
	for _, ref := range node.Refs {
		if ref.Handle == e.Handle && (ref.Vertex == 0 || ref.Vertex == last) {
			return true
		}
	}
	return false
}

// nextEdge is the solid edge of a degree-two node other than the one
// arrived by.
func nextEdge(g *planar.Graph, n *planar.Node, arrived *planar.Edge) *planar.Edge {
	for _, a := range g.SolidNeighbors(n) {
		if a.Edge.ID != arrived.ID {
			return a.Edge
		}
	}
	return nil
}

// FreeEnds reports every curve end that meets no vertex of any other
// curve, and no other vertex of its own.
func FreeEnds(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.FindDangling, p)
	g := planar.Build(r.usable(entities), p.Tol, planar.SegmentEdges)
	for _, n := range g.FreeEnds() {
		if !r.step() {
			break
		}
		ref, end, ok := g.FreeEnd(n)
		if !ok {
			continue
		}
		r.add(model.EndpointPayload{Handle: ref.Handle, End: end, Point: n.Point}, ref.Handle)
	}
	return r.outcome()
}
