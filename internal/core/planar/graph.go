package planar

import (
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/spatial"
)

// Mode selects what becomes an edge.
type Mode int

const (
	// EntityEdges makes one edge per entity between its two ends.
	EntityEdges Mode = iota
	// SegmentEdges makes every vertex a node and every segment an edge.
	SegmentEdges
)

// EndRef points at one vertex of one entity.
type EndRef struct {
	Handle model.EntityHandle
	Vertex int
}

// Node is a snapped vertex position. Its point is the first position that
// joined it.
type Node struct {
	ID    int
	Point geom.Point
	Refs  []EndRef
	edges []int
}

// Edge joins two nodes. Segment is the segment index in SegmentEdges mode
// and -1 otherwise. From == To for self-loops.
type Edge struct {
	ID         int
	Handle     model.EntityHandle
	Entity     int
	Segment    int
	From, To   int
	Length     float64
	Degenerate bool
}

// Adjacent is an edge seen from one of its nodes.
type Adjacent struct {
	Edge *Edge
	Node *Node
}

// Graph is the planar graph of a working entity set. It does not own the
// entities; Entities is the snapshot it was built from.
type Graph struct {
	Mode     Mode
	Nodes    []*Node
	Edges    []*Edge
	Entities []model.Entity
	tol      geom.Tolerance
	index    *spatial.KDTree[int]
	byHandle map[model.EntityHandle][]int
}

// Build constructs the graph. Entities with fewer than two vertices are
// left out.
func Build(entities []model.Entity, tol geom.Tolerance, mode Mode) *Graph {
	g := &Graph{Mode: mode, Entities: entities, tol: tol, byHandle: make(map[model.EntityHandle][]int)}

	var pts []geom.Point
	var refs []EndRef
	for _, e := range entities {
		c := e.Geometry
		if len(c.Vertices) < 2 {
			continue
		}
		for _, vi := range nodeVertices(c, mode) {
			pts = append(pts, c.Vertices[vi].Point)
			refs = append(refs, EndRef{Handle: e.Handle, Vertex: vi})
		}
	}

	tree := spatial.NewKDTree(pts, refs)
	assigned := make([]int, len(pts))
	for i := range assigned {
		assigned[i] = -1
	}
	nodeOf := make(map[EndRef]int, len(pts))
	for i, p := range pts {
		if assigned[i] >= 0 {
			continue
		}
		n := &Node{ID: len(g.Nodes), Point: p}
		g.Nodes = append(g.Nodes, n)
		for _, it := range tree.WithinRadius(p, tol.EqualPoint) {
			if assigned[it.ID] >= 0 {
				continue
			}
			assigned[it.ID] = n.ID
			n.Refs = append(n.Refs, it.Value)
			nodeOf[it.Value] = n.ID
		}
	}

	nodePts := make([]geom.Point, len(g.Nodes))
	ids := make([]int, len(g.Nodes))
	for i, n := range g.Nodes {
		nodePts[i], ids[i] = n.Point, n.ID
	}
	g.index = spatial.NewKDTree(nodePts, ids)

	for ei, e := range entities {
		c := e.Geometry
		if len(c.Vertices) < 2 {
			continue
		}
		switch mode {
		case EntityEdges:
			from := nodeOf[EndRef{e.Handle, 0}]
			to := from
			if !c.Closed {
				to = nodeOf[EndRef{e.Handle, len(c.Vertices) - 1}]
			}
			g.addEdge(e.Handle, ei, -1, from, to, c.Length())
		case SegmentEdges:
			n := len(c.Vertices)
			for _, s := range c.Segments() {
				from := nodeOf[EndRef{e.Handle, s.Index}]
				to := nodeOf[EndRef{e.Handle, (s.Index + 1) % n}]
				g.addEdge(e.Handle, ei, s.Index, from, to, s.Length())
			}
		}
	}
	return g
}

func nodeVertices(c geom.Curve, mode Mode) []int {
	if mode == SegmentEdges {
		out := make([]int, len(c.Vertices))
		for i := range out {
			out[i] = i
		}
		return out
	}
	if c.Closed {
		return []int{0}
	}
	return []int{0, len(c.Vertices) - 1}
}

func (g *Graph) addEdge(h model.EntityHandle, entity, seg, from, to int, length float64) {
	e := &Edge{
		ID:         len(g.Edges),
		Handle:     h,
		Entity:     entity,
		Segment:    seg,
		From:       from,
		To:         to,
		Length:     length,
		Degenerate: length <= g.tol.EqualPoint,
	}
	g.Edges = append(g.Edges, e)
	g.Nodes[from].edges = append(g.Nodes[from].edges, e.ID)
	if to != from {
		g.Nodes[to].edges = append(g.Nodes[to].edges, e.ID)
	}
	g.byHandle[h] = append(g.byHandle[h], e.ID)
}

// Degree counts incident edge ends; a self-loop counts twice.
func (g *Graph) Degree(n *Node) int {
	d := 0
	for _, id := range n.edges {
		e := g.Edges[id]
		if e.From == e.To {
			d += 2
		} else {
			d++
		}
	}
	return d
}

// SolidDegree counts incident ends of edges longer than the point
// tolerance. Two coincident vertices of one curve do not make a junction.
func (g *Graph) SolidDegree(n *Node) int {
	d := 0
	for _, id := range n.edges {
		e := g.Edges[id]
		switch {
		case e.Degenerate:
		case e.From == e.To:
			d += 2
		default:
			d++
		}
	}
	return d
}

// Neighbors lists each incident edge with the node at its other end.
func (g *Graph) Neighbors(n *Node) []Adjacent {
	out := make([]Adjacent, 0, len(n.edges))
	for _, id := range n.edges {
		e := g.Edges[id]
		out = append(out, Adjacent{Edge: e, Node: g.Nodes[e.Other(n.ID)]})
	}
	return out
}

// Other returns the node at the far end of e from node.
func (e *Edge) Other(node int) int {
	if e.From == node {
		return e.To
	}
	return e.From
}

// NodeAt returns the node within EqualPoint of p.
func (g *Graph) NodeAt(p geom.Point) (*Node, bool) {
	it, _, ok := g.index.Nearest(p, g.tol.EqualPoint)
	if !ok {
		return nil, false
	}
	return g.Nodes[it.Value], true
}

// NodeOf returns the node holding vertex v of entity h.
func (g *Graph) NodeOf(h model.EntityHandle, v int) (*Node, bool) {
	for _, id := range g.byHandle[h] {
		e := g.Edges[id]
		for _, nid := range []int{e.From, e.To} {
			for _, r := range g.Nodes[nid].Refs {
				if r.Handle == h && r.Vertex == v {
					return g.Nodes[nid], true
				}
			}
		}
	}
	return nil, false
}

// EdgesOf returns the edges contributed by entity h.
func (g *Graph) EdgesOf(h model.EntityHandle) []*Edge {
	out := make([]*Edge, 0, len(g.byHandle[h]))
	for _, id := range g.byHandle[h] {
		out = append(out, g.Edges[id])
	}
	return out
}

// Curve returns the geometry an edge was built from: the whole entity in
// EntityEdges mode, a single segment otherwise.
func (g *Graph) Curve(e *Edge) geom.Curve {
	c := g.Entities[e.Entity].Geometry
	if e.Segment < 0 {
		return c
	}
	s := c.Segment(e.Segment)
	return geom.Curve{Kind: c.Kind, Vertices: []geom.Vertex{{Point: s.A, Bulge: s.Bulge}, {Point: s.B}}}
}

// Direction is the unit tangent leaving node along e.
func (g *Graph) Direction(e *Edge, node int) geom.Point {
	c := g.Curve(e)
	if e.From == node {
		return c.OutwardTangent(geom.AtStart).Mul(-1)
	}
	return c.OutwardTangent(geom.AtEnd).Mul(-1)
}

// FreeEnds returns the nodes with exactly one solid edge end. In
// SegmentEdges mode an end landing on any vertex of another curve is not
// free.
func (g *Graph) FreeEnds() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if g.SolidDegree(n) == 1 {
			out = append(out, n)
		}
	}
	return out
}

// SolidNeighbors is Neighbors without the degenerate edges.
func (g *Graph) SolidNeighbors(n *Node) []Adjacent {
	out := make([]Adjacent, 0, len(n.edges))
	for _, a := range g.Neighbors(n) {
		if !a.Edge.Degenerate {
			out = append(out, a)
		}
	}
	return out
}

// FreeEnd returns the curve end held by a free node: the end of the
// curve owning its single solid edge.
func (g *Graph) FreeEnd(n *Node) (EndRef, geom.CurveEnd, bool) {
	adj := g.SolidNeighbors(n)
	if len(adj) != 1 {
		return EndRef{}, 0, false
	}
	e := adj[0].Edge
	last := len(g.Entities[e.Entity].Geometry.Vertices) - 1
	for _, r := range n.Refs {
		if r.Handle != e.Handle {
			continue
		}
		switch r.Vertex {
		case 0:
			return r, geom.AtStart, true
		case last:
			return r, geom.AtEnd, true
		}
	}
	return EndRef{}, 0, false
}
