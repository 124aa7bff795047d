package detect

import (
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/planar"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// crotches answers whether a vertex is shared by three or more edge ends.
type crotches struct {
	g *planar.Graph
}

func newCrotches(es []model.Entity, tol geom.Tolerance) crotches {
	return crotches{g: planar.Build(es, tol, planar.SegmentEdges)}
}

func (c crotches) at(h model.EntityHandle, v int) bool {
	n, ok := c.g.NodeOf(h, v)
	return ok && c.g.SolidDegree(n) >= 3
}

// DuplicateVertices reports consecutive vertices of one curve closer than
// Limit. Of each close pair the crotch vertex is kept; otherwise the
// earlier vertex is kept, unless the later one is the end of an open curve.
func DuplicateVertices(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.DuplicateVertexPolyline, p)
	es := r.usable(entities)
	cr := newCrotches(es, p.Tol)
	for _, e := range es {
		if !r.step() {
			break
		}
		removals := duplicateRemovals(e.Geometry, p.Limit, func(i int) bool { return cr.at(e.Handle, i) })
		if len(removals) > 0 {
			r.add(model.VertexRemovalPayload{Removals: removals}, e.Handle)
		}
	}
	return r.outcome()
}

func duplicateRemovals(c geom.Curve, limit float64, crotch func(int) bool) []model.VertexRemoval {
	n := len(c.Vertices)
	minVerts := 2
	if c.Closed {
		minVerts = 3
	}
	remaining := n
	var out []model.VertexRemoval
	drop := func(i, k int) {
		out = append(out, model.VertexRemoval{
			Index: i, Point: c.Vertices[i].Point,
			KeepIndex: k, KeepPoint: c.Vertices[k].Point,
		})
		remaining--
	}
	// preferLater decides between earlier vertex i and later vertex j.
	preferLater := func(i, j int) bool {
		ci, cj := crotch(i), crotch(j)
		if ci != cj {
			return cj
		}
		return !c.Closed && j == n-1 && i != 0
	}

	keep := 0
	for j := 1; j < n && remaining > minVerts; j++ {
		if c.Vertices[keep].Point.Distance(c.Vertices[j].Point) > limit {
			keep = j
			continue
		}
		if preferLater(keep, j) {
			drop(keep, j)
			keep = j
		} else {
			drop(j, keep)
		}
	}
	if c.Closed && keep != 0 && remaining > minVerts && c.Vertices[keep].Point.Distance(c.Vertices[0].Point) <= limit {
		if crotch(keep) && !crotch(0) {
			drop(0, keep)
		} else {
			drop(keep, 0)
		}
	}
	return out
}

// PointDeviations reports vertices lying within Limit of the straight line
// through their neighbouring anchors. Anchors are the vertices a
// Douglas-Peucker pass keeps, crotch points and the ends of arc segments.
func PointDeviations(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.RectifyPointDeviation, p)
	es := r.usable(entities)
	cr := newCrotches(es, p.Tol)
	for _, e := range es {
		if !r.step() {
			break
		}
		c := e.Geometry
		if len(c.Vertices) < 3 {
			continue
		}
		anchors := douglasPeuckerKept(c, p.Limit)
		for i := range c.Vertices {
			if cr.at(e.Handle, i) || arcAdjacent(c, i) {
				anchors[i] = true
			}
		}
		var moves []model.VertexMove
		for i, v := range c.Vertices {
			if anchors[i] {
				continue
			}
			prev, next, ok := enclosingAnchors(c, anchors, i)
			if !ok {
				continue
			}
			q, _ := geom.Seg(c.Vertices[prev].Point, c.Vertices[next].Point).ClosestPoint(v.Point)
			d := q.Distance(v.Point)
			if d <= p.Tol.EqualPoint || d > p.Limit {
				continue
			}
			moves = append(moves, model.VertexMove{Index: i, From: v.Point, To: q, Distance: d})
		}
		if len(moves) > 0 {
			r.add(model.VertexMovePayload{Moves: moves}, e.Handle)
		}
	}
	return r.outcome()
}

// douglasPeuckerKept marks the vertices a Douglas-Peucker simplification
// with the given threshold keeps. The ends of an open curve, and vertex 0
// of a closed one, are always kept.
func douglasPeuckerKept(c geom.Curve, threshold float64) []bool {
	ls := make(orb.LineString, 0, len(c.Vertices)+1)
	for _, v := range c.Vertices {
		ls = append(ls, v.Point.Orb())
	}
	if c.Closed {
		ls = append(ls, ls[0])
	}
	kept := make([]bool, len(c.Vertices))
	simplified, ok := simplify.DouglasPeucker(threshold).Simplify(ls.Clone()).(orb.LineString)
	if !ok {
		for i := range kept {
			kept[i] = true
		}
		return kept
	}
	k := 0
	for i := range c.Vertices {
		if k < len(simplified) && ls[i] == simplified[k] {
			kept[i] = true
			k++
		}
	}
	kept[0] = true
	if !c.Closed {
		kept[len(kept)-1] = true
	}
	return kept
}

func arcAdjacent(c geom.Curve, i int) bool {
	n := len(c.Vertices)
	if c.Vertices[i].Bulge != 0 && (c.Closed || i < n-1) {
		return true
	}
	prev := i - 1
	if prev < 0 {
		if !c.Closed {
			return false
		}
		prev = n - 1
	}
	return c.Vertices[prev].Bulge != 0
}

// enclosingAnchors finds the anchors either side of i, wrapping on closed
// curves.
func enclosingAnchors(c geom.Curve, anchors []bool, i int) (int, int, bool) {
	n := len(c.Vertices)
	step := func(j, d int) (int, bool) {
		for k := 1; k < n; k++ {
			m := j + d*k
			if c.Closed {
				m = ((m % n) + n) % n
			} else if m < 0 || m >= n {
				return 0, false
			}
			if anchors[m] {
				return m, true
			}
		}
		return 0, false
	}
	prev, ok1 := step(i, -1)
	next, ok2 := step(i, 1)
	return prev, next, ok1 && ok2 && prev != next
}

// MissingVertices reports curves passing through a vertex of another curve
// without having a vertex there themselves.
func MissingVertices(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.MissingVertexInPolygon, p)
	es := r.usable(entities)
	idx := newSegmentIndex(es, p.Tol.EqualPoint)

	inserts := make(map[int][]model.VertexInsert)
	for i, e := range es {
		if !r.step() {
			break
		}
		for _, v := range e.Geometry.Vertices {
			for _, j := range idx.near(v.Point, p.Tol.EqualPoint) {
				if j == i || vertexAt(es[j].Geometry, v.Point, p.Tol) >= 0 {
					continue
				}
				if hasInsert(inserts[j], v.Point, p.Tol) {
					continue
				}
				inserts[j] = append(inserts[j], model.VertexInsert{Point: v.Point, Source: e.Handle})
			}
		}
	}
	for j, e := range es {
		ins := inserts[j]
		if len(ins) == 0 {
			continue
		}
		sources := []model.EntityHandle{e.Handle}
		for _, in := range ins {
			sources = model.Selection(sources).Union([]model.EntityHandle{in.Source})
		}
		r.add(model.VertexInsertPayload{Inserts: ins}, sources...)
	}
	return r.outcome()
}

func hasInsert(ins []model.VertexInsert, p geom.Point, tol geom.Tolerance) bool {
	for _, in := range ins {
		if in.Point.Equal(p, tol) {
			return true
		}
	}
	return false
}
