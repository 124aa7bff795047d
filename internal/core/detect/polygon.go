package detect

import (
	"math"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/spatial"
	clipper "github.com/ctessum/go.clipper"
	"github.com/paulmach/orb/planar"
)

// maxClipScale bounds the integer grid clipper works on.
const maxClipScale = 1e9

// clipGrid converts curves to clipper's integer paths.
type clipGrid struct {
	scale float64
}

func newClipGrid(tol geom.Tolerance) clipGrid {
	s := 1 / tol.EqualPoint
	if tol.EqualPoint <= 0 || s > maxClipScale {
		s = maxClipScale
	}
	return clipGrid{scale: s}
}

func (g clipGrid) path(c geom.Curve) clipper.Path {
	ring := geom.Ring(c)
	if len(ring) > 1 {
		ring = ring[:len(ring)-1]
	}
	path := make(clipper.Path, len(ring))
	for i, p := range ring {
		path[i] = &clipper.IntPoint{
			X: clipper.CInt(math.Round(p[0] * g.scale)),
			Y: clipper.CInt(math.Round(p[1] * g.scale)),
		}
	}
	return path
}

// intersectionArea is the area shared by the regions of a and b.
func (g clipGrid) intersectionArea(a, b geom.Curve) float64 {
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPath(g.path(a), clipper.PtSubject, true)
	c.AddPath(g.path(b), clipper.PtClip, true)
	sol, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)
	if !ok {
		return 0
	}
	var area float64
	for _, p := range sol {
		area += math.Abs(clipper.Area(p))
	}
	return area / (g.scale * g.scale)
}

// areaSlack absorbs the rounding of c onto the clip grid.
func areaSlack(c geom.Curve, tol geom.Tolerance) float64 {
	return (c.Length() + 1) * tol.EqualPoint
}

// polygonSet is the closed, non-degenerate part of a selection.
type polygonSet struct {
	es    []model.Entity
	areas []float64
	tree  *spatial.QuadTree[int]
	grid  clipGrid
}

func newPolygonSet(r *run, entities []model.Entity) *polygonSet {
	es := closedOnly(r.usable(entities))
	s := &polygonSet{grid: newClipGrid(r.p.Tol)}
	for _, e := range es {
		if len(e.Geometry.Vertices) < 3 {
			continue
		}
		s.es = append(s.es, e)
		s.areas = append(s.areas, geom.Area(e.Geometry))
	}
	s.tree = entityIndex(s.es, r.p.Tol.EqualPoint)
	return s
}

// neighbours returns every polygon whose box comes within pad of polygon
// i's, ascending.
func (s *polygonSet) neighbours(i int, pad float64) []int {
	return candidates(s.tree, -1, spatial.Pad(s.es[i].Geometry.Bound(), pad))
}

// containedIn reports whether polygon a lies inside polygon b and is
// strictly smaller.
func (s *polygonSet) containedIn(a, b int, tol geom.Tolerance) bool {
	inner, outer := s.es[a].Geometry, s.es[b].Geometry
	slack := areaSlack(inner, tol) + areaSlack(outer, tol)
	if s.areas[a] >= s.areas[b]-slack {
		return false
	}
	for _, v := range inner.Vertices {
		if !geom.ContainsPoint(outer, v.Point, tol) {
			return false
		}
	}
	return math.Abs(s.grid.intersectionArea(inner, outer)-s.areas[a]) <= slack
}

// PolygonHoles reports polygons lying inside another polygon, each paired
// with the smallest polygon containing it.
func PolygonHoles(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.PolygonHole, p)
	s := newPolygonSet(r, entities)
	for i, e := range s.es {
		if !r.step() {
			break
		}
		parent := -1
		for _, j := range s.neighbours(i, 0) {
			if j == i || !s.containedIn(i, j, p.Tol) {
				continue
			}
			if parent < 0 || s.areas[j] < s.areas[parent] {
				parent = j
			}
		}
		if parent < 0 {
			continue
		}
		r.add(model.PolygonPairPayload{Relation: "inside", Area: s.areas[i]}, e.Handle, s.es[parent].Handle)
	}
	return r.outcome()
}

// Overlaps reports polygon pairs sharing more than Limit of area, unless
// one simply contains the other.
func Overlaps(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.OverlapPolygon, p)
	s := newPolygonSet(r, entities)
	for i, e := range s.es {
		if !r.step() {
			break
		}
		for _, j := range s.neighbours(i, 0) {
			if j <= i {
				continue
			}
			a := s.grid.intersectionArea(e.Geometry, s.es[j].Geometry)
			if a <= p.Limit {
				continue
			}
			slack := areaSlack(e.Geometry, p.Tol) + areaSlack(s.es[j].Geometry, p.Tol)
			if a >= min(s.areas[i], s.areas[j])-slack {
				continue
			}
			r.add(model.PolygonPairPayload{Relation: "overlap", Area: a}, e.Handle, s.es[j].Handle)
		}
	}
	return r.outcome()
}

// Islands reports polygons whose boundary meets no other polygon.
// Containment alone does not count as meeting.
func Islands(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.FindIslandPolygon, p)
	s := newPolygonSet(r, entities)
	idx := newSegmentIndex(s.es, p.Tol.EqualPoint)
	for i, e := range s.es {
		if !r.step() {
			break
		}
		if !touchesAny(idx, i, p.Tol) {
			r.add(model.PolygonPairPayload{Relation: "island", Area: s.areas[i]}, e.Handle)
		}
	}
	return r.outcome()
}

func touchesAny(idx *segmentIndex, i int, tol geom.Tolerance) bool {
	for _, s := range idx.entities[i].Geometry.Segments() {
		for _, ref := range idx.query(spatial.Pad(s.Bound(), tol.EqualPoint)) {
			if ref.entity == i {
				continue
			}
			pts, ovs := geom.IntersectCurveSegments(s, idx.segment(ref), tol)
			if len(pts) > 0 || len(ovs) > 0 {
				return true
			}
		}
	}
	return false
}

// SmallPolygonGaps reports polygon vertices lying outside a neighbouring
// polygon but within Limit of its boundary. Each pair is reported once,
// in the direction that has such vertices.
func SmallPolygonGaps(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.SmallPolygonGap, p)
	s := newPolygonSet(r, entities)
	for i := range s.es {
		if !r.step() {
			break
		}
		for _, j := range s.neighbours(i, p.Limit) {
			if j <= i {
				continue
			}
			src, dst := i, j
			moves := gapMoves(s.es[src].Geometry, s.es[dst].Geometry, p)
			if len(moves) == 0 {
				src, dst = j, i
				moves = gapMoves(s.es[src].Geometry, s.es[dst].Geometry, p)
			}
			if len(moves) == 0 {
				continue
			}
			r.add(model.VertexMovePayload{Moves: moves, Target: s.es[dst].Handle}, s.es[src].Handle, s.es[dst].Handle)
		}
	}
	return r.outcome()
}

func gapMoves(src, dst geom.Curve, p Params) []model.VertexMove {
	ring := geom.Ring(dst)
	var moves []model.VertexMove
	for i, v := range src.Vertices {
		at, d := dst.Locate(v.Point)
		if d <= p.Tol.EqualPoint || d > p.Limit {
			continue
		}
		if planar.RingContains(ring, v.Point.Orb()) {
			continue
		}
		moves = append(moves, model.VertexMove{Index: i, From: v.Point, To: dst.PointAt(at), Distance: d})
	}
	return moves
}

// SharpCorners reports convex vertices of closed curves whose interior
// angle is below Limit degrees. A reflex vertex turns against the ring's
// winding and its interior angle exceeds 180 degrees, so it is never sharp.
func SharpCorners(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.SharpCornerPolygon, p)
	limit := geom.Radians(p.Limit)
	for _, e := range closedOnly(r.usable(entities)) {
		if !r.step() {
			break
		}
		c := e.Geometry
		n := len(c.Vertices)
		if n < 3 {
			continue
		}
		winding := geom.SignedArea(c)
		var corners []model.Corner
		for i, v := range c.Vertices {
			prev := c.Vertices[(i+n-1)%n].Point
			next := c.Vertices[(i+1)%n].Point
			if turn := v.Point.Sub(prev).Cross(next.Sub(v.Point)); turn*winding < 0 {
				continue
			}
			if a := geom.AngleAt(prev, v.Point, next); a < limit {
				corners = append(corners, model.Corner{Index: i, Point: v.Point, Degrees: geom.Degrees(a)})
			}
		}
		if len(corners) > 0 {
			r.add(model.CornerPayload{Corners: corners}, e.Handle)
		}
	}
	return r.outcome()
}
