package detect

import (
	"sort"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
)

// pairHits collects the intersections between two entities.
type pairHits struct {
	points   []geom.Point
	overlaps []geom.Segment
}

// Crossings reports every pair of curves that cross, touch away from a
// shared end, or run along each other, plus every curve that crosses
// itself. Points where both curves end are joints, not crossings.
func Crossings(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.BreakCrossing, p)
	es := r.usable(entities)
	idx := newSegmentIndex(es, p.Tol.EqualPoint)

	for i := range es {
		if !r.step() {
			break
		}
		hits := make(map[int]*pairHits)
		var order []int
		for _, s := range es[i].Geometry.Segments() {
			for _, ref := range idx.query(s.Bound()) {
				if ref.entity <= i {
					continue
				}
				pts, ovs := geom.IntersectCurveSegments(s, idx.segment(ref), p.Tol)
				if len(pts) == 0 && len(ovs) == 0 {
					continue
				}
				h, ok := hits[ref.entity]
				if !ok {
					h = &pairHits{}
					hits[ref.entity] = h
					order = append(order, ref.entity)
				}
				h.points = append(h.points, pts...)
				h.overlaps = append(h.overlaps, ovs...)
			}
		}
		sort.Ints(order)
		for _, j := range order {
			a, b := es[i].Geometry, es[j].Geometry
			payload := crossingPayload(a, b, hits[j], p.Tol)
			if len(payload.Points) == 0 && len(payload.Overlaps) == 0 {
				continue
			}
			r.add(payload, es[i].Handle, es[j].Handle)
		}
		if payload, ok := selfCrossing(es[i].Geometry, p.Tol); ok {
			r.add(payload, es[i].Handle)
		}
	}
	return r.outcome()
}

// SelfIntersections reports only curves that cross or fold back on
// themselves.
func SelfIntersections(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.SelfIntersect, p)
	for _, e := range r.usable(entities) {
		if !r.step() {
			break
		}
		if payload, ok := selfCrossing(e.Geometry, p.Tol); ok {
			r.add(payload, e.Handle)
		}
	}
	return r.outcome()
}

func crossingPayload(a, b geom.Curve, h *pairHits, tol geom.Tolerance) model.CrossingPayload {
	var out model.CrossingPayload
	for _, o := range h.overlaps {
		if jointEnd(a, b, o.A, tol) && jointEnd(a, b, o.B, tol) {
			continue
		}
		out.Overlaps = appendOverlap(out.Overlaps, o, tol)
	}
	for _, pt := range h.points {
		if jointEnd(a, b, pt, tol) || onAny(out.Overlaps, pt, tol) {
			continue
		}
		out.Points = appendUnique(out.Points, pt, tol)
	}
	return out
}

// jointEnd reports whether p is an end of both curves.
func jointEnd(a, b geom.Curve, p geom.Point, tol geom.Tolerance) bool {
	return isEnd(a, p, tol) && isEnd(b, p, tol)
}

func appendOverlap(ovs []geom.Segment, o geom.Segment, tol geom.Tolerance) []geom.Segment {
	for _, x := range ovs {
		same := x.A.Equal(o.A, tol) && x.B.Equal(o.B, tol)
		flipped := x.A.Equal(o.B, tol) && x.B.Equal(o.A, tol)
		if same || flipped {
			return ovs
		}
	}
	return append(ovs, o)
}

func onAny(ovs []geom.Segment, p geom.Point, tol geom.Tolerance) bool {
	for _, o := range ovs {
		if o.DistanceTo(p) <= tol.EqualPoint {
			return true
		}
	}
	return false
}

// selfCrossing intersects the segments of c with each other. Neighbouring
// segments meet at their shared vertex by construction, so only a fold
// back along each other counts for them.
func selfCrossing(c geom.Curve, tol geom.Tolerance) (model.CrossingPayload, bool) {
	segs := c.Segments()
	n := len(segs)
	var h pairHits
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			adjacent := j == i+1 || (c.Closed && i == 0 && j == n-1)
			if !segs[i].Bound().Intersects(segs[j].Bound()) && !adjacent {
				continue
			}
			pts, ovs := geom.IntersectCurveSegments(segs[i], segs[j], tol)
			h.overlaps = append(h.overlaps, ovs...)
			if adjacent {
				continue
			}
			for _, pt := range pts {
				// An open curve whose ends meet is unclosed, not crossing.
				if !c.Closed && j == n-1 && i == 0 && pt.Equal(c.Start(), tol) && pt.Equal(c.End(), tol) {
					continue
				}
				h.points = append(h.points, pt)
			}
		}
	}
	var out model.CrossingPayload
	out.Self = true
	for _, o := range h.overlaps {
		out.Overlaps = appendOverlap(out.Overlaps, o, tol)
	}
	for _, pt := range h.points {
		if onAny(out.Overlaps, pt, tol) {
			continue
		}
		out.Points = appendUnique(out.Points, pt, tol)
	}
	return out, len(out.Points) > 0 || len(out.Overlaps) > 0
}

// IntersectingPolygons reports pairs of closed curves whose boundaries
// cross away from their vertices. Shared edges and touching corners are
// not crossings.
func IntersectingPolygons(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.IntersectPolygon, p)
	es := closedOnly(r.usable(entities))
	tree := entityIndex(es, p.Tol.EqualPoint)

	for i := range es {
		if !r.step() {
			break
		}
		a := es[i].Geometry
		for _, j := range candidates(tree, i, a.Bound()) {
			b := es[j].Geometry
			var pts []geom.Point
			for _, sa := range a.Segments() {
				for _, sb := range b.Segments() {
					if !sa.Bound().Intersects(sb.Bound()) {
						continue
					}
					hits, _ := geom.IntersectCurveSegments(sa, sb, p.Tol)
					for _, pt := range hits {
						if vertexAt(a, pt, p.Tol) >= 0 || vertexAt(b, pt, p.Tol) >= 0 {
							continue
						}
						pts = appendUnique(pts, pt, p.Tol)
					}
				}
			}
			if len(pts) > 0 {
				r.add(model.PolygonPairPayload{Relation: "boundaries cross", Points: pts}, es[i].Handle, es[j].Handle)
			}
		}
	}
	return r.outcome()
}
