package detect

import (
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/planar"
	"github.com/agenthands/topoclean/internal/core/spatial"
)

// Undershoots casts a ray of length Limit from every free end along the
// curve's end tangent and reports the nearest curve it hits. Ends already
// lying on another curve are not undershoots.
func Undershoots(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.ExtendUndershoots, p)
	es := r.usable(entities)
	g := planar.Build(es, p.Tol, planar.SegmentEdges)
	idx := newSegmentIndex(es, p.Tol.EqualPoint)
	byHandle := make(map[model.EntityHandle]int, len(es))
	for i, e := range es {
		byHandle[e.Handle] = i
	}

	for _, n := range g.FreeEnds() {
		if !r.step() {
			break
		}
		ref, end, ok := g.FreeEnd(n)
		if !ok {
			continue
		}
		src := byHandle[ref.Handle]
		c := es[src].Geometry
		from := c.EndPoint(end)
		if touchesOther(idx, src, from, p.Tol) {
			continue
		}
		hit, ok := castRay(idx, src, end, from, c.OutwardTangent(end), p)
		if !ok {
			continue
		}
		dir := model.Backward
		if end == geom.AtEnd {
			dir = model.Forward
		}
		r.add(model.UndershootPayload{
			Source:    ref.Handle,
			End:       end,
			From:      from,
			To:        hit.point,
			Target:    es[hit.entity].Handle,
			Direction: dir,
			Gap:       hit.dist,
		}, ref.Handle, es[hit.entity].Handle)
	}
	return r.outcome()
}

func touchesOther(idx *segmentIndex, self int, p geom.Point, tol geom.Tolerance) bool {
	for _, i := range idx.near(p, tol.EqualPoint) {
		if i != self {
			return true
		}
	}
	return false
}

type rayHit struct {
	entity int
	point  geom.Point
	dist   float64
}

// castRay intersects the ray from p along dir with every curve, the
// source included, and returns the nearest hit beyond the point tolerance.
func castRay(idx *segmentIndex, src int, end geom.CurveEnd, p, dir geom.Point, params Params) (rayHit, bool) {
	if dir.Length() == 0 {
		return rayHit{}, false
	}
	ray := geom.CurveSegment{A: p, B: p.Add(dir.Mul(params.Limit))}
	var best rayHit
	found := false
	b := spatial.Pad(ray.Bound(), params.Tol.EqualPoint)
	for _, ref := range idx.query(b) {
		seg := idx.segment(ref)
		pts, ovs := geom.IntersectCurveSegments(ray, seg, params.Tol)
		for _, o := range ovs {
			pts = append(pts, o.A, o.B)
		}
		for _, q := range pts {
			d := q.Distance(p)
			if d <= params.Tol.EqualPoint || d > params.Limit {
				continue
			}
			if ref.entity == src && sameEndSegment(idx.entities[src].Geometry, end, ref.seg) {
				continue
			}
			if !found || d < best.dist {
				best, found = rayHit{entity: ref.entity, point: q, dist: d}, true
			}
		}
	}
	return best, found
}

// sameEndSegment reports whether seg is the segment at the given end,
// which a straight ray can only touch at the end point itself.
func sameEndSegment(c geom.Curve, end geom.CurveEnd, seg int) bool {
	if end == geom.AtStart {
		return seg == 0
	}
	return seg == c.NumSegments()-1
}
