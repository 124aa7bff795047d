package detect

import (
	"github.com/agenthands/topoclean/internal/core/community"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/spatial"
)

type endpoint struct {
	entity int
	end    geom.CurveEnd
	point  geom.Point
}

// Clusters groups open-curve ends lying within Limit of each other and
// reports every group whose ends do not already coincide. Groups spread
// wider than twice Limit are split into denser communities first, so a
// long chain of near ends is not collapsed onto one point.
func Clusters(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.SnapClustered, p)
	es := r.usable(entities)

	var ends []endpoint
	var pts []geom.Point
	for i, e := range es {
		c := e.Geometry
		if c.Closed || c.Length() <= p.Tol.EqualPoint {
			continue
		}
		for _, end := range []geom.CurveEnd{geom.AtStart, geom.AtEnd} {
			ends = append(ends, endpoint{entity: i, end: end, point: c.EndPoint(end)})
			pts = append(pts, c.EndPoint(end))
		}
	}
	tree := spatial.NewKDTree[int](pts, nil)

	var links []community.Link
	for i, ep := range ends {
		if !r.step() {
			return r.outcome()
		}
		for _, it := range tree.WithinRadius(ep.point, p.Limit) {
			if it.ID <= i || ends[it.ID].entity == ep.entity {
				continue
			}
			links = append(links, community.Link{A: i, B: it.ID})
		}
	}

	components := community.NewComponentDetector().Detect(len(ends), links)
	lpa := community.NewLabelPropagationDetector()
	for _, members := range components {
		groups := [][]int{members}
		if spread(ends, members) > 2*p.Limit {
			groups = lpa.Detect(len(ends), within(links, members))
		}
		for _, g := range groups {
			if payload, ok := clusterPayload(es, ends, g, p.Tol); ok {
				handles := make([]model.EntityHandle, len(payload.Members))
				for k, m := range payload.Members {
					handles[k] = m.Handle
				}
				r.add(payload, handles...)
			}
		}
	}
	return r.outcome()
}

// spread is the diagonal of the members' bounding box.
func spread(ends []endpoint, members []int) float64 {
	lo, hi := ends[members[0]].point, ends[members[0]].point
	for _, m := range members[1:] {
		q := ends[m].point
		lo = geom.Pt(min(lo.X, q.X), min(lo.Y, q.Y))
		hi = geom.Pt(max(hi.X, q.X), max(hi.Y, q.Y))
	}
	return lo.Distance(hi)
}

func within(links []community.Link, members []int) []community.Link {
	in := make(map[int]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	var out []community.Link
	for _, l := range links {
		if in[l.A] && in[l.B] {
			out = append(out, l)
		}
	}
	return out
}

// clusterPayload picks the representative, the position shared by the
// most ends with ties going to the first, and for each entity the end
// nearer to it.
func clusterPayload(es []model.Entity, ends []endpoint, members []int, tol geom.Tolerance) (model.ClusterPayload, bool) {
	rep, best := ends[members[0]].point, 0
	for _, m := range members {
		count := 0
		for _, o := range members {
			if ends[o].point.Equal(ends[m].point, tol) {
				count++
			}
		}
		if count > best {
			rep, best = ends[m].point, count
		}
	}

	chosen := make(map[int]int)
	var order []int
	for _, m := range members {
		ep := ends[m]
		prev, seen := chosen[ep.entity]
		if !seen {
			chosen[ep.entity] = m
			order = append(order, ep.entity)
			continue
		}
		if ep.point.Distance(rep) < ends[prev].point.Distance(rep) {
			chosen[ep.entity] = m
		}
	}
	if len(order) < 2 {
		return model.ClusterPayload{}, false
	}

	payload := model.ClusterPayload{Representative: rep}
	off := false
	for _, ent := range order {
		ep := ends[chosen[ent]]
		payload.Members = append(payload.Members, model.ClusterMember{Handle: es[ent].Handle, End: ep.end, Point: ep.point})
		if !ep.point.Equal(rep, tol) {
			off = true
		}
	}
	return payload, off
}
