package detect

import (
	"math"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
)

// ZeroLength reports curves no longer than the point tolerance, including
// single-vertex curves the other detectors skip.
func ZeroLength(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.ZeroLength, p)
	for _, e := range entities {
		if !r.step() {
			break
		}
		c := e.Geometry
		if c.Kind == geom.KindAnnotation {
			continue
		}
		if len(c.Vertices) == 0 {
			r.skip(e.Handle, "no vertices")
			continue
		}
		if l := c.Length(); l <= p.Tol.EqualPoint {
			r.add(model.MeasurePayload{Measure: "length", Value: l, Limit: p.Tol.EqualPoint, At: c.Start()}, e.Handle)
		}
	}
	return r.outcome()
}

// ShortCurves reports curves longer than the point tolerance but shorter
// than Limit.
func ShortCurves(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.EraseShort, p)
	for _, e := range r.usable(entities) {
		if !r.step() {
			break
		}
		c := e.Geometry
		if l := c.Length(); l > p.Tol.EqualPoint && l < p.Limit {
			r.add(model.MeasurePayload{Measure: "length", Value: l, Limit: p.Limit, At: c.Start()}, e.Handle)
		}
	}
	return r.outcome()
}

// Unclosed reports open curves of three or more vertices whose ends are
// within Limit of each other. Ends that already coincide are reported too:
// the curve still lacks its closed flag.
func Unclosed(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.UnclosedPolygon, p)
	for _, e := range r.usable(entities) {
		if !r.step() {
			break
		}
		c := e.Geometry
		if c.Closed || len(c.Vertices) < 3 {
			continue
		}
		gap := c.Start().Distance(c.End())
		if gap > p.Limit {
			continue
		}
		if gap <= p.Tol.EqualPoint && len(c.Vertices) < 4 {
			continue
		}
		r.add(model.MeasurePayload{Measure: "gap", Value: gap, Limit: p.Limit, At: c.End()}, e.Handle)
	}
	return r.outcome()
}

// zeroArea is the largest area a ring can enclose while every point of it
// stays within EqualPoint of a line folded back on itself: a band of
// that width along half the perimeter.
func zeroArea(c geom.Curve, tol geom.Tolerance) float64 {
	return tol.EqualPoint * c.Length() / 2
}

// ZeroAreaLoops reports closed curves enclosing no area.
func ZeroAreaLoops(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.ZeroAreaLoop, p)
	for _, e := range closedOnly(r.usable(entities)) {
		if !r.step() {
			break
		}
		floor := zeroArea(e.Geometry, p.Tol)
		if a := geom.Area(e.Geometry); a <= floor {
			r.add(model.MeasurePayload{Measure: "area", Value: a, Limit: floor, At: centroid(e.Geometry)}, e.Handle)
		}
	}
	return r.outcome()
}

// SmallPolygons reports closed curves with a real but sub-Limit area.
func SmallPolygons(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.SmallPolygon, p)
	for _, e := range closedOnly(r.usable(entities)) {
		if !r.step() {
			break
		}
		if a := geom.Area(e.Geometry); a > zeroArea(e.Geometry, p.Tol) && a < p.Limit {
			r.add(model.MeasurePayload{Measure: "area", Value: a, Limit: p.Limit, At: centroid(e.Geometry)}, e.Handle)
		}
	}
	return r.outcome()
}

// AntiClockwise reports closed curves wound counter-clockwise. Valid
// parcels run clockwise.
func AntiClockwise(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.AntiClockwisePolygon, p)
	for _, e := range closedOnly(r.usable(entities)) {
		if !r.step() {
			break
		}
		if a := geom.SignedArea(e.Geometry); a > p.Tol.EqualPoint {
			r.add(model.MeasurePayload{Measure: "signed area", Value: a, Limit: 0, At: centroid(e.Geometry)}, e.Handle)
		}
	}
	return r.outcome()
}

// Elevated reports curves lying off the z = 0 plane.
func Elevated(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.NonZeroElevation, p)
	for _, e := range r.usable(entities) {
		if !r.step() {
			break
		}
		if z := e.Geometry.Elevation; math.Abs(z) > p.Tol.EqualPoint {
			r.add(model.MeasurePayload{Measure: "elevation", Value: z, Limit: 0, At: e.Geometry.Start()}, e.Handle)
		}
	}
	return r.outcome()
}

// Arcs reports curved segments. Arc and circle entities are reported as a
// whole.
func Arcs(p Params, entities []model.Entity) model.CheckOutcome {
	r := newRun(model.ArcSegment, p)
	for _, e := range r.usable(entities) {
		if !r.step() {
			break
		}
		c := e.Geometry
		var segs []int
		for _, s := range c.Segments() {
			if s.Bulge != 0 {
				segs = append(segs, s.Index)
			}
		}
		whole := c.Kind == geom.KindArc || c.Kind == geom.KindCircle
		if len(segs) == 0 && !whole {
			continue
		}
		r.add(model.ArcPayload{Segments: segs, Entity: whole}, e.Handle)
	}
	return r.outcome()
}
