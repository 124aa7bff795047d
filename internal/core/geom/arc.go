package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Arc is a circular arc. Sweep is signed: positive runs counter-clockwise
// from StartAngle.
type Arc struct {
	Center     Point   `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	Sweep      float64 `json:"sweep"`
}

// BulgeSweep converts a bulge factor (tan of a quarter of the included
// angle) into the signed included angle.
func BulgeSweep(bulge float64) float64 {
	return 4 * math.Atan(bulge)
}

// SweepBulge is the inverse of BulgeSweep.
func SweepBulge(sweep float64) float64 {
	return math.Tan(sweep / 4)
}

// ArcFromBulge builds the arc running from p1 to p2 with the given bulge.
// It reports false when the chord is empty or the bulge is zero.
func ArcFromBulge(p1, p2 Point, bulge float64) (Arc, bool) {
	chord := p2.Sub(p1)
	c := chord.Length()
	if c == 0 || bulge == 0 {
		return Arc{}, false
	}
	offset := (1 - bulge*bulge) / (2 * bulge) * (c / 2)
	center := p1.Lerp(p2, 0.5).Add(chord.Normalize().Perp().Mul(offset))
	return Arc{
		Center:     center,
		Radius:     c * (1 + bulge*bulge) / (4 * math.Abs(bulge)),
		StartAngle: p1.Sub(center).Angle(),
		Sweep:      BulgeSweep(bulge),
	}, true
}

func (a Arc) EndAngle() float64 {
	return a.StartAngle + a.Sweep
}

func (a Arc) PointAtAngle(theta float64) Point {
	return a.Center.Add(Pt(math.Cos(theta), math.Sin(theta)).Mul(a.Radius))
}

// PointAt evaluates the arc at parameter t in [0, 1].
func (a Arc) PointAt(t float64) Point {
	return a.PointAtAngle(a.StartAngle + t*a.Sweep)
}

func (a Arc) Start() Point { return a.PointAt(0) }
func (a Arc) End() Point   { return a.PointAt(1) }

func (a Arc) Length() float64 {
	return a.Radius * math.Abs(a.Sweep)
}

// Tangent returns the unit direction of travel at parameter t.
func (a Arc) Tangent(t float64) Point {
	theta := a.StartAngle + t*a.Sweep
	d := Pt(-math.Sin(theta), math.Cos(theta))
	if a.Sweep < 0 {
		return d.Mul(-1)
	}
	return d
}

// ParamOf returns the parameter of the point on the arc's circle at angle
// theta. Values outside [0, 1] lie off the arc.
func (a Arc) ParamOf(theta float64) float64 {
	if a.Sweep == 0 {
		return 0
	}
	var d float64
	if a.Sweep > 0 {
		d = NormalizeAngle(theta - a.StartAngle)
	} else {
		d = NormalizeAngle(a.StartAngle - theta)
	}
	t := d / math.Abs(a.Sweep)
	// Angles just before the start wrap to nearly 2π; fold them back.
	if t > 1 && (2*math.Pi-d)/math.Abs(a.Sweep) < t-1 {
		t = -(2*math.Pi - d) / math.Abs(a.Sweep)
	}
	return t
}

// ContainsPoint reports whether p is on the arc within tolerance.
func (a Arc) ContainsPoint(p Point, tol Tolerance) bool {
	if math.Abs(p.Distance(a.Center)-a.Radius) > tol.EqualPoint {
		return false
	}
	return a.onSweep(p.Sub(a.Center).Angle(), tol)
}

func (a Arc) onSweep(theta float64, tol Tolerance) bool {
	t := a.ParamOf(theta)
	e := tol.EqualPoint / math.Max(a.Length(), tol.EqualPoint)
	return t >= -e && t <= 1+e
}

// ClosestPoint returns the nearest point on the arc to p with its parameter.
func (a Arc) ClosestPoint(p Point) (Point, float64) {
	if p.Distance(a.Center) > 0 {
		t := a.ParamOf(p.Sub(a.Center).Angle())
		if t >= 0 && t <= 1 {
			return a.PointAt(t), t
		}
	}
	s, e := a.Start(), a.End()
	if p.Distance(s) <= p.Distance(e) {
		return s, 0
	}
	return e, 1
}

// Bound covers the endpoints and every axis extreme the sweep passes.
func (a Arc) Bound() orb.Bound {
	b := orb.Bound{Min: a.Start().Orb(), Max: a.Start().Orb()}.Extend(a.End().Orb())
	for k := 0; k < 4; k++ {
		theta := float64(k) * math.Pi / 2
		t := a.ParamOf(theta)
		if t > 0 && t < 1 {
			b = b.Extend(a.PointAtAngle(theta).Orb())
		}
	}
	return b
}

// Sub returns the portion of the arc between parameters t0 and t1.
func (a Arc) Sub(t0, t1 float64) Arc {
	return Arc{
		Center:     a.Center,
		Radius:     a.Radius,
		StartAngle: a.StartAngle + t0*a.Sweep,
		Sweep:      (t1 - t0) * a.Sweep,
	}
}

// IntersectArcSegment returns the points where s crosses a. Tangent
// contact yields nothing: the line is tangent when the chord it cuts from
// the circle is no longer than EqualPoint.
func IntersectArcSegment(a Arc, s Segment, tol Tolerance) []Point {
	d := s.Vector()
	if d.LengthSquared() == 0 {
		if a.ContainsPoint(s.A, tol) {
			return []Point{s.A}
		}
		return nil
	}
	f := s.A.Sub(a.Center)
	qa := d.Dot(d)
	qb := 2 * f.Dot(d)
	qc := f.Dot(f) - a.Radius*a.Radius
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	if sq/math.Sqrt(qa) <= tol.EqualPoint {
		return nil
	}
	e := tol.EqualPoint / math.Sqrt(qa)
	var out []Point
	for _, t := range []float64{(-qb - sq) / (2 * qa), (-qb + sq) / (2 * qa)} {
		if t < -e || t > 1+e {
			continue
		}
		p := s.PointAt(clamp01(t))
		if !a.onSweep(p.Sub(a.Center).Angle(), tol) {
			continue
		}
		if len(out) == 1 && out[0].Equal(p, tol) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IntersectArcs returns the crossing points of two arcs. Concentric and
// tangent arcs yield nothing; circles are tangent when their common chord
// is no longer than EqualPoint.
func IntersectArcs(a1, a2 Arc, tol Tolerance) []Point {
	eps := tol.EqualPoint
	v := a2.Center.Sub(a1.Center)
	d := v.Length()
	if d <= eps {
		return nil
	}
	r1, r2 := a1.Radius, a2.Radius
	if d > r1+r2+eps || d < math.Abs(r1-r2)-eps {
		return nil
	}
	along := (r1*r1 - r2*r2 + d*d) / (2 * d)
	// r1²-along² loses every digit on large radii; factor it instead.
	h := math.Sqrt(math.Max(0, (r1+along)*(r1+r2-d)*(d+r2-r1)/(2*d)))
	if 2*h <= eps {
		return nil
	}
	u := v.Mul(1 / d)
	base := a1.Center.Add(u.Mul(along))
	var out []Point
	for _, p := range []Point{base.Add(u.Perp().Mul(h)), base.Sub(u.Perp().Mul(h))} {
		if !a1.onSweep(p.Sub(a1.Center).Angle(), tol) || !a2.onSweep(p.Sub(a2.Center).Angle(), tol) {
			continue
		}
		if len(out) == 1 && out[0].Equal(p, tol) {
			continue
		}
		out = append(out, p)
	}
	return out
}
