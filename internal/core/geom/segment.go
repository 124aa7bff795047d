package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Segment is a straight piece between two points.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

func Seg(a, b Point) Segment {
	return Segment{A: a, B: b}
}

func (s Segment) Vector() Point {
	return s.B.Sub(s.A)
}

func (s Segment) Length() float64 {
	return s.A.Distance(s.B)
}

func (s Segment) Midpoint() Point {
	return s.A.Lerp(s.B, 0.5)
}

func (s Segment) PointAt(t float64) Point {
	return s.A.Lerp(s.B, t)
}

func (s Segment) Bound() orb.Bound {
	return orb.Bound{Min: s.A.Orb(), Max: s.A.Orb()}.Extend(s.B.Orb())
}

func (s Segment) IsDegenerate(tol Tolerance) bool {
	return s.Length() <= tol.EqualPoint
}

// Param returns the unclamped projection parameter of p onto the
// supporting line of s.
func (s Segment) Param(p Point) float64 {
	d := s.Vector()
	l2 := d.LengthSquared()
	if l2 == 0 {
		return 0
	}
	return p.Sub(s.A).Dot(d) / l2
}

// ClosestPoint returns the point of s nearest to p and its parameter in [0, 1].
func (s Segment) ClosestPoint(p Point) (Point, float64) {
	t := clamp01(s.Param(p))
	return s.PointAt(t), t
}

func (s Segment) DistanceTo(p Point) float64 {
	q, _ := s.ClosestPoint(p)
	return q.Distance(p)
}

// LineDistance is the perpendicular distance from p to the infinite line
// through s.
func (s Segment) LineDistance(p Point) float64 {
	d := s.Vector()
	l := d.Length()
	if l == 0 {
		return p.Distance(s.A)
	}
	return math.Abs(d.Cross(p.Sub(s.A))) / l
}

// IntersectionKind classifies the result of a pairwise intersection.
type IntersectionKind int

const (
	NoIntersection IntersectionKind = iota
	PointIntersection
	OverlapIntersection
)

func (k IntersectionKind) String() string {
	switch k {
	case PointIntersection:
		return "point"
	case OverlapIntersection:
		return "overlap"
	default:
		return "none"
	}
}

// Intersection is the outcome of IntersectSegments.
type Intersection struct {
	Kind    IntersectionKind
	Point   Point
	Overlap Segment
}

// IntersectSegments intersects two segments. Collinear segments sharing more
// than a point yield their common sub-segment, oriented along s1.
func IntersectSegments(s1, s2 Segment, tol Tolerance) Intersection {
	d1, d2 := s1.Vector(), s2.Vector()
	l1, l2 := d1.Length(), d2.Length()
	eps := tol.EqualPoint

	if l1 <= eps || l2 <= eps {
		return intersectDegenerate(s1, s2, l1 <= eps, l2 <= eps, tol)
	}

	if tol.Parallel(d1, d2) {
		if s1.LineDistance(s2.A) > eps || s1.LineDistance(s2.B) > eps {
			return Intersection{}
		}
		t0, t1 := s1.Param(s2.A), s1.Param(s2.B)
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		lo, hi := math.Max(0, t0), math.Min(1, t1)
		if (hi-lo)*l1 < -eps {
			return Intersection{}
		}
		if (hi-lo)*l1 <= eps {
			return Intersection{Kind: PointIntersection, Point: s1.PointAt(clamp01((lo + hi) / 2))}
		}
		return Intersection{Kind: OverlapIntersection, Overlap: Seg(s1.PointAt(lo), s1.PointAt(hi))}
	}

	denom := d1.Cross(d2)
	w := s2.A.Sub(s1.A)
	t := w.Cross(d2) / denom
	u := w.Cross(d1) / denom
	e1, e2 := eps/l1, eps/l2
	if t >= -e1 && t <= 1+e1 && u >= -e2 && u <= 1+e2 {
		return Intersection{Kind: PointIntersection, Point: s1.PointAt(clamp01(t))}
	}

	// Near-miss at a shallow angle: an endpoint within tolerance of the
	// other segment still counts as a touch.
	for _, c := range []struct {
		p   Point
		seg Segment
	}{{s1.A, s2}, {s1.B, s2}, {s2.A, s1}, {s2.B, s1}} {
		if c.seg.DistanceTo(c.p) <= eps {
			return Intersection{Kind: PointIntersection, Point: c.p}
		}
	}
	return Intersection{}
}

func intersectDegenerate(s1, s2 Segment, deg1, deg2 bool, tol Tolerance) Intersection {
	switch {
	case deg1 && deg2:
		if s1.A.Equal(s2.A, tol) {
			return Intersection{Kind: PointIntersection, Point: s1.A}
		}
	case deg1:
		if s2.DistanceTo(s1.A) <= tol.EqualPoint {
			return Intersection{Kind: PointIntersection, Point: s1.A}
		}
	default:
		if s1.DistanceTo(s2.A) <= tol.EqualPoint {
			return Intersection{Kind: PointIntersection, Point: s2.A}
		}
	}
	return Intersection{}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
