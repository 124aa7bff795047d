package geom

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// arcSamples is the number of chords used when an arc must be flattened
// for ring tests.
const arcSamples = 16

// SignedArea is the shoelace area of c treated as a closed ring, including
// the circular segment each arc adds or removes. Positive means
// counter-clockwise.
func SignedArea(c Curve) float64 {
	n := len(c.Vertices)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p, q := c.Vertices[i].Point, c.Vertices[(i+1)%n].Point
		sum += p.Cross(q)
	}
	area := sum / 2
	for _, s := range c.Segments() {
		a, ok := s.Arc()
		if !ok {
			continue
		}
		theta := math.Abs(a.Sweep)
		seg := a.Radius * a.Radius / 2 * (theta - math.Sin(theta))
		if a.Sweep > 0 {
			area += seg
		} else {
			area -= seg
		}
	}
	return area
}

func Area(c Curve) float64 {
	return math.Abs(SignedArea(c))
}

// IsClockwise reports negative signed area.
func IsClockwise(c Curve) bool {
	return SignedArea(c) < 0
}

// Ring flattens c into a closed orb ring.
func Ring(c Curve) orb.Ring {
	pts := c.Flatten(arcSamples)
	if !c.Closed && len(pts) > 1 && pts[len(pts)-1] == pts[0] {
		pts = pts[:len(pts)-1]
	}
	r := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		r = append(r, p.Orb())
	}
	if len(r) > 0 {
		r = append(r, r[0])
	}
	return r
}

// ContainsPoint reports whether p lies inside the region bounded by c.
// Points on the boundary count as inside.
func ContainsPoint(c Curve, p Point, tol Tolerance) bool {
	for _, s := range c.Segments() {
		if _, _, d := s.ClosestPoint(p); d <= tol.EqualPoint {
			return true
		}
	}
	return planar.RingContains(Ring(c), p.Orb())
}

// OnBoundary reports whether p lies on c within the point tolerance.
func OnBoundary(c Curve, p Point, tol Tolerance) bool {
	_, d := c.Locate(p)
	return d <= tol.EqualPoint
}

// AngleAt is the interior angle at curr between the legs to prev and
// next, in [0, π]. A zero-length leg counts as straight.
func AngleAt(prev, curr, next Point) float64 {
	a, b := prev.Sub(curr), next.Sub(curr)
	la, lb := a.Length(), b.Length()
	if la == 0 || lb == 0 {
		return math.Pi
	}
	cos := a.Dot(b) / (la * lb)
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return s1.Angle(rad).Degrees()
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return (s1.Angle(deg) * s1.Degree).Radians()
}
