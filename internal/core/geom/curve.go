package geom

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// ErrDegenerate is returned when an operation would leave a curve with
// fewer than two distinct vertices.
var ErrDegenerate = errors.New("degenerate geometry")

// Kind is the drawing entity type a curve was read from.
type Kind string

const (
	KindLine       Kind = "line"
	KindPolyline   Kind = "polyline"
	KindArc        Kind = "arc"
	KindCircle     Kind = "circle"
	KindAnnotation Kind = "annotation"
)

// Vertex is a polyline vertex. Bulge describes the segment that starts at
// this vertex: zero for straight, tan(θ/4) for an arc, positive when the
// arc turns counter-clockwise.
type Vertex struct {
	Point `yaml:",inline"`
	Bulge float64 `json:"bulge,omitempty" yaml:"bulge,omitempty"`
}

func V(x, y float64) Vertex {
	return Vertex{Point: Pt(x, y)}
}

func VB(x, y, bulge float64) Vertex {
	return Vertex{Point: Pt(x, y), Bulge: bulge}
}

// Curve is the geometry of one drawing entity: an open or closed chain of
// straight and arc segments.
type Curve struct {
	Kind      Kind     `json:"kind" yaml:"kind"`
	Vertices  []Vertex `json:"vertices" yaml:"vertices"`
	Closed    bool     `json:"closed,omitempty" yaml:"closed,omitempty"`
	Elevation float64  `json:"elevation,omitempty" yaml:"elevation,omitempty"`
	Layer     string   `json:"layer,omitempty" yaml:"layer,omitempty"`
}

// Line builds a single straight segment.
func Line(a, b Point) Curve {
	return Curve{Kind: KindLine, Vertices: []Vertex{{Point: a}, {Point: b}}}
}

// Polyline builds an open polyline through pts.
func Polyline(pts ...Point) Curve {
	vs := make([]Vertex, len(pts))
	for i, p := range pts {
		vs[i] = Vertex{Point: p}
	}
	return Curve{Kind: KindPolyline, Vertices: vs}
}

// Polygon builds a closed polyline through pts.
func Polygon(pts ...Point) Curve {
	c := Polyline(pts...)
	c.Closed = true
	return c
}

// Circle is stored as two half-circle arcs.
func Circle(center Point, r float64) Curve {
	return Curve{
		Kind:   KindCircle,
		Closed: true,
		Vertices: []Vertex{
			{Point: center.Add(Pt(-r, 0)), Bulge: 1},
			{Point: center.Add(Pt(r, 0)), Bulge: 1},
		},
	}
}

func (c Curve) Clone() Curve {
	out := c
	out.Vertices = append([]Vertex(nil), c.Vertices...)
	return out
}

func (c Curve) NumSegments() int {
	n := len(c.Vertices)
	if n < 2 {
		return 0
	}
	if c.Closed {
		return n
	}
	return n - 1
}

// CurveSegment is one straight or arc piece of a curve.
type CurveSegment struct {
	Index int
	A, B  Point
	Bulge float64
}

func (c Curve) Segment(i int) CurveSegment {
	n := len(c.Vertices)
	return CurveSegment{
		Index: i,
		A:     c.Vertices[i].Point,
		B:     c.Vertices[(i+1)%n].Point,
		Bulge: c.Vertices[i].Bulge,
	}
}

func (c Curve) Segments() []CurveSegment {
	out := make([]CurveSegment, c.NumSegments())
	for i := range out {
		out[i] = c.Segment(i)
	}
	return out
}

func (c Curve) Start() Point {
	return c.Vertices[0].Point
}

// End is the last point of the chain; for closed curves it is the start.
func (c Curve) End() Point {
	if c.Closed {
		return c.Vertices[0].Point
	}
	return c.Vertices[len(c.Vertices)-1].Point
}

// HasArcs reports whether any segment is curved.
func (c Curve) HasArcs() bool {
	for _, s := range c.Segments() {
		if s.Bulge != 0 {
			return true
		}
	}
	return false
}

func (c Curve) Length() float64 {
	var l float64
	for _, s := range c.Segments() {
		l += s.Length()
	}
	return l
}

func (c Curve) Bound() orb.Bound {
	if len(c.Vertices) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: c.Vertices[0].Orb(), Max: c.Vertices[0].Orb()}
	for _, s := range c.Segments() {
		b = b.Union(s.Bound())
	}
	return b
}

// Arc returns the arc for a curved segment.
func (s CurveSegment) Arc() (Arc, bool) {
	if s.Bulge == 0 {
		return Arc{}, false
	}
	return ArcFromBulge(s.A, s.B, s.Bulge)
}

func (s CurveSegment) Line() Segment {
	return Seg(s.A, s.B)
}

func (s CurveSegment) Length() float64 {
	if a, ok := s.Arc(); ok {
		return a.Length()
	}
	return s.A.Distance(s.B)
}

func (s CurveSegment) Bound() orb.Bound {
	if a, ok := s.Arc(); ok {
		return a.Bound()
	}
	return s.Line().Bound()
}

func (s CurveSegment) PointAt(t float64) Point {
	switch t {
	case 0:
		return s.A
	case 1:
		return s.B
	}
	if a, ok := s.Arc(); ok {
		return a.PointAt(t)
	}
	return s.A.Lerp(s.B, t)
}

// ClosestPoint returns the nearest point, its parameter and distance.
func (s CurveSegment) ClosestPoint(p Point) (Point, float64, float64) {
	if a, ok := s.Arc(); ok {
		q, t := a.ClosestPoint(p)
		return q, t, q.Distance(p)
	}
	q, t := s.Line().ClosestPoint(p)
	return q, t, q.Distance(p)
}

// Tangent is the unit direction of travel at parameter t.
func (s CurveSegment) Tangent(t float64) Point {
	if a, ok := s.Arc(); ok {
		return a.Tangent(t)
	}
	return s.B.Sub(s.A).Normalize()
}

// SubBulge is the bulge of the portion between t0 and t1.
func (s CurveSegment) SubBulge(t0, t1 float64) float64 {
	if s.Bulge == 0 {
		return 0
	}
	return SweepBulge(BulgeSweep(s.Bulge) * (t1 - t0))
}

// IntersectCurveSegments intersects two curve segments of any type.
func IntersectCurveSegments(s1, s2 CurveSegment, tol Tolerance) ([]Point, []Segment) {
	a1, arc1 := s1.Arc()
	a2, arc2 := s2.Arc()
	switch {
	case arc1 && arc2:
		return IntersectArcs(a1, a2, tol), nil
	case arc1:
		return IntersectArcSegment(a1, s2.Line(), tol), nil
	case arc2:
		return IntersectArcSegment(a2, s1.Line(), tol), nil
	}
	x := IntersectSegments(s1.Line(), s2.Line(), tol)
	switch x.Kind {
	case PointIntersection:
		return []Point{x.Point}, nil
	case OverlapIntersection:
		return nil, []Segment{x.Overlap}
	}
	return nil, nil
}

// Param addresses a location on a curve as segment index plus the
// fraction along that segment.
type Param float64

func (p Param) split() (int, float64) {
	i := math.Floor(float64(p))
	return int(i), float64(p) - i
}

// PointAt evaluates the curve at param p.
func (c Curve) PointAt(p Param) Point {
	n := c.NumSegments()
	i, t := p.split()
	if i >= n {
		if c.Closed {
			i %= n
		} else {
			return c.End()
		}
	}
	if i < 0 {
		return c.Start()
	}
	return c.Segment(i).PointAt(t)
}

// Locate returns the param of the point on c nearest to p and the
// distance to it.
func (c Curve) Locate(p Point) (Param, float64) {
	best, bestD := Param(0), math.Inf(1)
	for _, s := range c.Segments() {
		_, t, d := s.ClosestPoint(p)
		if d < bestD {
			best, bestD = Param(float64(s.Index)+t), d
		}
	}
	return best, bestD
}

// LocateAll returns every param where c passes within EqualPoint of p,
// merging hits that fall on a shared vertex. A self-crossing point is
// reported once per pass.
func (c Curve) LocateAll(p Point, tol Tolerance) []Param {
	var out []Param
	for _, s := range c.Segments() {
		q, t, d := s.ClosestPoint(p)
		if d > tol.EqualPoint {
			continue
		}
		prm := Param(float64(s.Index) + t)
		if len(out) > 0 && c.PointAt(out[len(out)-1]).Equal(q, tol) && float64(prm-out[len(out)-1]) <= 1 {
			continue
		}
		out = append(out, prm)
	}
	if c.Closed && len(out) > 1 {
		first, last := out[0], out[len(out)-1]
		if float64(first)+float64(c.NumSegments())-float64(last) <= 1 && c.PointAt(first).Equal(c.PointAt(last), tol) {
			out = out[:len(out)-1]
		}
	}
	return out
}

// Reversed returns c traversed in the opposite direction. Bulges are
// negated and moved so every arc keeps its shape.
func (c Curve) Reversed() Curve {
	out := c.Clone()
	n := len(c.Vertices)
	if n < 2 {
		return out
	}
	if c.Closed {
		for j := 0; j < n; j++ {
			out.Vertices[j] = Vertex{
				Point: c.Vertices[(n-j)%n].Point,
				Bulge: -c.Vertices[(n-j-1)%n].Bulge,
			}
		}
		return out
	}
	for j := 0; j < n; j++ {
		v := Vertex{Point: c.Vertices[n-1-j].Point}
		if j < n-1 {
			v.Bulge = -c.Vertices[n-2-j].Bulge
		}
		out.Vertices[j] = v
	}
	return out
}

// SplitAt cuts c at the given params and returns the pieces in order.
// Params at the ends of an open curve are ignored; a closed curve cut at k
// params yields k open pieces.
func (c Curve) SplitAt(params []Param, tol Tolerance) []Curve {
	nseg := c.NumSegments()
	if nseg == 0 {
		return []Curve{c.Clone()}
	}
	ps := append([]Param(nil), params...)
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })

	var cuts []Param
	for _, p := range ps {
		if p < 0 || float64(p) > float64(nseg) {
			continue
		}
		pt := c.PointAt(p)
		if !c.Closed && (pt.Equal(c.Start(), tol) || pt.Equal(c.End(), tol)) {
			continue
		}
		if len(cuts) > 0 {
			last := cuts[len(cuts)-1]
			if float64(p-last) <= 1 && c.PointAt(last).Equal(pt, tol) {
				continue
			}
		}
		cuts = append(cuts, p)
	}
	if c.Closed && len(cuts) > 1 {
		first, last := cuts[0], cuts[len(cuts)-1]
		if float64(first)+float64(nseg)-float64(last) <= 1 && c.PointAt(first).Equal(c.PointAt(last), tol) {
			cuts = cuts[:len(cuts)-1]
		}
	}

	if len(cuts) == 0 {
		return []Curve{c.Clone()}
	}

	var pieces []Curve
	if c.Closed {
		for i, from := range cuts {
			to := cuts[(i+1)%len(cuts)]
			if i == len(cuts)-1 {
				to += Param(nseg)
			}
			pieces = append(pieces, c.sub(from, to, tol))
		}
		return pieces
	}
	bounds := append(append([]Param{0}, cuts...), Param(nseg))
	for i := 0; i+1 < len(bounds); i++ {
		pieces = append(pieces, c.sub(bounds[i], bounds[i+1], tol))
	}
	return pieces
}

// sub extracts the open piece between params from < to. For closed curves
// to may exceed NumSegments and wraps around.
func (c Curve) sub(from, to Param, tol Tolerance) Curve {
	nseg := c.NumSegments()
	type portion struct {
		seg    CurveSegment
		t0, t1 float64
	}
	var parts []portion
	i0, _ := from.split()
	for k := i0; float64(k) < float64(to); k++ {
		seg := c.Segment(((k % nseg) + nseg) % nseg)
		t0 := math.Max(0, float64(from)-float64(k))
		t1 := math.Min(1, float64(to)-float64(k))
		if t1 > t0 {
			parts = append(parts, portion{seg, t0, t1})
		}
	}
	kept := parts[:0:0]
	for _, p := range parts {
		if (p.t1-p.t0)*p.seg.Length() > tol.EqualPoint {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 && len(parts) > 0 {
		kept = parts[:1]
	}

	out := Curve{Kind: c.Kind, Elevation: c.Elevation, Layer: c.Layer}
	for i, p := range kept {
		start := p.seg.PointAt(p.t0)
		if i == 0 {
			start = c.PointAt(from)
		}
		out.Vertices = append(out.Vertices, Vertex{Point: start, Bulge: p.seg.SubBulge(p.t0, p.t1)})
	}
	out.Vertices = append(out.Vertices, Vertex{Point: c.PointAt(to)})
	if c.Kind == KindCircle || c.Kind == KindArc {
		if len(out.Vertices) == 2 {
			out.Kind = KindArc
		} else {
			out.Kind = KindPolyline
		}
	}
	return out
}

// CurveEnd selects one end of an open curve.
type CurveEnd int

const (
	AtStart CurveEnd = iota
	AtEnd
)

func (e CurveEnd) String() string {
	if e == AtStart {
		return "start"
	}
	return "end"
}

func (e CurveEnd) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *CurveEnd) UnmarshalText(b []byte) error {
	switch string(b) {
	case "start":
		*e = AtStart
	case "end":
		*e = AtEnd
	default:
		return fmt.Errorf("unknown curve end %q", b)
	}
	return nil
}

// VertexIndex is the index of the vertex at this end.
func (e CurveEnd) VertexIndex(c Curve) int {
	if e == AtStart {
		return 0
	}
	return len(c.Vertices) - 1
}

func (c Curve) EndPoint(e CurveEnd) Point {
	if e == AtStart {
		return c.Start()
	}
	return c.End()
}

// OutwardTangent is the unit direction pointing away from the curve at
// the given end.
func (c Curve) OutwardTangent(e CurveEnd) Point {
	n := c.NumSegments()
	if n == 0 {
		return Point{}
	}
	if e == AtStart {
		return c.Segment(0).Tangent(0).Mul(-1)
	}
	return c.Segment(n - 1).Tangent(1)
}

// ExtendedTo moves the given end of an open curve to p. A straight end
// segment pointing at p is lengthened in place; otherwise a new straight
// segment is added.
func (c Curve) ExtendedTo(e CurveEnd, p Point, tol Tolerance) (Curve, error) {
	if c.Closed || c.NumSegments() == 0 {
		return c, fmt.Errorf("extend %s of closed or empty curve: %w", e, ErrDegenerate)
	}
	out := c.Clone()
	end := c.EndPoint(e)
	dir := c.OutwardTangent(e)
	gap := p.Sub(end)
	var seg CurveSegment
	if e == AtStart {
		seg = c.Segment(0)
	} else {
		seg = c.Segment(c.NumSegments() - 1)
	}
	if seg.Bulge == 0 && tol.SameDirection(dir, gap) {
		out.Vertices[e.VertexIndex(c)].Point = p
		return out, nil
	}
	if e == AtStart {
		out.Vertices = append([]Vertex{{Point: p}}, out.Vertices...)
	} else {
		out.Vertices = append(out.Vertices, Vertex{Point: p})
	}
	if out.Kind == KindLine || out.Kind == KindArc {
		out.Kind = KindPolyline
	}
	return out, nil
}

// WithVertexMoved returns a copy with vertex i relocated.
func (c Curve) WithVertexMoved(i int, p Point) Curve {
	out := c.Clone()
	out.Vertices[i].Point = p
	return out
}

// WithVertexInserted splits segment seg at parameter t, keeping arcs on
// their circle.
func (c Curve) WithVertexInserted(seg int, t float64) Curve {
	s := c.Segment(seg)
	p := s.PointAt(t)
	out := c.Clone()
	out.Vertices[seg].Bulge = s.SubBulge(0, t)
	v := Vertex{Point: p, Bulge: s.SubBulge(t, 1)}
	out.Vertices = append(out.Vertices[:seg+1], append([]Vertex{v}, out.Vertices[seg+1:]...)...)
	if out.Kind == KindLine || out.Kind == KindArc {
		out.Kind = KindPolyline
	}
	return out
}

// WithVertexRemoved drops vertex i. The merged segment stays an arc only
// when both neighbours lie on the same circle.
func (c Curve) WithVertexRemoved(i int, tol Tolerance) (Curve, error) {
	n := len(c.Vertices)
	minVerts := 2
	if c.Closed {
		minVerts = 3
	}
	if n-1 < minVerts {
		return c, fmt.Errorf("remove vertex %d of %d: %w", i, n, ErrDegenerate)
	}
	out := c.Clone()
	prev := i - 1
	if prev < 0 {
		if c.Closed {
			prev = n - 1
		}
	}
	if prev >= 0 && (c.Closed || i < n-1) {
		out.Vertices[prev].Bulge = mergedBulge(c.Segment(prev), c.Segment(i), tol)
	}
	out.Vertices = append(out.Vertices[:i], out.Vertices[i+1:]...)
	if !c.Closed && i == n-1 {
		out.Vertices[len(out.Vertices)-1].Bulge = 0
	}
	return out, nil
}

func mergedBulge(s1, s2 CurveSegment, tol Tolerance) float64 {
	a1, ok1 := s1.Arc()
	a2, ok2 := s2.Arc()
	if !ok1 || !ok2 {
		return 0
	}
	if !a1.Center.Equal(a2.Center, tol) || !tol.EqualDistance(a1.Radius, a2.Radius) {
		return 0
	}
	if (a1.Sweep > 0) != (a2.Sweep > 0) {
		return 0
	}
	sweep := a1.Sweep + a2.Sweep
	if math.Abs(sweep) >= 2*math.Pi {
		return 0
	}
	return SweepBulge(sweep)
}

// Straightened replaces every arc with its chord.
func (c Curve) Straightened() Curve {
	out := c.Clone()
	for i := range out.Vertices {
		out.Vertices[i].Bulge = 0
	}
	switch out.Kind {
	case KindArc:
		out.Kind = KindLine
	case KindCircle:
		out.Kind = KindPolyline
	}
	return out
}

// Flatten approximates c by points, sampling each arc with segmentsPerArc
// chords. Closed curves do not repeat the first point.
func (c Curve) Flatten(segmentsPerArc int) []Point {
	if segmentsPerArc < 1 {
		segmentsPerArc = 1
	}
	var out []Point
	for _, s := range c.Segments() {
		out = append(out, s.A)
		if a, ok := s.Arc(); ok {
			for k := 1; k < segmentsPerArc; k++ {
				out = append(out, a.PointAt(float64(k)/float64(segmentsPerArc)))
			}
		}
	}
	if !c.Closed && len(c.Vertices) > 0 {
		out = append(out, c.End())
	}
	return out
}
