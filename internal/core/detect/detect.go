// Package detect holds the read-only half of every action: each detector
// takes a geometry snapshot and returns the defects it finds. Detectors
// never touch the store.
package detect

import (
	"io"
	"log/slog"
	"sort"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/core/spatial"
	"github.com/paulmach/orb"
)

// Params configures one detector run. Limit is the action tolerance; Tol
// is the coincidence context every comparison goes through.
type Params struct {
	Tol      geom.Tolerance
	Limit    float64
	Progress model.ProgressSink
	Logger   *slog.Logger
}

func (p Params) progress() model.ProgressSink {
	if p.Progress == nil {
		return model.NopProgress
	}
	return p.Progress
}

func (p Params) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

// run accumulates the outcome of one detector.
type run struct {
	action model.ActionType
	p      Params
	out    model.CheckOutcome
}

func newRun(action model.ActionType, p Params) *run {
	return &run{action: action, p: p}
}

// step is called once per outer iteration. It reports false once the sink
// asks to stop, marking the outcome incomplete.
func (r *run) step() bool {
	sink := r.p.progress()
	if sink.Cancelled() {
		if !r.out.Incomplete {
			r.p.logger().Debug("detector cancelled", "action", r.action, "found", len(r.out.Results))
		}
		r.out.Incomplete = true
		return false
	}
	sink.Tick()
	return true
}

func (r *run) add(payload model.Payload, sources ...model.EntityHandle) {
	r.out.Results = append(r.out.Results, model.NewResult(r.action, payload, sources...))
}

func (r *run) skip(h model.EntityHandle, reason string) {
	r.p.logger().Debug("entity skipped", "action", r.action, "handle", h, "reason", reason)
	r.out.Skipped = append(r.out.Skipped, model.Skip{Handle: h, Reason: reason})
}

func (r *run) outcome() model.CheckOutcome {
	return r.out
}

// usable filters out annotations and entities too malformed to analyse.
// Malformed entities are recorded as skipped.
func (r *run) usable(entities []model.Entity) []model.Entity {
	out := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Geometry.Kind == geom.KindAnnotation {
			continue
		}
		if e.Geometry.NumSegments() == 0 {
			r.skip(e.Handle, "fewer than two vertices")
			continue
		}
		out = append(out, e)
	}
	return out
}

func closedOnly(entities []model.Entity) []model.Entity {
	var out []model.Entity
	for _, e := range entities {
		if e.Geometry.Closed {
			out = append(out, e)
		}
	}
	return out
}

// segRef addresses one segment of one entity in a slice.
type segRef struct {
	entity, seg int
}

// segmentIndex is a quadtree over every segment of entities.
type segmentIndex struct {
	entities []model.Entity
	tree     *spatial.QuadTree[segRef]
	pad      float64
}

func newSegmentIndex(entities []model.Entity, pad float64) *segmentIndex {
	extent := orb.Bound{}
	first := true
	for _, e := range entities {
		if e.Geometry.NumSegments() == 0 {
			continue
		}
		b := e.Geometry.Bound()
		if first {
			extent, first = b, false
		} else {
			extent = extent.Union(b)
		}
	}
	idx := &segmentIndex{
		entities: entities,
		tree:     spatial.NewQuadTree[segRef](spatial.Pad(extent, pad)),
		pad:      pad,
	}
	for i, e := range entities {
		for _, s := range e.Geometry.Segments() {
			idx.tree.Insert(segRef{i, s.Index}, spatial.Pad(s.Bound(), pad))
		}
	}
	return idx
}

func (x *segmentIndex) segment(r segRef) geom.CurveSegment {
	return x.entities[r.entity].Geometry.Segment(r.seg)
}

// query returns the segments whose padded box meets b, in entity then
// segment order.
func (x *segmentIndex) query(b orb.Bound) []segRef {
	refs := x.tree.Query(b)
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].entity != refs[j].entity {
			return refs[i].entity < refs[j].entity
		}
		return refs[i].seg < refs[j].seg
	})
	return refs
}

// near returns the entities passing within d of p, ascending.
func (x *segmentIndex) near(p geom.Point, d float64) []int {
	var out []int
	seen := make(map[int]bool)
	for _, r := range x.query(orb.Bound{Min: p.Orb(), Max: p.Orb()}) {
		if seen[r.entity] {
			continue
		}
		if _, _, dist := x.segment(r).ClosestPoint(p); dist <= d {
			seen[r.entity] = true
			out = append(out, r.entity)
		}
	}
	return out
}

// entityIndex is a quadtree over whole entities.
func entityIndex(entities []model.Entity, pad float64) *spatial.QuadTree[int] {
	extent := orb.Bound{}
	for i, e := range entities {
		if i == 0 {
			extent = e.Geometry.Bound()
		} else {
			extent = extent.Union(e.Geometry.Bound())
		}
	}
	tree := spatial.NewQuadTree[int](spatial.Pad(extent, pad))
	for i, e := range entities {
		tree.Insert(i, spatial.Pad(e.Geometry.Bound(), pad))
	}
	return tree
}

// candidates returns the indexes after i whose boxes meet entity i's box.
func candidates(tree *spatial.QuadTree[int], i int, b orb.Bound) []int {
	var out []int
	for _, j := range tree.Query(b) {
		if j > i {
			out = append(out, j)
		}
	}
	sort.Ints(out)
	return out
}

// isEnd reports whether p is an end of an open curve.
func isEnd(c geom.Curve, p geom.Point, tol geom.Tolerance) bool {
	if c.Closed || len(c.Vertices) == 0 {
		return false
	}
	return p.Equal(c.Start(), tol) || p.Equal(c.End(), tol)
}

// vertexAt returns the index of the vertex of c at p, or -1.
func vertexAt(c geom.Curve, p geom.Point, tol geom.Tolerance) int {
	for i, v := range c.Vertices {
		if v.Point.Equal(p, tol) {
			return i
		}
	}
	return -1
}

// appendUnique adds p unless an equal point is already present.
func appendUnique(pts []geom.Point, p geom.Point, tol geom.Tolerance) []geom.Point {
	for _, q := range pts {
		if q.Equal(p, tol) {
			return pts
		}
	}
	return append(pts, p)
}

// centroid is the vertex average, used to anchor a measure.
func centroid(c geom.Curve) geom.Point {
	var sum geom.Point
	for _, v := range c.Vertices {
		sum = sum.Add(v.Point)
	}
	if len(c.Vertices) == 0 {
		return sum
	}
	return sum.Mul(1 / float64(len(c.Vertices)))
}
