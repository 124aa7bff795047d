package detect

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entities(curves ...geom.Curve) []model.Entity {
	out := make([]model.Entity, len(curves))
	for i, c := range curves {
		out[i] = model.Entity{Handle: model.EntityHandle(fmt.Sprintf("e%d", i+1)), Geometry: c}
	}
	return out
}

func params(limit float64) Params {
	return Params{Tol: geom.DefaultTolerance, Limit: limit}
}

func pt(x, y float64) geom.Point { return geom.Pt(x, y) }

func TestCrossings_TwoLines(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(10, 10)),
		geom.Line(pt(0, 10), pt(10, 0)),
	)

	out := Crossings(params(0), es)

	require.Len(t, out.Results, 1)
	res := out.Results[0]
	assert.Equal(t, []model.EntityHandle{"e1", "e2"}, res.SourceIDs)
	assert.Equal(t, model.StatusPending, res.Status)
	payload := res.Payload.(model.CrossingPayload)
	require.Len(t, payload.Points, 1)
	assert.InDelta(t, 5, payload.Points[0].X, 1e-9)
	assert.InDelta(t, 5, payload.Points[0].Y, 1e-9)
	assert.False(t, out.Incomplete)
}

func TestCrossings_SharedEndIsAJoint(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(5, 0)),
		geom.Line(pt(5, 0), pt(5, 5)),
	)

	assert.Empty(t, Crossings(params(0), es).Results)
}

func TestCrossings_TJunction(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(10, 0)),
		geom.Line(pt(5, 0), pt(5, 5)),
	)

	out := Crossings(params(0), es)

	require.Len(t, out.Results, 1)
	payload := out.Results[0].Payload.(model.CrossingPayload)
	require.Len(t, payload.Points, 1)
	assert.True(t, payload.Points[0].Equal(pt(5, 0), geom.DefaultTolerance))
}

func TestCrossings_SelfCrossing(t *testing.T) {
	es := entities(geom.Polyline(pt(0, 0), pt(10, 10), pt(10, 0), pt(0, 10)))

	out := Crossings(params(0), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1"}, out.Results[0].SourceIDs)
	assert.True(t, out.Results[0].Payload.(model.CrossingPayload).Self)
}

func TestCrossings_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	var curves []geom.Curve
	for range 60 {
		curves = append(curves, geom.Line(
			pt(rng.Float64()*100, rng.Float64()*100),
			pt(rng.Float64()*100, rng.Float64()*100),
		))
	}
	es := entities(curves...)

	want := make(map[[2]model.EntityHandle]geom.Intersection)
	for i := range es {
		for j := i + 1; j < len(es); j++ {
			a, b := es[i].Geometry.Segment(0).Line(), es[j].Geometry.Segment(0).Line()
			if x := geom.IntersectSegments(a, b, geom.DefaultTolerance); x.Kind != geom.NoIntersection {
				want[[2]model.EntityHandle{es[i].Handle, es[j].Handle}] = x
			}
		}
	}

	got := make(map[[2]model.EntityHandle]bool)
	for _, r := range Crossings(params(0), es).Results {
		require.Len(t, r.SourceIDs, 2)
		key := [2]model.EntityHandle{r.SourceIDs[0], r.SourceIDs[1]}
		got[key] = true

		x, ok := want[key]
		if !assert.True(t, ok, "unexpected crossing %v", key) {
			continue
		}
		payload := r.Payload.(model.CrossingPayload)
		switch x.Kind {
		case geom.PointIntersection:
			assert.Empty(t, payload.Overlaps, "%v", key)
			if assert.Len(t, payload.Points, 1, "%v", key) {
				assert.True(t, payload.Points[0].Equal(x.Point, geom.DefaultTolerance), "%v: %v vs %v", key, payload.Points[0], x.Point)
			}
		case geom.OverlapIntersection:
			assert.Empty(t, payload.Points, "%v", key)
			assert.Len(t, payload.Overlaps, 1, "%v", key)
		}
	}
	assert.NotEmpty(t, want)
	assert.Len(t, got, len(want))
	for key := range want {
		assert.True(t, got[key], "missing crossing %v", key)
	}
}

func TestIntersectingPolygons(t *testing.T) {
	es := entities(
		geom.Polygon(pt(0, 0), pt(0, 10), pt(10, 10), pt(10, 0)),
		geom.Polygon(pt(5, 5), pt(5, 15), pt(15, 15), pt(15, 5)),
	)

	out := IntersectingPolygons(params(0), es)

	require.Len(t, out.Results, 1)
	assert.Len(t, out.Results[0].Payload.(model.PolygonPairPayload).Points, 2)
}

func TestDuplicates_ContainedCurve(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(10, 0)),
		geom.Line(pt(2, 0), pt(5, 0)),
		geom.Line(pt(0, 1), pt(10, 1)),
	)

	out := Duplicates(params(0.001), es)

	require.Len(t, out.Results, 1)
	payload := out.Results[0].Payload.(model.DuplicatePayload)
	assert.Equal(t, model.EntityHandle("e1"), payload.Keeper)
	assert.Equal(t, []model.EntityHandle{"e2"}, payload.Duplicates)
}

func TestDuplicatePolygons_RotatedAndReversed(t *testing.T) {
	es := entities(
		geom.Polygon(pt(0, 0), pt(0, 10), pt(10, 10), pt(10, 0)),
		geom.Polygon(pt(10, 10), pt(0, 10), pt(0, 0), pt(10, 0)),
		geom.Polygon(pt(20, 0), pt(20, 10), pt(30, 10), pt(30, 0)),
	)

	out := DuplicatePolygons(params(0.001), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1", "e2"}, out.Results[0].SourceIDs)
}

func TestDangling_ChainToJunction(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(-10, 10)),
		geom.Line(pt(0, 0), pt(-10, -10)),
		geom.Line(pt(0, 0), pt(1, 0)),
		geom.Line(pt(1, 0), pt(2, 0)),
		geom.Line(pt(2, 0), pt(3, 0)),
	)

	out := Dangling(params(5), es)

	require.Len(t, out.Results, 1)
	payload := out.Results[0].Payload.(model.DanglingPayload)
	assert.ElementsMatch(t, []model.EntityHandle{"e3", "e4", "e5"}, out.Results[0].SourceIDs)
	assert.InDelta(t, 3, payload.Length, 1e-9)
	require.NotNil(t, payload.Junction)
	assert.True(t, payload.Junction.Equal(pt(0, 0), geom.DefaultTolerance))
}

func TestDangling_LongerThanLimit(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(-10, 10)),
		geom.Line(pt(0, 0), pt(-10, -10)),
		geom.Line(pt(0, 0), pt(6, 0)),
	)

	assert.Empty(t, Dangling(params(5), es).Results)
}

func TestDangling_StopsAtInteriorVertex(t *testing.T) {
	// A room closed through the middle vertex of e1; e1's last segment
	// is the only spur.
	es := entities(
		geom.Polyline(pt(0, 0), pt(1, 0), pt(2, 0)),
		geom.Polyline(pt(1, 0), pt(1, 1), pt(0, 1), pt(0, 0)),
	)

	out := Dangling(params(5), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1"}, out.Results[0].SourceIDs)
	payload := out.Results[0].Payload.(model.DanglingPayload)
	assert.InDelta(t, 1, payload.Length, 1e-9)
	assert.Equal(t, pt(2, 0), payload.FreeEnd)
	require.NotNil(t, payload.Junction)
	assert.True(t, payload.Junction.Equal(pt(1, 0), geom.DefaultTolerance))
	assert.Equal(t, model.EntityHandle("e1"), payload.Trim)
	assert.Equal(t, pt(2, 0), payload.TrimFrom)
}

func TestDangling_JunctionAtCurveEndIsNotTrimmed(t *testing.T) {
	es := entities(
		geom.Polyline(pt(-5, 5), pt(0, 0), pt(-5, -5)),
		geom.Polyline(pt(0, 0), pt(1, 0), pt(2, 0)),
	)

	out := Dangling(params(5), es)

	require.Len(t, out.Results, 1)
	payload := out.Results[0].Payload.(model.DanglingPayload)
	assert.Equal(t, []model.EntityHandle{"e2"}, payload.Path)
	assert.InDelta(t, 2, payload.Length, 1e-9)
	assert.Empty(t, payload.Trim)
}

func TestFreeEnds_EndOnInteriorVertex(t *testing.T) {
	es := entities(
		geom.Polyline(pt(0, 0), pt(5, 0), pt(10, 0)),
		geom.Line(pt(5, 0), pt(5, 5)),
	)

	out := FreeEnds(params(0), es)

	var pts []geom.Point
	for _, r := range out.Results {
		pts = append(pts, r.Payload.(model.EndpointPayload).Point)
	}
	assert.ElementsMatch(t, []geom.Point{pt(0, 0), pt(10, 0), pt(5, 5)}, pts)
}

func TestFreeEnds(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(5, 0)),
		geom.Line(pt(5, 0), pt(5, 5)),
	)

	out := FreeEnds(params(0), es)

	require.Len(t, out.Results, 2)
	var pts []geom.Point
	for _, r := range out.Results {
		pts = append(pts, r.Payload.(model.EndpointPayload).Point)
	}
	assert.ElementsMatch(t, []geom.Point{pt(0, 0), pt(5, 5)}, pts)
}

func TestUndershoots_ExtendsOntoNearestCurve(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(10, 0)),
		geom.Line(pt(5, 1), pt(5, 5)),
	)

	out := Undershoots(params(2), es)

	require.Len(t, out.Results, 1)
	payload := out.Results[0].Payload.(model.UndershootPayload)
	assert.Equal(t, model.EntityHandle("e2"), payload.Source)
	assert.Equal(t, model.EntityHandle("e1"), payload.Target)
	assert.Equal(t, geom.AtStart, payload.End)
	assert.Equal(t, model.Backward, payload.Direction)
	assert.InDelta(t, 1, payload.Gap, 1e-9)
	assert.True(t, payload.To.Equal(pt(5, 0), geom.DefaultTolerance))
}

func TestUndershoots_BeyondLimit(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(10, 0)),
		geom.Line(pt(5, 3), pt(5, 5)),
	)

	assert.Empty(t, Undershoots(params(2), es).Results)
}

func TestClusters_SnapsNearEnds(t *testing.T) {
	es := entities(
		geom.Line(pt(-10, 0), pt(0, 0)),
		geom.Line(pt(10, 0), pt(0.1, 0)),
		geom.Line(pt(0, 10), pt(0, 0.1)),
	)

	out := Clusters(params(0.5), es)

	require.Len(t, out.Results, 1)
	payload := out.Results[0].Payload.(model.ClusterPayload)
	assert.Equal(t, pt(0, 0), payload.Representative)
	assert.Len(t, payload.Members, 3)
	assert.Equal(t, []model.EntityHandle{"e1", "e2", "e3"}, out.Results[0].SourceIDs)
}

func TestClusters_CoincidentEndsAreClean(t *testing.T) {
	es := entities(
		geom.Line(pt(-10, 0), pt(0, 0)),
		geom.Line(pt(10, 0), pt(0, 0)),
	)

	assert.Empty(t, Clusters(params(0.5), es).Results)
}

func TestSmallPolygon_ClockwiseSliver(t *testing.T) {
	sliver := geom.Polygon(pt(0, 0), pt(0, 0.01), pt(0.03, 0.01), pt(0.03, 0))
	es := entities(sliver)

	out := SmallPolygons(params(0.05), es)
	require.Len(t, out.Results, 1)
	assert.InDelta(t, 0.0003, out.Results[0].Payload.(model.MeasurePayload).Value, 1e-12)

	assert.Empty(t, AntiClockwise(params(0), es).Results)
	assert.Len(t, AntiClockwise(params(0), entities(sliver.Reversed())).Results, 1)
}

func TestZeroLength(t *testing.T) {
	single := geom.Curve{Kind: geom.KindPolyline, Vertices: []geom.Vertex{geom.V(1, 1)}}
	es := entities(
		geom.Line(pt(1, 1), pt(1, 1)),
		single,
		geom.Line(pt(0, 0), pt(1, 0)),
	)

	out := ZeroLength(params(0), es)

	require.Len(t, out.Results, 2)
	assert.Equal(t, []model.EntityHandle{"e1"}, out.Results[0].SourceIDs)
	assert.Equal(t, []model.EntityHandle{"e2"}, out.Results[1].SourceIDs)
}

// gridLines joins random points of a coarse integer grid, so curves meet
// at shared ends and interior vertices.
func gridLines(rng *rand.Rand, n int) []geom.Curve {
	var out []geom.Curve
	for range n {
		x, y := float64(rng.IntN(8)), float64(rng.IntN(8))
		dx, dy := float64(rng.IntN(3)-1), float64(rng.IntN(3)-1)
		if dx == 0 && dy == 0 {
			dx = 1
		}
		out = append(out, geom.Polyline(pt(x, y), pt(x+dx, y+dy), pt(x+2*dx, y+2*dy)))
	}
	return out
}

// jitteredStars meets lines at well separated centres, each end moved by
// at most r.
func jitteredStars(rng *rand.Rand, r float64) []geom.Curve {
	jitter := func(c geom.Point) geom.Point {
		return c.Add(pt((rng.Float64()*2-1)*r, (rng.Float64()*2-1)*r))
	}
	var out []geom.Curve
	for i := range 6 {
		for j := range 6 {
			c := pt(float64(i)*20, float64(j)*20)
			out = append(out,
				geom.Line(jitter(c), jitter(c.Add(pt(20, 0)))),
				geom.Line(jitter(c), jitter(c.Add(pt(0, 20)))),
			)
		}
	}
	return out
}

// shiftedCopies pairs random lines with copies offset sideways by up to
// r.
func shiftedCopies(rng *rand.Rand, r float64) []geom.Curve {
	var out []geom.Curve
	for i := range 20 {
		y := float64(i) * 10
		x, l := rng.Float64()*50, 1+rng.Float64()*5
		off := rng.Float64() * r
		out = append(out, geom.Line(pt(x, y), pt(x+l, y)), geom.Line(pt(x, y+off), pt(x+l, y+off)))
	}
	return out
}

// stubs puts short stubs at random distances below long walls.
func stubs(rng *rand.Rand) []geom.Curve {
	var out []geom.Curve
	for i := range 20 {
		y := float64(i) * 20
		gap := rng.Float64() * 4
		out = append(out,
			geom.Line(pt(0, y), pt(10, y)),
			geom.Line(pt(5, y-gap-3), pt(5, y-gap)),
		)
	}
	return out
}

func sourceKeys(r *model.CheckResult) []string {
	out := make([]string, len(r.SourceIDs))
	for i, h := range r.SourceIDs {
		out[i] = string(h)
	}
	return out
}

func TestDetectors_MonotoneInTolerance(t *testing.T) {
	shortLines := func(rng *rand.Rand) []geom.Curve {
		var out []geom.Curve
		for range 40 {
			x, y, l := rng.Float64()*50, rng.Float64()*50, rng.Float64()*3
			out = append(out, geom.Line(pt(x, y), pt(x+l, y)))
		}
		return out
	}

	cases := []struct {
		name   string
		detect func(Params, []model.Entity) model.CheckOutcome
		curves func(rng *rand.Rand) []geom.Curve
		limits []float64
		keys   func(r *model.CheckResult) []string
	}{
		{"short", ShortCurves, shortLines, []float64{0.5, 1, 2, 4}, sourceKeys},
		{"dangling", Dangling, func(rng *rand.Rand) []geom.Curve { return gridLines(rng, 25) }, []float64{1, 2, 3, 5, 8}, sourceKeys},
		{"clusters", Clusters, func(rng *rand.Rand) []geom.Curve { return jitteredStars(rng, 0.02) }, []float64{0.05, 0.1, 0.2, 0.4}, sourceKeys},
		{"duplicates", Duplicates, func(rng *rand.Rand) []geom.Curve { return shiftedCopies(rng, 0.4) }, []float64{0.05, 0.1, 0.2, 0.4}, sourceKeys},
		{"undershoots", Undershoots, stubs, []float64{0.5, 1, 2, 4}, func(r *model.CheckResult) []string {
			u := r.Payload.(model.UndershootPayload)
			return []string{fmt.Sprintf("%s@%d", u.Source, u.End)}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(3, 5))
			es := entities(tc.curves(rng)...)

			var prev map[string]bool
			for _, limit := range tc.limits {
				found := make(map[string]bool)
				for _, r := range tc.detect(params(limit), es).Results {
					for _, k := range tc.keys(r) {
						found[k] = true
					}
				}
				for k := range prev {
					assert.True(t, found[k], "%s reported at a smaller limit but not at %g", k, limit)
				}
				prev = found
			}
			assert.NotEmpty(t, prev)
		})
	}
}

func TestUnclosed(t *testing.T) {
	es := entities(
		geom.Polyline(pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 0.005)),
		geom.Polyline(pt(0, 20), pt(10, 20), pt(10, 30), pt(0, 25)),
	)

	out := Unclosed(params(0.01), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1"}, out.Results[0].SourceIDs)
}

func TestZeroAreaLoops(t *testing.T) {
	es := entities(
		geom.Polygon(pt(0, 0), pt(5, 0), pt(10, 0)),
		geom.Polygon(pt(0, 0), pt(0, 1), pt(1, 1)),
	)

	out := ZeroAreaLoops(params(0), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1"}, out.Results[0].SourceIDs)
}

func TestZeroAreaLoops_ScalesWithPerimeter(t *testing.T) {
	needle := geom.Polygon(pt(0, 0), pt(1000, 0), pt(1000, 1e-7))
	tiny := geom.Polygon(pt(0, 0), pt(0, 1e-3), pt(1e-3, 0))
	es := entities(needle, tiny)

	out := ZeroAreaLoops(params(0), es)
	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1"}, out.Results[0].SourceIDs)

	small := SmallPolygons(params(1), es)
	require.Len(t, small.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e2"}, small.Results[0].SourceIDs)
}

func TestElevated(t *testing.T) {
	raised := geom.Line(pt(0, 0), pt(1, 0))
	raised.Elevation = 3
	out := Elevated(params(0), entities(geom.Line(pt(0, 0), pt(1, 1)), raised))

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e2"}, out.Results[0].SourceIDs)
}

func TestArcs(t *testing.T) {
	bulged := geom.Curve{Kind: geom.KindPolyline, Vertices: []geom.Vertex{geom.VB(0, 0, 0.5), geom.V(10, 0), geom.V(10, 10)}}
	es := entities(bulged, geom.Circle(pt(50, 50), 5), geom.Line(pt(0, 0), pt(1, 1)))

	out := Arcs(params(0), es)

	require.Len(t, out.Results, 2)
	first := out.Results[0].Payload.(model.ArcPayload)
	assert.Equal(t, []int{0}, first.Segments)
	assert.False(t, first.Entity)
	assert.True(t, out.Results[1].Payload.(model.ArcPayload).Entity)
}

func TestDuplicateVertices_KeepsEarlierInside(t *testing.T) {
	es := entities(geom.Polyline(pt(0, 0), pt(5, 0), pt(5.0005, 0), pt(10, 0)))

	out := DuplicateVertices(params(0.001), es)

	require.Len(t, out.Results, 1)
	removals := out.Results[0].Payload.(model.VertexRemovalPayload).Removals
	require.Len(t, removals, 1)
	assert.Equal(t, 2, removals[0].Index)
	assert.Equal(t, 1, removals[0].KeepIndex)
}

func TestDuplicateVertices_KeepsOpenEnd(t *testing.T) {
	es := entities(geom.Polyline(pt(0, 0), pt(5, 0), pt(10, 0), pt(10.0005, 0)))

	out := DuplicateVertices(params(0.001), es)

	require.Len(t, out.Results, 1)
	removals := out.Results[0].Payload.(model.VertexRemovalPayload).Removals
	require.Len(t, removals, 1)
	assert.Equal(t, 2, removals[0].Index)
	assert.Equal(t, 3, removals[0].KeepIndex)
}

func TestDuplicateVertices_KeepsCrotch(t *testing.T) {
	es := entities(
		geom.Polyline(pt(0, 0), pt(5, 0), pt(5.0005, 0), pt(10, 0)),
		geom.Line(pt(5.0005, 0), pt(5.0005, 5)),
	)

	out := DuplicateVertices(params(0.001), es)

	require.Len(t, out.Results, 1)
	removals := out.Results[0].Payload.(model.VertexRemovalPayload).Removals
	require.Len(t, removals, 1)
	assert.Equal(t, 1, removals[0].Index)
	assert.Equal(t, 2, removals[0].KeepIndex)
}

func TestPointDeviations(t *testing.T) {
	es := entities(
		geom.Polyline(pt(0, 0), pt(5, 0.005), pt(10, 0)),
		geom.Polyline(pt(0, 10), pt(5, 12), pt(10, 10)),
	)

	out := PointDeviations(params(0.01), es)

	require.Len(t, out.Results, 1)
	moves := out.Results[0].Payload.(model.VertexMovePayload).Moves
	require.Len(t, moves, 1)
	assert.Equal(t, 1, moves[0].Index)
	assert.InDelta(t, 0, moves[0].To.Y, 1e-12)
	assert.InDelta(t, 0.005, moves[0].Distance, 1e-12)
}

func TestMissingVertices(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(10, 0)),
		geom.Line(pt(5, 0), pt(5, 5)),
	)

	out := MissingVertices(params(0), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1", "e2"}, out.Results[0].SourceIDs)
	inserts := out.Results[0].Payload.(model.VertexInsertPayload).Inserts
	require.Len(t, inserts, 1)
	assert.Equal(t, pt(5, 0), inserts[0].Point)
}

func square(x, y, size float64) geom.Curve {
	return geom.Polygon(pt(x, y), pt(x, y+size), pt(x+size, y+size), pt(x+size, y))
}

func TestPolygonHoles(t *testing.T) {
	es := entities(square(0, 0, 10), square(2, 2, 2), square(1, 1, 6))

	out := PolygonHoles(params(0), es)

	require.Len(t, out.Results, 2)
	assert.Equal(t, []model.EntityHandle{"e2", "e3"}, out.Results[0].SourceIDs)
	assert.Equal(t, []model.EntityHandle{"e3", "e1"}, out.Results[1].SourceIDs)
}

func TestOverlaps(t *testing.T) {
	es := entities(square(0, 0, 10), square(5, 0, 10), square(2, 2, 2))

	out := Overlaps(params(0.0001), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1", "e2"}, out.Results[0].SourceIDs)
	assert.InDelta(t, 50, out.Results[0].Payload.(model.PolygonPairPayload).Area, 1e-3)
}

func TestIslands(t *testing.T) {
	es := entities(square(0, 0, 10), square(10, 0, 10), square(100, 100, 10))

	out := Islands(params(0), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e3"}, out.Results[0].SourceIDs)
}

func TestSmallPolygonGaps(t *testing.T) {
	es := entities(square(0, 0, 10), square(10.005, 0, 10))

	out := SmallPolygonGaps(params(0.01), es)

	require.Len(t, out.Results, 1)
	payload := out.Results[0].Payload.(model.VertexMovePayload)
	assert.Equal(t, model.EntityHandle("e2"), payload.Target)
	require.Len(t, payload.Moves, 2)
	for _, m := range payload.Moves {
		assert.InDelta(t, 10.005, m.To.X, 1e-9)
	}
}

func TestSharpCorners(t *testing.T) {
	es := entities(geom.Polygon(pt(0, 0), pt(0, 1), pt(10, 0)))

	out := SharpCorners(params(10), es)

	require.Len(t, out.Results, 1)
	corners := out.Results[0].Payload.(model.CornerPayload).Corners
	require.Len(t, corners, 1)
	assert.Equal(t, 2, corners[0].Index)
	assert.InDelta(t, 5.71, corners[0].Degrees, 0.01)
}

func TestSharpCorners_IgnoresReflexVertices(t *testing.T) {
	// The notch at (5,1) points into the ring: its legs meet at about 157
	// degrees but the interior angle there is reflex.
	chevron := geom.Polygon(pt(0, 0), pt(5, 1), pt(10, 0), pt(10, 10), pt(0, 10))
	require.Less(t, geom.Degrees(geom.AngleAt(pt(0, 0), pt(5, 1), pt(10, 0))), 180.0)

	for _, c := range []geom.Curve{chevron, chevron.Reversed()} {
		out := SharpCorners(params(170), entities(c))
		for _, r := range out.Results {
			for _, corner := range r.Payload.(model.CornerPayload).Corners {
				assert.NotEqual(t, pt(5, 1), corner.Point)
			}
		}
	}

	// The same notch pointing outwards is a convex spike
	spike := geom.Polygon(pt(0, 0), pt(5, -1), pt(10, 0), pt(10, 10), pt(0, 10))
	out := SharpCorners(params(170), entities(spike))
	require.Len(t, out.Results, 1)
	var pts []geom.Point
	for _, corner := range out.Results[0].Payload.(model.CornerPayload).Corners {
		pts = append(pts, corner.Point)
	}
	assert.Contains(t, pts, pt(5, -1))
}

func TestAnnotationOverlaps(t *testing.T) {
	label := func(x, y float64) geom.Curve {
		c := square(x, y, 2)
		c.Kind = geom.KindAnnotation
		return c
	}
	es := entities(label(0, 0), label(1, 1), label(10, 10), geom.Line(pt(0, 0), pt(3, 3)))

	out := AnnotationOverlaps(params(0), es)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []model.EntityHandle{"e1", "e2"}, out.Results[0].SourceIDs)
	assert.InDelta(t, 1, out.Results[0].Payload.(model.PolygonPairPayload).Area, 1e-6)
}

func TestDetector_CancelledRunIsIncomplete(t *testing.T) {
	es := entities(
		geom.Line(pt(0, 0), pt(0.1, 0)),
		geom.Line(pt(0, 1), pt(0.1, 1)),
		geom.Line(pt(0, 2), pt(0.1, 2)),
	)
	p := params(1)
	p.Progress = &model.CountingProgress{Limit: 1}

	out := ShortCurves(p, es)

	assert.True(t, out.Incomplete)
	assert.Len(t, out.Results, 1)
}

func TestDetector_SkipsMalformed(t *testing.T) {
	es := entities(geom.Curve{Kind: geom.KindPolyline, Vertices: []geom.Vertex{geom.V(0, 0)}}, geom.Line(pt(0, 0), pt(0.1, 0)))

	out := ShortCurves(params(1), es)

	require.Len(t, out.Skipped, 1)
	assert.Equal(t, model.EntityHandle("e1"), out.Skipped[0].Handle)
	assert.Len(t, out.Results, 1)
}
