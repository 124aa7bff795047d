package planar

import (
	"testing"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tol = geom.Tolerance{EqualPoint: 1e-6, EqualVector: 1e-9}

func TestBuild_EntityEdges(t *testing.T) {
	entities := []model.Entity{
		{Handle: "a", Geometry: geom.Line(geom.Pt(0, 0), geom.Pt(5, 0))},
		{Handle: "b", Geometry: geom.Line(geom.Pt(5, 0), geom.Pt(5, 5))},
		// Endpoint within tolerance joins the node at (5,0)
		{Handle: "c", Geometry: geom.Line(geom.Pt(5, 1e-7), geom.Pt(10, 0))},
		{Handle: "loop", Geometry: geom.Polygon(geom.Pt(20, 0), geom.Pt(21, 0), geom.Pt(21, 1))},
		{Handle: "dot", Geometry: geom.Line(geom.Pt(30, 0), geom.Pt(30, 0))},
		{Handle: "single", Geometry: geom.Curve{Kind: geom.KindLine, Vertices: []geom.Vertex{geom.V(40, 0)}}},
	}
	g := Build(entities, tol, EntityEdges)

	junction, ok := g.NodeAt(geom.Pt(5, 0))
	require.True(t, ok)
	assert.Equal(t, 3, g.Degree(junction))
	assert.Len(t, g.Neighbors(junction), 3)

	free, ok := g.NodeOf("a", 0)
	require.True(t, ok)
	assert.Equal(t, 1, g.Degree(free))

	loopNode, ok := g.NodeOf("loop", 0)
	require.True(t, ok)
	assert.Equal(t, 2, g.Degree(loopNode))

	dot := g.EdgesOf("dot")
	require.Len(t, dot, 1)
	assert.True(t, dot[0].Degenerate)
	assert.Equal(t, dot[0].From, dot[0].To)

	assert.Empty(t, g.EdgesOf("single"))
	assert.Len(t, g.FreeEnds(), 3)
}

func TestBuild_SegmentEdges(t *testing.T) {
	entities := []model.Entity{
		{Handle: "p", Geometry: geom.Polyline(geom.Pt(0, 0), geom.Pt(5, 0), geom.Pt(5, 5))},
		{Handle: "q", Geometry: geom.Line(geom.Pt(5, 0), geom.Pt(10, 0))},
	}
	g := Build(entities, tol, SegmentEdges)

	assert.Len(t, g.Edges, 3)
	assert.Len(t, g.Nodes, 4)
	corner, ok := g.NodeAt(geom.Pt(5, 0))
	require.True(t, ok)
	assert.Equal(t, 3, g.Degree(corner))
	assert.Len(t, corner.Refs, 2)

	// Leaving (5,0) along p's second segment heads up
	for _, adj := range g.Neighbors(corner) {
		if adj.Edge.Handle == "p" && adj.Edge.Segment == 1 {
			d := g.Direction(adj.Edge, corner.ID)
			assert.InDelta(t, 1, d.Y, 1e-12)
		}
	}
}

func TestFreeEnds_SegmentEdgesSeeInteriorVertices(t *testing.T) {
	entities := []model.Entity{
		{Handle: "p", Geometry: geom.Polyline(geom.Pt(0, 0), geom.Pt(5, 0), geom.Pt(10, 0))},
		{Handle: "q", Geometry: geom.Line(geom.Pt(5, 0), geom.Pt(5, 5))},
	}

	// Only curve ends are nodes, so q's start looks free
	assert.Len(t, Build(entities, tol, EntityEdges).FreeEnds(), 4)

	g := Build(entities, tol, SegmentEdges)
	free := g.FreeEnds()
	require.Len(t, free, 3)
	for _, n := range free {
		ref, end, ok := g.FreeEnd(n)
		require.True(t, ok)
		switch n.Point {
		case geom.Pt(0, 0):
			assert.Equal(t, EndRef{"p", 0}, ref)
			assert.Equal(t, geom.AtStart, end)
		case geom.Pt(10, 0):
			assert.Equal(t, EndRef{"p", 2}, ref)
			assert.Equal(t, geom.AtEnd, end)
		case geom.Pt(5, 5):
			assert.Equal(t, EndRef{"q", 1}, ref)
			assert.Equal(t, geom.AtEnd, end)
		default:
			t.Errorf("unexpected free end at %v", n.Point)
		}
	}

	mid, ok := g.NodeAt(geom.Pt(5, 0))
	require.True(t, ok)
	_, _, ok = g.FreeEnd(mid)
	assert.False(t, ok)
}
