package extraction

import (
	"context"
	"fmt"
	"math"
	"sort"
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

func line(x1, y1, x2, y2 float64) geom.Curve {
	return geom.Line(geom.Pt(x1, y1), geom.Pt(x2, y2))
}

// twoRooms is two 10x10 squares sharing the wall x = 10.
func twoRooms() []geom.Curve {
	return []geom.Curve{
		line(0, 0, 10, 0),
		line(10, 0, 20, 0),
		line(20, 0, 20, 10),
		line(20, 10, 10, 10),
		line(10, 10, 0, 10),
		line(0, 10, 0, 0),
		line(10, 0, 10, 10),
	}
}

func TestExtractFaces_TwoRooms(t *testing.T) {
	x := NewExtractor(geom.DefaultTolerance, nil)

	faces, err := x.ExtractFaces(context.Background(), entities(twoRooms()...))
	require.NoError(t, err)

	require.Len(t, faces.Bounded, 2)
	require.Len(t, faces.Outer, 1)
	for _, f := range faces.Bounded {
		assert.InDelta(t, 100, f.Area, 1e-9)
		assert.True(t, geom.IsClockwise(f.Curve))
		assert.Len(t, f.Handles, 4)
		assert.Contains(t, f.Handles, model.EntityHandle("e7"))
	}
	assert.InDelta(t, 200, faces.Outer[0].Area, 1e-9)
	assert.Empty(t, faces.Unclosed)
}

func TestExtractFaces_EveryHalfEdgeOnce(t *testing.T) {
	curves := append(twoRooms(), line(20, 10, 25, 15), line(40, 40, 45, 40))
	x := NewExtractor(geom.DefaultTolerance, nil)

	faces, err := x.ExtractFaces(context.Background(), entities(curves...))
	require.NoError(t, err)

	assert.Equal(t, 2*len(curves), faces.HalfEdges)
	sum := 0
	for _, f := range append(faces.Bounded, faces.Outer...) {
		sum += f.HalfEdges
	}
	// the isolated segment traces a walk without area
	assert.Equal(t, 2*len(curves)-2, sum)
	assert.Len(t, faces.Bounded, 2)
	assert.Equal(t, []model.EntityHandle{"e8", "e9"}, faces.Unclosed)
}

func TestExtractFaces_ClosedPolylineAndCircle(t *testing.T) {
	square := geom.Polygon(geom.Pt(0, 0), geom.Pt(0, 4), geom.Pt(4, 4), geom.Pt(4, 0))
	circle := geom.Circle(geom.Pt(50, 50), 2)
	x := NewExtractor(geom.DefaultTolerance, nil)

	faces, err := x.ExtractFaces(context.Background(), entities(square, circle))
	require.NoError(t, err)

	require.Len(t, faces.Bounded, 2)
	areas := []float64{faces.Bounded[0].Area, faces.Bounded[1].Area}
	sort.Float64s(areas)
	assert.InDelta(t, 4*math.Pi, areas[0], 1e-9)
	assert.InDelta(t, 16, areas[1], 1e-9)
	assert.Len(t, faces.Outer, 2)
}

func TestExtractFaces_TangentArcAndLine(t *testing.T) {
	// A quarter arc and a line leave the origin along +x. The arc
	// closes a face with the line and a chord back to its far end.
	b := math.Tan(math.Pi / 8)
	arc := func(y, bulge float64) geom.Curve {
		return geom.Curve{Kind: geom.KindArc, Vertices: []geom.Vertex{geom.VB(0, 0, bulge), geom.V(1, y)}}
	}
	tests := []struct {
		name   string
		curves []geom.Curve
		face   []model.EntityHandle
	}{
		{
			name:   "bends left",
			curves: []geom.Curve{arc(1, b), line(0, 0, 2, 0), line(2, 0, 1, 1), line(0, 0, -1, 0)},
			face:   []model.EntityHandle{"e1", "e2", "e3"},
		},
		{
			name:   "bends right",
			curves: []geom.Curve{line(0, 0, 2, 0), line(2, 0, 1, -1), line(0, 0, -1, 0), arc(-1, -b)},
			face:   []model.EntityHandle{"e1", "e2", "e4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := NewExtractor(geom.DefaultTolerance, nil)

			faces, err := x.ExtractFaces(context.Background(), entities(tt.curves...))
			require.NoError(t, err)

			require.Len(t, faces.Bounded, 1)
			f := faces.Bounded[0]
			assert.ElementsMatch(t, tt.face, f.Handles)
			assert.Equal(t, 3, f.HalfEdges)
			assert.InDelta(t, 1.5-math.Pi/4, f.Area, 1e-9)
			assert.Len(t, faces.Unclosed, 1)
		})
	}
}

func TestExtractFaces_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	x := NewExtractor(geom.DefaultTolerance, nil)

	_, err := x.ExtractFaces(ctx, entities(twoRooms()...))

	assert.ErrorIs(t, err, model.ErrCancelled)
}
