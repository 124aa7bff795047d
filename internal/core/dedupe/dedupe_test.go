package dedupe

import (
	"context"
	"testing"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDuplicates(t *testing.T) {
	d := NewDeduplicator(geom.DefaultTolerance, 0.001)
	ctx := context.Background()

	entities := []model.Entity{
		{Handle: "long", Geometry: geom.Line(geom.Pt(0, 0), geom.Pt(10, 0))},
		// Lies on "long"
		{Handle: "part", Geometry: geom.Line(geom.Pt(2, 0), geom.Pt(4, 0.0005))},
		// Same as "long", reversed
		{Handle: "copy", Geometry: geom.Line(geom.Pt(10, 0), geom.Pt(0, 0))},
		{Handle: "other", Geometry: geom.Line(geom.Pt(0, 1), geom.Pt(10, 1))},
	}

	pairs, err := d.ResolveDuplicates(ctx, entities)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.DuplicatePair{
		{OriginalHandle: "long", DuplicateHandle: "part"},
		{OriginalHandle: "long", DuplicateHandle: "copy"},
		{OriginalHandle: "copy", DuplicateHandle: "part"},
	}, pairs)

	groups := d.Groups(entities, pairs)
	require.Len(t, groups, 1)
	assert.Equal(t, model.EntityHandle("long"), groups[0].Keeper)
	// "part" is a duplicate of two curves but is listed once
	assert.Equal(t, []model.EntityHandle{"part", "copy"}, groups[0].Duplicates)
}

func TestGroups_SharedContainerKeepsBothContainers(t *testing.T) {
	d := NewDeduplicator(geom.DefaultTolerance, 0.001)
	entities := []model.Entity{
		{Handle: "b", Geometry: geom.Line(geom.Pt(0, 0), geom.Pt(6, 0))},
		{Handle: "c", Geometry: geom.Line(geom.Pt(4, 0), geom.Pt(10, 0))},
		{Handle: "a", Geometry: geom.Line(geom.Pt(4.5, 0), geom.Pt(5.5, 0))},
	}
	pairs, err := d.ResolveDuplicates(context.Background(), entities)
	require.NoError(t, err)
	groups := d.Groups(entities, pairs)
	require.Len(t, groups, 1)
	assert.Equal(t, model.EntityHandle("b"), groups[0].Keeper)
	assert.Equal(t, []model.EntityHandle{"a"}, groups[0].Duplicates)
}

func TestLiesOn_Arc(t *testing.T) {
	d := NewDeduplicator(geom.DefaultTolerance, 0.001)
	circle := geom.Circle(geom.Pt(0, 0), 5)
	half := geom.Curve{Kind: geom.KindArc, Vertices: []geom.Vertex{geom.VB(-5, 0, 1), geom.V(5, 0)}}
	chord := geom.Line(geom.Pt(-5, 0), geom.Pt(5, 0))

	assert.True(t, d.LiesOn(half, circle))
	assert.False(t, d.LiesOn(circle, half))
	// Endpoints match but the middle of the chord is off the circle
	assert.False(t, d.LiesOn(chord, circle))
}
