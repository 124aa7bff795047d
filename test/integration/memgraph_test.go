//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/topoclean/internal/config"
	"github.com/agenthands/topoclean/internal/core"
	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/agenthands/topoclean/internal/driver"
	"github.com/agenthands/topoclean/internal/store"
)

// newStore connects to the Memgraph named by MEMGRAPH_URI and returns a
// store scoped to a fresh drawing group.
func newStore(t *testing.T) *store.MemgraphStore {
	t.Helper()
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}
	d, err := driver.NewMemgraphDriver(uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, d.BuildIndices(ctx))

	s := store.NewMemgraphStore(d, "it-"+uuid.New().String())
	t.Cleanup(func() {
		_ = s.Clear(context.Background())
		_ = d.Close(context.Background())
	})
	return s
}

func TestMemgraphStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	arc := geom.Curve{
		Kind:      geom.KindArc,
		Vertices:  []geom.Vertex{geom.VB(0, 0, 0.5), geom.V(4, 0)},
		Elevation: 2,
		Layer:     "walls",
	}
	h, err := s.Add(ctx, arc)
	require.NoError(t, err)
	require.NoError(t, s.AddWithHandle(ctx, "door", geom.Line(geom.Pt(1, 1), geom.Pt(2, 2))))

	got, err := s.ReadGeometry(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, arc, got)

	handles, err := s.Handles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.EntityHandle{h, "door"}, handles)

	_, err = s.ReadGeometry(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemgraphStore_BatchRollback(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	h, err := s.Add(ctx, geom.Line(geom.Pt(0, 0), geom.Pt(1, 0)))
	require.NoError(t, err)

	b, err := s.BeginBatch(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Erase(ctx, h))
	_, err = b.Create(ctx, geom.Line(geom.Pt(5, 5), geom.Pt(6, 6)))
	require.NoError(t, err)
	require.NoError(t, b.Rollback(ctx))

	handles, err := s.Handles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.EntityHandle{h}, handles)
}

func TestCleaner_OverMemgraph(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.AddWithHandle(ctx, "a", geom.Line(geom.Pt(0, 0), geom.Pt(10, 10))))
	require.NoError(t, s.AddWithHandle(ctx, "b", geom.Line(geom.Pt(0, 10), geom.Pt(10, 0))))
	require.NoError(t, s.AddWithHandle(ctx, "c", geom.Line(geom.Pt(20, 0), geom.Pt(30, 0))))
	require.NoError(t, s.AddWithHandle(ctx, "c2", geom.Line(geom.Pt(30, 0), geom.Pt(20, 0))))

	c := core.NewCleaner(s, config.Default(), nil)

	conv, err := c.CheckAndFixAll(ctx, core.CheckRequest{Action: model.BreakCrossing})
	require.NoError(t, err)
	assert.True(t, conv.Converged)
	assert.Len(t, conv.Targets, 4)

	// Split lineage is persisted as REPLACED_BY edges
	targets, err := s.Replacements(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, targets, 2)

	conv, err = c.CheckAndFixAll(ctx, core.CheckRequest{Action: model.DeleteDuplicates})
	require.NoError(t, err)
	assert.Equal(t, 1, conv.Total.Fixed)

	handles, err := s.Handles(ctx)
	require.NoError(t, err)
	assert.Len(t, handles, 5)
	assert.NotContains(t, handles, model.EntityHandle("a"))
}
